package service

import (
	"context"
	"errors"
	"fmt"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/util"
	"ppe_inspection/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

// InspectionService issues share links and answers admin queries about them.
type InspectionService struct {
	Requests *repository.RequestRepository
	Answers  *repository.AnswerRepository
	Cfg      *config.Config
	Now      func() time.Time
}

func NewInspectionService(requests *repository.RequestRepository, answers *repository.AnswerRepository, cfg *config.Config) *InspectionService {
	return &InspectionService{
		Requests: requests,
		Answers:  answers,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

type CreateRequestInput struct {
	Company   string `json:"company" binding:"required,max=150"`
	Region    string `json:"region" binding:"max=100"`
	SiteCode  string `json:"siteCode" binding:"max=50"`
	Inspector string `json:"inspector" binding:"max=100"`
}

// CreatedLink is a new request and the URL to hand to the technician.
type CreatedLink struct {
	Request *model.InspectionRequest `json:"request"`
	URL     string                   `json:"url"`
	// ExpiresAt is nil when links do not expire.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// InspectionDetail is a request with its answer, if any.
type InspectionDetail struct {
	Request *model.InspectionRequest `json:"request"`
	URL     string                   `json:"url"`
	Expired bool                     `json:"expired"`
	Answer  *form.Answer             `json:"answer,omitempty"`
	Summary *form.Summary            `json:"summary,omitempty"`
	// SubmittedAt is zero until answered.
	SubmittedAt time.Time `json:"submittedAt,omitempty"`
}

func (s *InspectionService) CreateRequest(ctx context.Context, in CreateRequestInput) (*CreatedLink, error) {
	in.Company = strings.TrimSpace(in.Company)
	if in.Company == "" {
		return nil, fmt.Errorf("%w: company is required", util.ErrInvalidInput)
	}
	req := &model.InspectionRequest{
		Company:   in.Company,
		Region:    strings.TrimSpace(in.Region),
		SiteCode:  strings.TrimSpace(in.SiteCode),
		Inspector: strings.TrimSpace(in.Inspector),
		Status:    model.StatusPending,
	}

	// Retry once on a token collision.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		req.Token = util.GenerateToken()
		if err = s.Requests.Create(ctx, req); !errors.Is(err, util.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Inspection link created",
		zap.Uint("request_id", req.ID),
		zap.String("company", req.Company))

	link := &CreatedLink{Request: req, URL: s.ShareURL(req.Token)}
	if ttl := s.Cfg.Inspection.LinkTTL; ttl > 0 {
		at := req.CreatedAt.Add(ttl)
		link.ExpiresAt = &at
	}
	return link, nil
}

// ShareURL is the address a technician opens to fill the form.
func (s *InspectionService) ShareURL(token string) string {
	return strings.TrimSuffix(s.Cfg.Inspection.PublicBaseURL, "/") + "/forms/" + token
}

// Expired reports whether a pending link is past its ttl.
func (s *InspectionService) Expired(req *model.InspectionRequest) bool {
	ttl := s.Cfg.Inspection.LinkTTL
	return req.Status == model.StatusPending && ttl > 0 && s.Now().Sub(req.CreatedAt) > ttl
}

// FetchRequestByToken resolves a share link to a request that can still be
// answered. Malformed tokens are rejected before touching the database.
func (s *InspectionService) FetchRequestByToken(ctx context.Context, token string) (*model.InspectionRequest, error) {
	if !util.ValidToken(token) {
		return nil, util.ErrInvalidToken
	}
	req, err := s.Requests.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status == model.StatusAnswered {
		return req, util.ErrAlreadyAnswered
	}
	if s.Expired(req) {
		return req, util.ErrLinkExpired
	}
	return req, nil
}

func (s *InspectionService) List(ctx context.Context, f repository.RequestFilter) ([]model.InspectionRequest, int64, error) {
	switch f.Status {
	case "", model.StatusPending, model.StatusAnswered:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, f.Status)
	}
	return s.Requests.List(ctx, f)
}

func (s *InspectionService) Detail(ctx context.Context, id uint) (*InspectionDetail, error) {
	req, err := s.Requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &InspectionDetail{Request: req, URL: s.ShareURL(req.Token), Expired: s.Expired(req)}
	if req.Status != model.StatusAnswered {
		return d, nil
	}

	row, err := s.Answers.FindByRequestID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	answer := row.Answer()
	sum := form.Evaluate(answer.Sheet)
	d.Answer = &answer
	d.Summary = &sum
	d.SubmittedAt = row.SubmittedAt
	return d, nil
}

func (s *InspectionService) Delete(ctx context.Context, id uint) error {
	if err := s.Requests.DeletePending(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("Inspection link deleted", zap.Uint("request_id", id))
	return nil
}
