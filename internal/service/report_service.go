package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/report"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/util"
	"ppe_inspection/pkg/logger"
	"ppe_inspection/pkg/monitoring"
	"ppe_inspection/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReportService renders stored inspections as PDF reports and spreadsheets.
type ReportService struct {
	Requests *repository.RequestRepository
	Answers  *repository.AnswerRepository
	Storage  *StorageService
	Cfg      *config.Config

	mu sync.RWMutex
}

func NewReportService(requests *repository.RequestRepository, answers *repository.AnswerRepository, storage *StorageService, cfg *config.Config) *ReportService {
	return &ReportService{Requests: requests, Answers: answers, Storage: storage, Cfg: cfg}
}

// storagePhotos reads report photos back from the configured storage.
type storagePhotos struct {
	storage *StorageService
}

func (p storagePhotos) Open(ctx context.Context, ref form.PhotoRef) (io.ReadCloser, error) {
	return p.storage.Open(ctx, ref.StorageKey)
}

// SetConfig swaps the report settings used by later renders.
func (s *ReportService) SetConfig(rc config.ReportConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cfg.Report = rc
}

func (s *ReportService) reportConfig() config.ReportConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Cfg.Report
}

// Options turns the report config into layout options.
func (s *ReportService) Options() report.Options {
	opt := report.DefaultOptions()
	rc := s.reportConfig()
	if rc.Title != "" {
		opt.Title = rc.Title
	}
	if rc.MaxImageWidth > 0 {
		opt.MaxImageWidth = rc.MaxImageWidth
	}
	if rc.MaxImageHeight > 0 {
		opt.MaxImageHeight = rc.MaxImageHeight
	}
	return opt
}

func (s *ReportService) generator() *report.Generator {
	rc := s.reportConfig()
	return &report.Generator{
		Photos:       storagePhotos{storage: s.Storage},
		Options:      s.Options(),
		Concurrency:  rc.PhotoConcurrency,
		FetchTimeout: rc.FetchTimeout,
	}
}

// PDF renders the report of an answered request. The file name is suggested
// for the download.
func (s *ReportService) PDF(ctx context.Context, requestID uint) ([]byte, string, error) {
	ctx, span := tracing.Start(ctx, "report.pdf", attribute.Int("request_id", int(requestID)))
	data, name, err := s.pdf(ctx, requestID)
	tracing.End(span, err)
	return data, name, err
}

func (s *ReportService) pdf(ctx context.Context, requestID uint) ([]byte, string, error) {
	req, err := s.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	if req.Status != model.StatusAnswered {
		return nil, "", fmt.Errorf("%w: inspection %d has no answer yet", util.ErrNotFound, requestID)
	}
	row, err := s.Answers.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, "", err
	}

	in := report.Inspection{
		Request:     req.Info(),
		Answer:      row.Answer(),
		SubmittedAt: row.SubmittedAt,
		Inspector:   req.Inspector,
	}

	start := time.Now()
	var buf bytes.Buffer
	doc, err := s.generator().Generate(ctx, in, &buf)
	monitoring.ReportRender.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, "", err
	}
	logger.Log.Info("Report rendered",
		zap.Uint("request_id", requestID),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("photos", len(in.Answer.Photos)),
		zap.String("verdict", doc.Badge),
		zap.Duration("elapsed", time.Since(start)))
	return buf.Bytes(), fmt.Sprintf("inspection-%d.pdf", requestID), nil
}

// XLSX exports every answered inspection as one spreadsheet.
func (s *ReportService) XLSX(ctx context.Context) ([]byte, error) {
	answers, err := s.Answers.ListAnswered(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]report.SummaryRow, 0, len(answers))
	for i := range answers {
		a := &answers[i]
		info := form.RequestInfo{ID: a.RequestID}
		if a.Request != nil {
			info = a.Request.Info()
		}
		rows = append(rows, report.SummaryRow{
			Request:     info,
			SubmittedAt: a.SubmittedAt,
			Sheet:       a.Sheet(),
			Photos:      len(a.Photos),
		})
	}
	var buf bytes.Buffer
	if err := report.WriteSummaryXLSX(rows, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
