package service

import (
	"context"
	"errors"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/util"
	"ppe_inspection/internal/wizard"
	"ppe_inspection/pkg/logger"
	"ppe_inspection/pkg/monitoring"
	"ppe_inspection/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Session is one form being filled through a share link. All access to the
// wizard goes through the session lock, so concurrent requests from several
// tabs and the upload goroutines see a consistent state.
type Session struct {
	mu       sync.Mutex
	token    string
	request  *model.InspectionRequest
	ctrl     *wizard.Controller
	drafts   DraftStore
	lastUsed time.Time
}

// SessionView is what the technician's page renders.
type SessionView struct {
	Token          string           `json:"token"`
	Request        form.RequestInfo `json:"request"`
	Current        form.Section     `json:"current"`
	Sections       []form.Section   `json:"sections"`
	State          form.State       `json:"state"`
	Violations     []form.Violation `json:"violations"`
	Progress       form.Summary     `json:"progress"`
	PendingUploads int              `json:"pendingUploads"`
	Submitted      bool             `json:"submitted"`
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) RequestID() uint {
	return s.request.ID
}

// View snapshots the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() SessionView {
	st := s.ctrl.State()
	return SessionView{
		Token:          s.token,
		Request:        s.request.Info(),
		Current:        s.ctrl.Current(),
		Sections:       form.Sections(),
		State:          st,
		Violations:     s.ctrl.Violations(),
		Progress:       s.ctrl.Progress(),
		PendingUploads: st.PendingUploads(),
		Submitted:      s.ctrl.Submitted(),
	}
}

// Do runs fn with exclusive access to the wizard, saves a draft and returns
// the resulting view.
func (s *Session) Do(ctx context.Context, fn func(c *wizard.Controller) error) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	err := fn(s.ctrl)
	s.saveDraft(ctx)
	return s.view(), err
}

// State returns the current form state.
func (s *Session) State() form.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

func (s *Session) Photo(id string) (form.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State().Photo(id)
}

// Dispatch applies a photo event and reports whether the photo was still
// part of the form when it arrived.
func (s *Session) Dispatch(ev form.PhotoEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := photoEventID(ev)
	_, known := s.ctrl.State().Photo(id)
	s.ctrl.Dispatch(ev)
	if _, added := ev.(form.PhotoAdded); added {
		known = true
	}
	s.saveDraft(context.Background())
	return known
}

// RemovePhoto drops a photo and returns it as it was at that moment, so a
// storage key set by an upload that just finished is not missed.
func (s *Session) RemovePhoto(id string) (form.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ctrl.State().Photo(id)
	if !ok {
		return form.Photo{}, false
	}
	s.ctrl.Dispatch(form.PhotoRemoved{ID: id})
	s.saveDraft(context.Background())
	return p, true
}

func photoEventID(ev form.PhotoEvent) string {
	switch e := ev.(type) {
	case form.PhotoAdded:
		return e.Photo.ID
	case form.PhotoUploadStarted:
		return e.ID
	case form.PhotoUploaded:
		return e.ID
	case form.PhotoFailed:
		return e.ID
	case form.PhotoRemoved:
		return e.ID
	}
	return ""
}

// saveDraft must be called with s.mu held. Draft failures are logged only;
// the in-memory session stays authoritative.
func (s *Session) saveDraft(ctx context.Context) {
	if s.drafts == nil || s.ctrl.Submitted() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	d := &Draft{State: s.ctrl.State(), Current: s.ctrl.Current(), SavedAt: time.Now()}
	if err := s.drafts.Save(ctx, s.token, d); err != nil {
		logger.Log.Warn("Failed to save draft", zap.Uint("request_id", s.request.ID), zap.Error(err))
	}
}

// SessionService keeps the open sessions of this process.
type SessionService struct {
	Inspections *InspectionService
	Answers     *repository.AnswerRepository
	Drafts      DraftStore

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionService(inspections *InspectionService, answers *repository.AnswerRepository, drafts DraftStore) *SessionService {
	return &SessionService{
		Inspections: inspections,
		Answers:     answers,
		Drafts:      drafts,
		sessions:    make(map[string]*Session),
	}
}

// Open returns the session of token, creating it on first use from a saved
// draft or from a blank form. The link is checked on every call, so a link
// answered or expired elsewhere stops working here too.
func (s *SessionService) Open(ctx context.Context, token string) (*Session, error) {
	req, err := s.Inspections.FetchRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, util.ErrAlreadyAnswered) || errors.Is(err, util.ErrLinkExpired) {
			s.evict(token)
		}
		return nil, err
	}

	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	state, current := s.restore(ctx, req)
	created := &Session{
		token:   token,
		request: req,
		drafts:  s.Drafts,
		ctrl: wizard.New(state, answerSink{answers: s.Answers},
			wizard.WithLogger(logger.Log.Named("wizard")),
			wizard.ResumeAt(current)),
		lastUsed: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	s.sessions[token] = created
	return created, nil
}

// restore loads the draft of req. Uploads that were in flight when the draft
// was taken cannot finish any more and are marked failed.
func (s *SessionService) restore(ctx context.Context, req *model.InspectionRequest) (form.State, form.Section) {
	blank := form.New(req.Info())
	if s.Drafts == nil {
		return blank, form.Identification
	}
	d, err := s.Drafts.Load(ctx, req.Token)
	if err != nil {
		logger.Log.Warn("Failed to load draft", zap.Uint("request_id", req.ID), zap.Error(err))
		return blank, form.Identification
	}
	if d == nil || d.State.RequestID != req.ID {
		return blank, form.Identification
	}
	state := d.State
	for _, p := range state.PhotoList() {
		if p.Status == form.PhotoStatusPending || p.Status == form.PhotoStatusUploading {
			state = state.Reduce(form.PhotoFailed{ID: p.ID, Err: "upload interrupted, please add the photo again"})
		}
	}
	logger.Log.Info("Draft restored",
		zap.Uint("request_id", req.ID),
		zap.Stringer("section", d.Current),
		zap.Time("saved_at", d.SavedAt))
	return state, d.Current
}

// Submit finalizes the session. On success the draft is dropped and the
// session forgotten.
func (s *SessionService) Submit(ctx context.Context, sess *Session) (wizard.Receipt, SessionView, error) {
	ctx, span := tracing.Start(ctx, "inspection.submit", attribute.Int("request_id", int(sess.RequestID())))
	var receipt wizard.Receipt
	view, err := sess.Do(ctx, func(c *wizard.Controller) error {
		r, err := c.Submit(ctx)
		receipt = r
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return receipt, view, err
	}

	monitoring.Submissions.WithLabelValues(string(receipt.Summary.Outcome)).Inc()
	if s.Drafts != nil {
		if err := s.Drafts.Delete(context.WithoutCancel(ctx), sess.token); err != nil {
			logger.Log.Warn("Failed to delete draft", zap.Uint("request_id", sess.RequestID()), zap.Error(err))
		}
	}
	s.evict(sess.token)
	return receipt, view, nil
}

func (s *SessionService) evict(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep forgets sessions idle for longer than idle that have no upload in
// flight. Their drafts stay in the draft store.
func (s *SessionService) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sess := range s.sessions {
		sess.mu.Lock()
		stale := time.Since(sess.lastUsed) > idle && sess.ctrl.State().PendingUploads() == 0
		sess.mu.Unlock()
		if stale {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// answerSink adapts the answer repository to the wizard's persistence port.
type answerSink struct {
	answers *repository.AnswerRepository
}

func (a answerSink) SaveAnswer(ctx context.Context, requestID uint, answer form.Answer) (uint, error) {
	answer.RequestID = requestID
	row := model.NewInspectionAnswer(answer, time.Now())
	if err := a.answers.Submit(ctx, row); err != nil {
		if errors.Is(err, util.ErrConflict) {
			return 0, wizard.ErrConflict
		}
		return 0, err
	}
	return row.ID, nil
}
