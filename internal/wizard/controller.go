// Package wizard walks one inspection form through its sections and hands the
// finished answer to the persistence layer.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"ppe_inspection/internal/form"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrConflict means the inspection already has an answer. The user should
	// reload the link to see the stored result.
	ErrConflict = errors.New("wizard: inspection has already been answered")
	// ErrNotAtConclusion is returned by Submit outside the last section.
	ErrNotAtConclusion = errors.New("wizard: submit is only available from the conclusion")
)

// ValidationError carries every violation found when a submission was
// refused. Section is where the wizard moved to.
type ValidationError struct {
	Section    form.Section
	Violations []form.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("wizard: %s is incomplete: %s", e.Section.Title(), strings.Join(msgs, "; "))
}

// TransientError wraps a storage or network failure. The submission can be
// retried as is.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "wizard: submission failed, try again: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// AnswerStore persists a finished answer. Implementations must create the
// answer and mark the request answered atomically, and report an existing
// answer with ErrConflict.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, requestID uint, answer form.Answer) (uint, error)
}

// Receipt describes a successful submission.
type Receipt struct {
	AnswerID    uint         `json:"answerId"`
	Summary     form.Summary `json:"summary"`
	Warnings    []string     `json:"warnings,omitempty"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// ResumeAt moves the wizard towards sec as if the user had pressed next until
// reaching it. It stops early at the first section that does not validate, so
// a restored draft can never skip a section.
func ResumeAt(sec form.Section) Option {
	return func(c *Controller) {
		c.resume = sec
	}
}

// Controller is the state machine of one inspection session. It is not safe
// for concurrent use; the owner serializes calls.
type Controller struct {
	state     form.State
	current   form.Section
	store     AnswerStore
	log       *zap.Logger
	now       func() time.Time
	resume    form.Section
	submitted bool
}

// New starts a wizard at the identification section.
func New(state form.State, store AnswerStore, opts ...Option) *Controller {
	c := &Controller{
		state:   state,
		current: form.Identification,
		store:   store,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for c.current < c.resume {
		if len(form.Validate(c.state.Sheet, c.current)) > 0 {
			break
		}
		c.current++
	}
	return c
}

// Current returns the section on screen.
func (c *Controller) Current() form.Section {
	return c.current
}

// State returns a copy of the working state.
func (c *Controller) State() form.State {
	return c.state
}

func (c *Controller) Submitted() bool {
	return c.submitted
}

// Progress scores the current answers.
func (c *Controller) Progress() form.Summary {
	return form.Evaluate(c.state.Sheet)
}

// Violations validates the current section without moving.
func (c *Controller) Violations() []form.Violation {
	return form.Validate(c.state.Sheet, c.current)
}

// Patch applies user edits. Either all of them are applied or none.
func (c *Controller) Patch(patches ...form.Patch) error {
	if c.submitted {
		return ErrConflict
	}
	next, err := c.state.ApplyAll(patches...)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Dispatch feeds a photo pipeline event into the state. Events keep being
// accepted after submission so late upload callbacks settle cleanly.
func (c *Controller) Dispatch(ev form.PhotoEvent) {
	c.state = c.state.Reduce(ev)
}

// Next validates the current section and advances when it is clean. The
// returned violations are empty on success. At the conclusion it does nothing.
func (c *Controller) Next() []form.Violation {
	if c.current == form.Conclusion {
		return nil
	}
	if v := form.Validate(c.state.Sheet, c.current); len(v) > 0 {
		c.log.Debug("next refused",
			zap.Uint("request_id", c.state.RequestID),
			zap.Stringer("section", c.current),
			zap.Int("violations", len(v)))
		return v
	}
	c.current++
	return nil
}

// Previous moves one section back without validating. It reports false at
// the first section.
func (c *Controller) Previous() bool {
	if c.current == form.Identification {
		return false
	}
	c.current--
	return true
}

// Submit re-validates every section and persists the answer. When a section
// fails the wizard moves to it and a *ValidationError is returned. Store
// failures other than ErrConflict come back as *TransientError. The state is
// never changed by a failed submission.
func (c *Controller) Submit(ctx context.Context) (Receipt, error) {
	if c.submitted {
		return Receipt{}, ErrConflict
	}
	if c.current != form.Conclusion {
		return Receipt{}, ErrNotAtConclusion
	}

	first, violations, ok := form.ValidateAll(c.state.Sheet)
	if !ok {
		c.current = first
		return Receipt{}, &ValidationError{Section: first, Violations: violations}
	}

	answer, warnings := c.state.Finalize()
	id, err := c.store.SaveAnswer(ctx, c.state.RequestID, answer)
	if err != nil {
		c.log.Warn("submission failed",
			zap.Uint("request_id", c.state.RequestID),
			zap.Error(err))
		if errors.Is(err, ErrConflict) {
			return Receipt{}, err
		}
		return Receipt{}, &TransientError{Err: err}
	}

	c.submitted = true
	r := Receipt{
		AnswerID:    id,
		Summary:     form.Evaluate(answer.Sheet),
		Warnings:    warnings,
		SubmittedAt: c.now(),
	}
	c.log.Info("inspection submitted",
		zap.Uint("request_id", c.state.RequestID),
		zap.Uint("answer_id", id),
		zap.String("outcome", string(r.Summary.Outcome)),
		zap.Int("photos", len(answer.Photos)),
		zap.Int("warnings", len(warnings)))
	return r, nil
}
