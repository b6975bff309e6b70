// Package activity tracks submitted call requests on the client side.
//
// A submission creates a queued entry immediately; the remote round trip
// later moves that entry, found by id, to success or error. Resolutions may
// arrive in any order and each one touches only its own entry.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"ringline/internal/domain"
	"ringline/internal/validate"
)

// TransportFailureMessage is shown when the call service gave no answer.
const TransportFailureMessage = "Unable to reach the call service. Check your connection and try again."

// Result is what the call service answered.
type Result struct {
	Success bool
	Message string
}

// Submitter performs the remote call. A non-nil error means no response was
// received at all.
type Submitter func(ctx context.Context, req domain.CallRequest) (Result, error)

// Entry is one row of the activity log.
type Entry struct {
	ID              string             `json:"id"`
	CreatedAt       time.Time          `json:"created_at"`
	Status          domain.EntryStatus `json:"status"`
	RecipientName   string             `json:"recipient_name"`
	RecipientNumber string             `json:"recipient_number"`
	Objective       string             `json:"objective"`
	Notes           string             `json:"notes,omitempty"`
	ResponseMessage string             `json:"response_message"`
}

// Pending is the future for one submission.
type Pending struct {
	ID      string
	tracker *Tracker
	done    chan struct{}
}

// Done is closed once the entry left the queued state.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the submission resolves or ctx ends, and returns the
// entry as last seen.
func (p *Pending) Wait(ctx context.Context) (Entry, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		e, _ := p.tracker.Get(p.ID)
		return e, ctx.Err()
	}
	e, _ := p.tracker.Get(p.ID)
	return e, nil
}

// Runner schedules background work.
type Runner interface {
	Submit(task func()) error
}

type goRunner struct{}

func (goRunner) Submit(task func()) error {
	go task()
	return nil
}

type Tracker struct {
	submit Submitter
	runner Runner
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
	form    Form
	waiters map[string]chan struct{}
}

type Option func(*Tracker)

// WithRunner replaces the default goroutine-per-submission runner.
func WithRunner(r Runner) Option { return func(t *Tracker) { t.runner = r } }

func WithLogger(l zerolog.Logger) Option { return func(t *Tracker) { t.log = l } }

func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// WithForm seeds the form defaults.
func WithForm(f Form) Option { return func(t *Tracker) { t.form = f } }

func NewTracker(submit Submitter, opts ...Option) *Tracker {
	t := &Tracker{
		submit:  submit,
		runner:  goRunner{},
		log:     zerolog.Nop(),
		now:     time.Now,
		form:    NewForm(domain.CallRequest{}),
		waiters: map[string]chan struct{}{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewPool returns a bounded ants pool usable as a Runner.
func NewPool(size int, log zerolog.Logger) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithPanicHandler(func(p any) {
		log.Error().Str("panic", fmt.Sprint(p)).Msg("submission worker panicked")
	}))
}

// Submit validates draft locally. Invalid drafts return their field issues
// and create no entry. Valid drafts get a queued entry before the remote call
// is started.
func (t *Tracker) Submit(ctx context.Context, draft domain.CallRequest) (*Pending, []validate.FieldError) {
	if issues := validate.All(draft); len(issues) > 0 {
		return nil, issues
	}
	req := validate.Normalize(draft)
	entry := Entry{
		ID:              uuid.NewString(),
		CreatedAt:       t.now(),
		Status:          domain.StatusQueued,
		RecipientName:   req.RecipientName,
		RecipientNumber: req.RecipientNumber,
		Objective:       req.Objective,
		Notes:           req.Notes,
		ResponseMessage: fmt.Sprintf("Calling %s...", req.RecipientName),
	}
	done := make(chan struct{})
	t.mu.Lock()
	next := make([]Entry, 0, len(t.entries)+1)
	next = append(next, entry)
	next = append(next, t.entries...)
	t.entries = next
	t.waiters[entry.ID] = done
	t.mu.Unlock()

	p := &Pending{ID: entry.ID, tracker: t, done: done}
	err := t.runner.Submit(func() {
		res, err := t.submit(ctx, req)
		if err != nil {
			t.log.Warn().Err(err).Str("entry", entry.ID).Msg("call service unreachable")
			t.resolve(entry.ID, Result{Success: false, Message: TransportFailureMessage})
			return
		}
		t.resolve(entry.ID, res)
	})
	if err != nil {
		t.log.Error().Err(err).Str("entry", entry.ID).Msg("could not schedule submission")
		t.resolve(entry.ID, Result{Success: false, Message: TransportFailureMessage})
	}
	return p, nil
}

// resolve moves the queued entry with id to its terminal state. Other entries
// are copied untouched; an entry that already left queued is left alone.
func (t *Tracker) resolve(id string, res Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make([]Entry, len(t.entries))
	copy(next, t.entries)
	for i := range next {
		if next[i].ID != id {
			continue
		}
		if next[i].Status != domain.StatusQueued {
			return
		}
		next[i].ResponseMessage = res.Message
		if res.Success {
			next[i].Status = domain.StatusSuccess
			t.form.reset()
		} else {
			next[i].Status = domain.StatusError
			if next[i].ResponseMessage == "" {
				next[i].ResponseMessage = "The call could not be placed."
			}
		}
		break
	}
	t.entries = next
	if ch, ok := t.waiters[id]; ok {
		close(ch)
		delete(t.waiters, id)
	}
}

// Entries returns a snapshot, newest first.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tracker) Get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Reset clears the log. Submissions still in flight resolve into nothing.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	for id, ch := range t.waiters {
		close(ch)
		delete(t.waiters, id)
	}
}

// Form returns the current form values.
func (t *Tracker) Form() domain.CallRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.form.Values
}

// SetForm stores what the user typed.
func (t *Tracker) SetForm(v domain.CallRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.form.Values = v
}
