package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aqarlink/aqarlink/internal/apperr"
	"github.com/aqarlink/aqarlink/internal/estate"
	"github.com/aqarlink/aqarlink/internal/session"
)

// Step of the submission wizard, in order. StepSubmitted is terminal: the
// only action left is navigating away.
type Step int

const (
	StepPropertyType Step = iota
	StepLocationBudget
	StepDetails
	StepReview
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepPropertyType:
		return "property-type"
	case StepLocationBudget:
		return "location-budget"
	case StepDetails:
		return "details"
	case StepReview:
		return "review"
	case StepSubmitted:
		return "submitted"
	}
	return "unknown"
}

// PropertyTypes is the closed set offered at the first step. Other is the
// catch-all, so selecting a type can never fail validation.
var PropertyTypes = []string{"Villa", "Apartment", "Office", "Store", "Other"}

// Submitter creates the estate request at the end of the wizard.
type Submitter interface {
	Create(ctx context.Context, userID string, draft estate.Draft) (estate.Request, error)
}

// UserSource resolves the current user at submit time. The wizard checks
// identity at this boundary rather than trusting the route guard upstream.
type UserSource interface {
	Snapshot() session.State
}

// Wizard is the multi-step request-submission state machine. It owns the
// draft exclusively until handoff to the Submitter; the draft is discarded
// on successful submission or abandonment.
type Wizard struct {
	repo  Submitter
	users UserSource
	delay time.Duration

	mu      sync.Mutex
	step    Step
	draft   estate.Draft
	errMsg  string
	busy    bool
	advance *time.Timer

	onChange func()
}

// New builds a wizard at the first step. delay is the pause between a
// property-type selection and the automatic advance.
func New(repo Submitter, users UserSource, delay time.Duration) *Wizard {
	return &Wizard{repo: repo, users: users, delay: delay}
}

// OnChange registers a hook invoked after every state change, for redraws.
func (w *Wizard) OnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the accumulated draft.
func (w *Wizard) Draft() estate.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Err returns the single currently displayed validation or submit error.
func (w *Wizard) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Busy reports whether a submission is in flight; the triggering control
// must be disabled while true.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// SelectPropertyType records the choice and schedules the auto-advance to
// the location step. Re-selecting restarts the timer.
func (w *Wizard) SelectPropertyType(value string) {
	w.mu.Lock()
	if w.step != StepPropertyType {
		w.mu.Unlock()
		return
	}
	w.draft.PropertyType = value
	w.errMsg = ""
	if w.advance != nil {
		w.advance.Stop()
	}
	w.advance = time.AfterFunc(w.delay, w.autoAdvance)
	w.mu.Unlock()
	w.changed()
}

// autoAdvance fires from the timer; it re-checks state so a Back or Close
// between scheduling and firing cannot produce a stale transition.
func (w *Wizard) autoAdvance() {
	w.mu.Lock()
	if w.step != StepPropertyType || w.draft.PropertyType == "" {
		w.mu.Unlock()
		return
	}
	w.step = StepLocationBudget
	w.mu.Unlock()
	w.changed()
}

// Close cancels any pending auto-advance. Call when tearing the wizard
// down before the timer fires.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.advance != nil {
		w.advance.Stop()
		w.advance = nil
	}
	w.mu.Unlock()
}

// SetLocation updates the draft and clears the displayed error.
func (w *Wizard) SetLocation(v string) { w.apply(func(d *estate.Draft) { d.Location = v }) }

// SetBudget updates the draft and clears the displayed error.
func (w *Wizard) SetBudget(v string) { w.apply(func(d *estate.Draft) { d.Budget = v }) }

// SetBedrooms updates the draft and clears the displayed error.
func (w *Wizard) SetBedrooms(v string) { w.apply(func(d *estate.Draft) { d.Bedrooms = v }) }

// SetBathrooms updates the draft and clears the displayed error.
func (w *Wizard) SetBathrooms(v string) { w.apply(func(d *estate.Draft) { d.Bathrooms = v }) }

// SetSurface updates the draft and clears the displayed error.
func (w *Wizard) SetSurface(v string) { w.apply(func(d *estate.Draft) { d.Surface = v }) }

// SetDistrict updates the draft and clears the displayed error.
func (w *Wizard) SetDistrict(v string) { w.apply(func(d *estate.Draft) { d.District = v }) }

// SetAdditionalRequirements updates the draft and clears the displayed error.
func (w *Wizard) SetAdditionalRequirements(v string) {
	w.apply(func(d *estate.Draft) { d.AdditionalRequirements = v })
}

// apply mutates the draft and clears the current error without
// re-validating; validation only runs on the next forward attempt.
func (w *Wizard) apply(mutate func(*estate.Draft)) {
	w.mu.Lock()
	mutate(&w.draft)
	w.errMsg = ""
	w.mu.Unlock()
	w.changed()
}

// Next attempts a forward transition. The current step's validator runs
// first; on failure the first failing rule becomes the displayed error and
// the step does not change.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	if w.step >= StepReview {
		w.mu.Unlock()
		return false
	}
	if msg := validateStep(w.step, w.draft); msg != "" {
		w.errMsg = msg
		w.mu.Unlock()
		w.changed()
		return false
	}
	w.errMsg = ""
	w.step++
	w.mu.Unlock()
	w.changed()
	return true
}

// Back moves one step back, regardless of the current step's validity, and
// clears any displayed error. Unavailable from the first step and from the
// terminal Submitted step.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	if w.step == StepPropertyType || w.step == StepSubmitted {
		w.mu.Unlock()
		return false
	}
	if w.advance != nil {
		w.advance.Stop()
	}
	w.step--
	w.errMsg = ""
	w.mu.Unlock()
	w.changed()
	return true
}

// Progress reports completion over the pre-review steps as a fraction in
// [0,1]. It does not advance past the review step.
func (w *Wizard) Progress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	step := w.step
	if step > StepReview {
		step = StepReview
	}
	return float64(step) / float64(StepReview)
}

// Submit creates the request from the draft. It requires a resolved user;
// without one it fails with StateError. On success the wizard moves to the
// terminal Submitted step and discards the draft; on failure it stays on
// Review with an inline error.
func (w *Wizard) Submit(ctx context.Context) (estate.Request, error) {
	w.mu.Lock()
	if w.step != StepReview {
		w.mu.Unlock()
		return estate.Request{}, &apperr.StateError{Message: "submit is only available from the review step"}
	}
	if w.busy {
		w.mu.Unlock()
		return estate.Request{}, &apperr.StateError{Message: "a submission is already in flight"}
	}

	state := w.users.Snapshot()
	if state.User == nil {
		msg := "you must be logged in to create a request"
		w.errMsg = msg
		w.mu.Unlock()
		w.changed()
		return estate.Request{}, &apperr.StateError{Message: msg}
	}

	w.busy = true
	draft := w.draft
	userID := state.User.ID
	w.mu.Unlock()
	w.changed()

	created, err := w.repo.Create(ctx, userID, draft)

	w.mu.Lock()
	w.busy = false
	if err != nil {
		w.errMsg = err.Error()
		w.mu.Unlock()
		w.changed()
		return estate.Request{}, err
	}
	w.step = StepSubmitted
	w.draft = estate.Draft{}
	w.errMsg = ""
	w.mu.Unlock()
	w.changed()
	return created, nil
}

func (w *Wizard) changed() {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// validateStep returns the first failing rule's message, or "" when the
// step is valid. Details has no required fields and always passes.
func validateStep(step Step, d estate.Draft) string {
	switch step {
	case StepPropertyType:
		if d.PropertyType == "" {
			return "please select a property type"
		}
	case StepLocationBudget:
		if strings.TrimSpace(d.Location) == "" {
			return "please enter a location"
		}
		if strings.TrimSpace(d.Budget) == "" {
			return "please enter your budget"
		}
	}
	return ""
}
