package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aqarlink/aqarlink/internal/apperr"
	"github.com/aqarlink/aqarlink/internal/auth"
	"github.com/aqarlink/aqarlink/internal/estate"
	"github.com/aqarlink/aqarlink/internal/session"
)

type fakeRepo struct {
	created []estate.Draft
	userIDs []string
	err     error
}

func (f *fakeRepo) Create(_ context.Context, userID string, draft estate.Draft) (estate.Request, error) {
	if f.err != nil {
		return estate.Request{}, f.err
	}
	f.created = append(f.created, draft)
	f.userIDs = append(f.userIDs, userID)
	return estate.Request{
		ID:           "r-1",
		UserID:       userID,
		PropertyType: draft.PropertyType,
		Location:     draft.Location,
		Budget:       draft.Budget,
		Status:       estate.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

type fakeUsers struct {
	user *auth.User
}

func (f *fakeUsers) Snapshot() session.State {
	return session.State{User: f.user, IsAuthenticated: f.user != nil && !f.user.IsNewUser}
}

func loggedIn() *fakeUsers {
	return &fakeUsers{user: &auth.User{ID: "u-1", PhoneNumber: "+971501234567", Name: "Jane"}}
}

// advanceTo walks the wizard to the wanted step with a valid draft.
func advanceTo(t *testing.T, w *Wizard, step Step) {
	t.Helper()
	w.SelectPropertyType("Villa")
	waitForStep(t, w, StepLocationBudget)
	if step == StepLocationBudget {
		return
	}
	w.SetLocation("Dubai Marina")
	w.SetBudget("AED 2,000,000 - 3,000,000")
	if !w.Next() {
		t.Fatalf("next to details failed: %s", w.Err())
	}
	if step == StepDetails {
		return
	}
	if !w.Next() {
		t.Fatalf("next to review failed: %s", w.Err())
	}
}

func waitForStep(t *testing.T, w *Wizard, step Step) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for w.Step() != step {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for step %v, at %v", step, w.Step())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAutoAdvanceAfterSelection(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), 5*time.Millisecond)
	defer w.Close()

	if w.Step() != StepPropertyType {
		t.Fatalf("expected first step, got %v", w.Step())
	}
	w.SelectPropertyType("Apartment")
	// Still on the first step until the delay elapses.
	if w.Step() != StepPropertyType {
		t.Fatalf("advance fired before the delay")
	}
	waitForStep(t, w, StepLocationBudget)
	if w.Draft().PropertyType != "Apartment" {
		t.Fatalf("selection not recorded")
	}
}

func TestCloseCancelsPendingAdvance(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), 5*time.Millisecond)
	w.SelectPropertyType("Villa")
	w.Close()
	time.Sleep(20 * time.Millisecond)
	if w.Step() != StepPropertyType {
		t.Fatalf("advance fired after Close")
	}
}

func TestFirstFailingRuleOnly(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepLocationBudget)

	// Blank location, non-blank budget: the location error must show, not
	// the budget one.
	w.SetBudget("AED 1,000,000")
	if w.Next() {
		t.Fatalf("expected forward transition blocked")
	}
	if w.Err() != "please enter a location" {
		t.Fatalf("expected location error, got %q", w.Err())
	}
	if w.Step() != StepLocationBudget {
		t.Fatalf("step must not change on validation failure")
	}

	// Editing any field clears the error without re-validating.
	w.SetLocation("Dub")
	if w.Err() != "" {
		t.Fatalf("expected error cleared on edit, got %q", w.Err())
	}

	w.SetLocation("Dubai Marina")
	before := w.Step()
	if !w.Next() {
		t.Fatalf("expected transition with both fields set: %s", w.Err())
	}
	if w.Step() != before+1 {
		t.Fatalf("step must increment by exactly one, got %v → %v", before, w.Step())
	}
}

func TestBlankBudgetError(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepLocationBudget)

	w.SetLocation("Dubai Marina")
	if w.Next() {
		t.Fatalf("expected forward transition blocked")
	}
	if w.Err() != "please enter your budget" {
		t.Fatalf("expected budget error, got %q", w.Err())
	}
}

func TestBackAlwaysAllowedAndClearsError(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepDetails)

	// Back works even when the fields behind it are now invalid.
	w.SetLocation("")
	if !w.Back() {
		t.Fatalf("expected back allowed")
	}
	if w.Step() != StepLocationBudget {
		t.Fatalf("expected LocationBudget, got %v", w.Step())
	}
	if w.Err() != "" {
		t.Fatalf("expected no error after back")
	}

	// With an error displayed, back still fires and clears it.
	if w.Next() {
		t.Fatalf("expected blank location rejected")
	}
	if w.Err() == "" {
		t.Fatalf("expected displayed error")
	}
	if !w.Back() {
		t.Fatalf("expected back allowed with error displayed")
	}
	if w.Err() != "" {
		t.Fatalf("expected error cleared by back")
	}

	// Back is unavailable from the first step.
	if w.Back() {
		t.Fatalf("expected back blocked on the first step")
	}
}

func TestDetailsStepAlwaysPasses(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepDetails)

	if !w.Next() {
		t.Fatalf("details must always pass: %s", w.Err())
	}
	if w.Step() != StepReview {
		t.Fatalf("expected review, got %v", w.Step())
	}
}

func TestSubmitWithoutUser(t *testing.T) {
	w := New(&fakeRepo{}, &fakeUsers{}, time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepReview)

	_, err := w.Submit(context.Background())
	var stateErr *apperr.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if w.Step() != StepReview {
		t.Fatalf("wizard must stay on review")
	}
	if w.Err() == "" {
		t.Fatalf("expected inline error")
	}
}

func TestSubmitSuccessIsTerminal(t *testing.T) {
	repo := &fakeRepo{}
	w := New(repo, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepReview)

	created, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.Status != estate.StatusPending {
		t.Fatalf("expected pending status, got %q", created.Status)
	}
	if repo.userIDs[0] != "u-1" {
		t.Fatalf("expected owner id passed through, got %q", repo.userIDs[0])
	}
	if w.Step() != StepSubmitted {
		t.Fatalf("expected submitted, got %v", w.Step())
	}
	if w.Draft() != (estate.Draft{}) {
		t.Fatalf("expected draft discarded")
	}

	// Submitted is terminal: no forward, no back, no resubmit.
	if w.Next() || w.Back() {
		t.Fatalf("expected no transitions from submitted")
	}
	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatalf("expected resubmit rejected")
	}
}

func TestSubmitFailureStaysOnReview(t *testing.T) {
	repo := &fakeRepo{err: &apperr.RequestError{StatusCode: 500, Message: "server exploded"}}
	w := New(repo, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepReview)

	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatalf("expected submit error")
	}
	if w.Step() != StepReview {
		t.Fatalf("expected review, got %v", w.Step())
	}
	if w.Err() != "server exploded" {
		t.Fatalf("expected inline error, got %q", w.Err())
	}
	if w.Busy() {
		t.Fatalf("expected busy cleared")
	}

	// A fresh user-initiated retry succeeds.
	repo.err = nil
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestDraftKeepsBlankOptionalsOut(t *testing.T) {
	repo := &fakeRepo{}
	w := New(repo, loggedIn(), time.Millisecond)
	defer w.Close()
	advanceTo(t, w, StepReview)

	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	draft := repo.created[0]
	if draft.Bedrooms != "" || draft.Bathrooms != "" || draft.Surface != "" || draft.District != "" || draft.AdditionalRequirements != "" {
		t.Fatalf("expected optional fields blank, got %+v", draft)
	}
}

func TestProgress(t *testing.T) {
	w := New(&fakeRepo{}, loggedIn(), time.Millisecond)
	defer w.Close()

	if w.Progress() != 0 {
		t.Fatalf("expected 0 progress, got %v", w.Progress())
	}
	advanceTo(t, w, StepReview)
	if w.Progress() != 1 {
		t.Fatalf("expected full progress at review, got %v", w.Progress())
	}
	if _, err := w.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// The indicator does not advance past review during Submitted.
	if w.Progress() != 1 {
		t.Fatalf("expected progress clamped at 1, got %v", w.Progress())
	}
}
