package session

import (
	"context"
	"sync"

	"github.com/aqarlink/aqarlink/internal/auth"
)

// State is a snapshot of the client's belief about the current user. A
// user still flagged as new is present but not authenticated.
type State struct {
	User            *auth.User
	IsAuthenticated bool
	IsLoading       bool
}

// Manager owns the process-wide session state. It is the single writer:
// consumers read snapshots or subscribe to changes, they never mutate.
type Manager struct {
	svc *auth.Service

	mu        sync.RWMutex
	user      *auth.User
	isLoading bool
	nextID    int
	listeners map[int]func(State)
}

// NewManager builds a manager in the loading state. Call Init to hydrate
// from the persisted session; consumers must respect IsLoading until then.
func NewManager(svc *auth.Service) *Manager {
	return &Manager{
		svc:       svc,
		isLoading: true,
		listeners: make(map[int]func(State)),
	}
}

// Init hydrates the session from persisted storage. This is local-only,
// no network round trip, and flips IsLoading off whether or not a user
// was found.
func (m *Manager) Init() {
	user := m.svc.CurrentUser()
	m.mu.Lock()
	m.user = user
	m.isLoading = false
	m.mu.Unlock()
	m.notify()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	var user *auth.User
	if m.user != nil {
		copied := *m.user
		user = &copied
	}
	return State{
		User:            user,
		IsAuthenticated: user != nil && !user.IsNewUser,
		IsLoading:       m.isLoading,
	}
}

// Subscribe registers a listener invoked on every state change. The
// returned function removes the listener.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Login requests a verification code for the phone number. Session state
// is untouched; the server delivers the code out-of-band.
func (m *Manager) Login(ctx context.Context, phoneNumber string) error {
	return m.svc.SendVerificationCode(ctx, phoneNumber)
}

// VerifyCode exchanges phone+code for a session and publishes the new user.
func (m *Manager) VerifyCode(ctx context.Context, phoneNumber, code string) error {
	user, err := m.svc.VerifyCode(ctx, phoneNumber, code)
	if err != nil {
		return err
	}
	m.setUser(&user)
	return nil
}

// CompleteRegistration finishes onboarding and publishes the updated user.
func (m *Manager) CompleteRegistration(ctx context.Context, name string) error {
	user, err := m.svc.CompleteRegistration(ctx, name)
	if err != nil {
		return err
	}
	m.setUser(&user)
	return nil
}

// Logout clears the session everywhere and publishes the empty state.
func (m *Manager) Logout() {
	m.svc.Logout()
	m.setUser(nil)
}

func (m *Manager) setUser(user *auth.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.RLock()
	state := m.snapshotLocked()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(state)
	}
}
