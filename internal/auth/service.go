package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/aqarlink/aqarlink/internal/api"
	"github.com/aqarlink/aqarlink/internal/apperr"
)

// phonePattern is deliberately permissive, not E.164-strict: optional
// leading +, 1-4 digit country code, common separators, up to 9 remaining
// digits.
var phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,9}$`)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// User is the client-side identity record. IsNewUser stays true until
// registration completes; such a user is never treated as authenticated.
type User struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
	IsNewUser   bool   `json:"isNewUser"`
}

// serverUser is the wire shape. The server names its identity field _id;
// the rename happens here at the boundary.
type serverUser struct {
	ID          string `json:"_id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
	IsNewUser   bool   `json:"isNewUser"`
}

func (u serverUser) toUser() User {
	return User{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		IsNewUser:   u.IsNewUser,
	}
}

type authResponse struct {
	User  serverUser `json:"user"`
	Token string     `json:"token"`
}

// Service owns the client's session: login, verification, registration and
// logout, backed by the API and the persisted session store.
type Service struct {
	api   *api.Client
	store Store

	mu      sync.Mutex
	current *User
}

// NewService builds the auth service over an API client and session store.
func NewService(client *api.Client, store Store) *Service {
	return &Service{api: client, store: store}
}

// ValidPhone reports whether the phone number passes the client-side
// format check.
func ValidPhone(phoneNumber string) bool {
	return phonePattern.MatchString(phoneNumber)
}

// SendVerificationCode asks the server to deliver a one-time code to the
// phone. The format check runs before any network call; on a rejected
// number exactly zero calls are issued. Local state is never mutated here.
func (s *Service) SendVerificationCode(ctx context.Context, phoneNumber string) error {
	if !ValidPhone(phoneNumber) {
		return &apperr.ValidationError{Field: "phoneNumber", Message: "please enter a valid phone number"}
	}
	body := struct {
		PhoneNumber string `json:"phoneNumber"`
	}{PhoneNumber: phoneNumber}
	return s.api.Post(ctx, "/api/auth/send-verification", body, nil)
}

// VerifyCode exchanges phone+code for a user and token. On success both are
// persisted and the user becomes the current session user. A server
// rejection surfaces as AuthError carrying the server's message verbatim;
// the client does not guess whether the code was wrong or expired.
func (s *Service) VerifyCode(ctx context.Context, phoneNumber, code string) (User, error) {
	if !codePattern.MatchString(code) {
		return User{}, &apperr.ValidationError{Field: "code", Message: "please enter the 6-digit verification code"}
	}

	body := struct {
		PhoneNumber string `json:"phoneNumber"`
		Code        string `json:"code"`
	}{PhoneNumber: phoneNumber, Code: code}

	var resp authResponse
	if err := s.api.Post(ctx, "/api/auth/verify", body, &resp); err != nil {
		return User{}, asAuthError(err)
	}

	user := resp.User.toUser()
	if err := s.saveSession(user, resp.Token); err != nil {
		return User{}, err
	}
	return user, nil
}

// CompleteRegistration sets the display name of the current user, flipping
// IsNewUser off server-side. It requires a current user: without one it
// fails with StateError regardless of the name's validity.
func (s *Service) CompleteRegistration(ctx context.Context, name string) (User, error) {
	current := s.CurrentUser()
	if current == nil {
		return User{}, &apperr.StateError{Message: "no user logged in"}
	}

	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return User{}, &apperr.ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}

	body := struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}{UserID: current.ID, Name: name}

	var resp authResponse
	if err := s.api.Post(ctx, "/api/auth/complete-registration", body, &resp); err != nil {
		return User{}, err
	}

	user := resp.User.toUser()
	if err := s.saveSession(user, resp.Token); err != nil {
		return User{}, err
	}
	return user, nil
}

// CurrentUser returns the in-memory session user, hydrating once from
// persisted storage when the cache is empty. Returns nil when neither
// source has data.
func (s *Service) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		raw, ok := s.store.Get(keyCurrentUser)
		if !ok {
			return nil
		}
		var user User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil
		}
		s.current = &user
	}
	copied := *s.current
	return &copied
}

// CachedUser returns the last user snapshot seen for a phone number. This
// is a best-effort cache for fast resume, never authoritative.
func (s *Service) CachedUser(phoneNumber string) *User {
	raw, ok := s.store.Get(userKeyPrefix + phoneNumber)
	if !ok {
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

// Logout clears the in-memory cache and every persisted session artifact.
// Calling it when already logged out is a no-op.
func (s *Service) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.store.Clear()
}

// Token returns the persisted bearer token, if any.
func (s *Service) Token() string {
	value, _ := s.store.Get(keyToken)
	return value
}

func (s *Service) saveSession(user User, token string) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.store.Set(keyCurrentUser, string(payload)); err != nil {
		return err
	}
	if err := s.store.Set(userKeyPrefix+user.PhoneNumber, string(payload)); err != nil {
		return err
	}
	if err := s.store.Set(keyToken, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	return nil
}

// asAuthError converts a 4xx rejection of credentials into AuthError,
// keeping the server's message. Transport and server faults pass through.
func asAuthError(err error) error {
	var reqErr *apperr.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode >= http.StatusBadRequest && reqErr.StatusCode < http.StatusInternalServerError {
		return &apperr.AuthError{Message: reqErr.Message}
	}
	return err
}
