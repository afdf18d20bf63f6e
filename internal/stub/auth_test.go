package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aqarlink/aqarlink/internal/config"
	"github.com/aqarlink/aqarlink/internal/logging"
	"github.com/aqarlink/aqarlink/internal/notification"
)

// captureNotifier records delivered messages so tests can read the code
// the stub generated.
type captureNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, message notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *captureNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		t.Fatalf("no notification delivered")
	}
	body := n.messages[len(n.messages)-1].Body
	code := strings.TrimPrefix(body, "Your verification code is ")
	if len(code) != 6 {
		t.Fatalf("unexpected notification body %q", body)
	}
	return code
}

func newTestServer(t *testing.T) (*fiber.App, *captureNotifier) {
	t.Helper()
	cfg, err := config.LoadServer()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	notifier := &captureNotifier{}
	srv := New(Deps{Cfg: cfg, Logger: logging.Discard(), Notifier: notifier})
	return srv.App(), notifier
}

func postJSON(t *testing.T, app *fiber.App, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	return doJSON(t, app, fiber.MethodPost, path, token, body)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	var decoded map[string]json.RawMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	}
	return resp, decoded
}

// verifyUser walks the full phone verification for a fresh phone number
// and returns the wire user and token.
func verifyUser(t *testing.T, app *fiber.App, notifier *captureNotifier, phone string) (userPayload, string) {
	t.Helper()
	resp, _ := postJSON(t, app, "/api/auth/send-verification", "", fiber.Map{"phoneNumber": phone})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send-verification: status %d", resp.StatusCode)
	}

	resp, body := postJSON(t, app, "/api/auth/verify", "", fiber.Map{"phoneNumber": phone, "code": notifier.lastCode(t)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status %d", resp.StatusCode)
	}
	var user userPayload
	if err := json.Unmarshal(body["user"], &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	var token string
	if err := json.Unmarshal(body["token"], &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return user, token
}

func TestSendVerificationRequiresPhone(t *testing.T) {
	app, _ := newTestServer(t)
	resp, body := postJSON(t, app, "/api/auth/send-verification", "", fiber.Map{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if _, ok := body["error"]; !ok {
		t.Fatalf("expected {error} body, got %v", body)
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	app, _ := newTestServer(t)
	postJSON(t, app, "/api/auth/send-verification", "", fiber.Map{"phoneNumber": "+971501234567"})

	resp, body := postJSON(t, app, "/api/auth/verify", "", fiber.Map{"phoneNumber": "+971501234567", "code": "000000"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var msg string
	json.Unmarshal(body["error"], &msg)
	if msg != "invalid verification code" {
		t.Fatalf("expected code rejection message, got %q", msg)
	}
}

func TestVerifyRejectsUnknownPhone(t *testing.T) {
	app, _ := newTestServer(t)
	resp, _ := postJSON(t, app, "/api/auth/verify", "", fiber.Map{"phoneNumber": "+971509999999", "code": "123456"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a pending code, got %d", resp.StatusCode)
	}
}

func TestVerificationCodeIsSingleUse(t *testing.T) {
	app, notifier := newTestServer(t)
	phone := "+971501234567"
	postJSON(t, app, "/api/auth/send-verification", "", fiber.Map{"phoneNumber": phone})
	code := notifier.lastCode(t)

	resp, _ := postJSON(t, app, "/api/auth/verify", "", fiber.Map{"phoneNumber": phone, "code": code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first verify: status %d", resp.StatusCode)
	}
	resp, _ = postJSON(t, app, "/api/auth/verify", "", fiber.Map{"phoneNumber": phone, "code": code})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected consumed code rejected, got %d", resp.StatusCode)
	}
}

func TestRegistrationLifecycle(t *testing.T) {
	app, notifier := newTestServer(t)

	user, _ := verifyUser(t, app, notifier, "+971501234567")
	if !user.IsNewUser {
		t.Fatalf("expected isNewUser=true on first verification")
	}
	if user.ID == "" {
		t.Fatalf("expected generated user id")
	}

	resp, body := postJSON(t, app, "/api/auth/complete-registration", "", fiber.Map{"userId": user.ID, "name": "Jane Doe"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete-registration: status %d", resp.StatusCode)
	}
	var updated userPayload
	json.Unmarshal(body["user"], &updated)
	if updated.IsNewUser {
		t.Fatalf("expected isNewUser=false after registration")
	}
	if updated.Name != "Jane Doe" {
		t.Fatalf("expected name set, got %q", updated.Name)
	}

	// Verifying again returns the registered user, not a fresh one.
	again, _ := verifyUser(t, app, notifier, "+971501234567")
	if again.ID != user.ID || again.IsNewUser {
		t.Fatalf("expected existing registered user, got %+v", again)
	}
}

func TestCompleteRegistrationValidation(t *testing.T) {
	app, notifier := newTestServer(t)
	user, _ := verifyUser(t, app, notifier, "+971501234567")

	resp, _ := postJSON(t, app, "/api/auth/complete-registration", "", fiber.Map{"userId": user.ID, "name": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short name, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, app, "/api/auth/complete-registration", "", fiber.Map{"userId": "nope", "name": "Jane Doe"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("dev-secret")
	token, err := mintToken("u-1", "+971501234567", secret, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := parseHS256(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims["sub"] != "u-1" {
		t.Fatalf("expected sub claim, got %v", claims["sub"])
	}

	if _, err := parseHS256(token, []byte("other-secret")); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	expired, err := mintToken("u-1", "+971501234567", secret, -time.Minute)
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	if _, err := parseHS256(expired, secret); err == nil {
		t.Fatalf("expected expired token rejected")
	}
}
