package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aqarlink/aqarlink/internal/apperr"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestAttachesBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, staticToken("abc"))
	if err := client.Get(context.Background(), "/ping", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestOmitsAuthorizationWithoutToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, staticToken(""))
	if err := client.Get(context.Background(), "/ping", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no Authorization header, got %q", got)
	}
}

func TestErrorFieldExtracted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid verification code"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	err := client.Post(context.Background(), "/api/auth/verify", map[string]string{}, nil)
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", reqErr.StatusCode)
	}
	if reqErr.Message != "invalid verification code" {
		t.Fatalf("expected server message, got %q", reqErr.Message)
	}
}

func TestErrorFallbackOnUnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>boom</html>`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	err := client.Get(context.Background(), "/anything", nil)
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Message != "HTTP error: status 500" {
		t.Fatalf("expected generic message, got %q", reqErr.Message)
	}
}

func TestDecodesSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"sent"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	var out struct {
		Status string `json:"status"`
	}
	if err := client.Post(context.Background(), "/api/auth/send-verification", map[string]string{"phoneNumber": "+971501234567"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out.Status != "sent" {
		t.Fatalf("expected decoded status, got %q", out.Status)
	}
}
