package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stemlab/internal/services"
)

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("status = %q", health.Status)
	}
}

func TestRequestCodeSendsEmail(t *testing.T) {
	var got RequestCodeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/request-code" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(OKResponse{OK: true})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.RequestCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if got.Email != "user@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusServiceUnavailable, services.ErrUnavailable},
		{http.StatusInternalServerError, services.ErrUpstream},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: "boom"})
		}))
		client, err := NewClient(server.URL)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = client.ListSessions(context.Background())
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v marker, got %v", tc.status, tc.marker, err)
		}
		if err == nil || !bytes.Contains([]byte(err.Error()), []byte("boom")) {
			t.Fatalf("status %d: detail missing from %v", tc.status, err)
		}
	}
}

func TestGetSessionEscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/library/abc%2F..%2Fdef" {
			t.Fatalf("path = %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: "Library item not found."})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.GetSession(context.Background(), "abc/../def"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDownloadBundle(t *testing.T) {
	payload := []byte("zip-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/library/deadbeef/bundle" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var buf bytes.Buffer
	n, err := client.DownloadBundle(context.Background(), "deadbeef", &buf)
	if err != nil {
		t.Fatalf("DownloadBundle: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("bundle = %q (%d bytes)", buf.String(), n)
	}
}

func TestSaveSessionRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SaveSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(SessionMetadata{
			ID:     "deadbeef",
			Title:  req.Title,
			Stems:  []string{"vocals"},
			Bundle: "/api/library/deadbeef/bundle",
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	meta, err := client.SaveSession(context.Background(), SaveSessionRequest{
		Title: "Take One",
		Stems: map[string]string{"vocals": "data:audio/wav;base64,AAAA"},
	})
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if meta.ID != "deadbeef" || meta.Title != "Take One" {
		t.Fatalf("metadata = %+v", meta)
	}
}
