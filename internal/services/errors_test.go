package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrUpstream, "separation", "separate", "model call failed", base)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "library", "create", "", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("nil marker should default to upstream, got %v", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Wrap(ErrValidation, "library", "create", "no stems", nil), http.StatusBadRequest},
		{"not found", Wrap(ErrNotFound, "library", "get", "unknown session", nil), http.StatusNotFound},
		{"upstream", Wrap(ErrUpstream, "separation", "convert", "ffmpeg failed", nil), http.StatusInternalServerError},
		{"unavailable", Wrap(ErrUnavailable, "server", "separate", "busy", nil), http.StatusServiceUnavailable},
		{"unclassified", errors.New("surprise"), http.StatusInternalServerError},
		{"double wrapped", fmt.Errorf("outer: %w", Wrap(ErrValidation, "", "", "bad", nil)), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%s: HTTPStatus = %d, want %d", tc.name, got, tc.want)
		}
	}
}
