package services_test

import (
	"errors"
	"strings"
	"testing"

	"subflow/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNetwork, "namer", "guess", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"namer", "guess", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "subdb", "upload", "no marker", nil)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected nil marker to default to ErrNetwork, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network", services.Wrap(services.ErrNetwork, "subdb", "check", "", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "namer", "guess", "", nil), true},
		{"not found", services.Wrap(services.ErrNotFound, "namer", "guess", "", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "upload", "build", "", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsBlocking(t *testing.T) {
	if !services.IsBlocking(services.Wrap(services.ErrNotFound, "namer", "guess", "no match", nil)) {
		t.Fatal("expected identification miss to block upload-readiness")
	}
	if services.IsBlocking(services.Wrap(services.ErrIO, "mediainfo", "probe", "unreadable", nil)) {
		t.Fatal("expected metadata failure to degrade, not block")
	}
}
