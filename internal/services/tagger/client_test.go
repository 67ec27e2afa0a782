package tagger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"subflow/internal/services"
)

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filename"); got != "Movie.2020.1080p.WEB-DL-GRP.mkv" {
			t.Errorf("filename = %q", got)
		}
		_, _ = w.Write([]byte(`{"group":"GRP","source":"web","quality":"h264","resolution":"1080p"}`))
	}))
	defer server.Close()

	tags, err := NewClient(server.URL).Extract(context.Background(), "Movie.2020.1080p.WEB-DL-GRP.mkv")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if tags.Group != "GRP" || tags.Source != "web" || tags.Resolution != "1080p" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestExtractServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Extract(context.Background(), "anything.mkv")
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if services.IsBlocking(err) {
		t.Fatal("tag extraction failures must not block upload readiness")
	}
}

func TestExtractEmptyFilename(t *testing.T) {
	_, err := NewClient("http://localhost:0").Extract(context.Background(), " ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
