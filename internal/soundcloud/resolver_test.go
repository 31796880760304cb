package soundcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

func TestCreatorFromDocument(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "soundcloud user meta",
			html: `<html><head><meta property="soundcloud:user" content="https://soundcloud.com/some-artist"></head></html>`,
			want: "some-artist",
		},
		{
			name: "og url fallback",
			html: `<html><head><meta property="og:url" content="https://soundcloud.com/other-artist/a-track"></head></html>`,
			want: "other-artist",
		},
		{
			name: "nothing",
			html: `<html><head><title>x</title></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			if got := creatorFromDocument(doc); got != tt.want {
				t.Errorf("creatorFromDocument() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveTrackCreator(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch r.URL.Path {
		case "/artist/flaky":
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`<meta property="soundcloud:user" content="https://soundcloud.com/artist">`))
		case "/artist/ok":
			_, _ = w.Write([]byte(`<meta property="soundcloud:user" content="https://soundcloud.com/artist">`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(srv.URL+"/", 1000, 2, zap.NewNop())
	r.backoff = time.Millisecond
	ctx := context.Background()

	got, err := r.ResolveTrackCreator(ctx, "artist/flaky")
	if err != nil || got != "artist" {
		t.Fatalf("flaky: got %q, %v", got, err)
	}

	got, err = r.ResolveTrackCreator(ctx, "/artist/ok/")
	if err != nil || got != "artist" {
		t.Fatalf("ok: got %q, %v", got, err)
	}

	got, err = r.ResolveTrackCreator(ctx, "artist/missing")
	if err != nil || got != "" {
		t.Fatalf("missing: got %q, %v", got, err)
	}

	before := calls.Load()
	got, err = r.ResolveTrackCreator(ctx, "123456")
	if err != nil || got != "" {
		t.Fatalf("numeric: got %q, %v", got, err)
	}
	if calls.Load() != before {
		t.Error("numeric id should not hit the network")
	}
}

func TestResolveTrackCreator_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, 1000, 1, zap.NewNop())
	r.backoff = time.Millisecond

	if _, err := r.ResolveTrackCreator(context.Background(), "a/b"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}
