// Package soundcloud scrapes public SoundCloud pages for data the observed
// action reports do not carry.
package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var errNotFound = errors.New("page not found")

// Resolver maps a track permalink ("artist/track-name") to the permalink of
// the creator who uploaded it.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

func NewResolver(baseURL string, timeoutMS, maxRetries int, log *zap.Logger) *Resolver {
	return &Resolver{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		log:        log,
	}
}

// ResolveTrackCreator returns "" without a request for bare numeric ids;
// their public page cannot be addressed without the API.
func (r *Resolver) ResolveTrackCreator(ctx context.Context, trackID string) (string, error) {
	path := strings.Trim(trackID, "/")
	if !strings.Contains(path, "/") {
		return "", nil
	}

	doc, err := r.fetch(ctx, r.baseURL+"/"+path)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creatorFromDocument(doc), nil
}

func (r *Resolver) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * r.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			lastErr = err
			r.log.Debug("soundcloud fetch failed", zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, errNotFound
		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return doc, nil
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", pageURL, r.maxRetries+1, lastErr)
}

// creatorFromDocument reads the soundcloud:user meta tag, falling back to the
// first path segment of og:url.
func creatorFromDocument(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="soundcloud:user"]`).First().Attr("content"); ok {
		if id := lastSegment(v); id != "" {
			return id
		}
	}
	if v, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
		u, err := url.Parse(strings.TrimSpace(v))
		if err == nil {
			if first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/"); first != "" {
				return first
			}
		}
	}
	return ""
}

func lastSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = strings.Trim(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}
