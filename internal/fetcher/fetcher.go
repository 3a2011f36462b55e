// Package fetcher downloads documents and upstream feeds over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sethvargo/go-retry"

	"feedkeeper/internal/model"
)

const (
	userAgent    = "feedkeeper/1.0"
	maxBodyBytes = 10 * 1024 * 1024
	maxRetries   = 3
)

// ErrStatus is wrapped by errors for non-200 responses.
var ErrStatus = errors.New("unexpected status")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads documents with retries on transient failures.
type Fetcher struct {
	client  HTTPClient
	backoff func() retry.Backoff
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBackoff replaces the retry policy. The function is called once per
// request so stateful backoffs are not shared.
func WithBackoff(b func() retry.Backoff) Option {
	return func(f *Fetcher) { f.backoff = b }
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: client,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(time.Second))
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Get downloads url and returns the body. Network errors, 429 and 5xx
// responses are retried.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, f.backoff(), func(ctx context.Context) error {
		b, err := f.get(ctx, url, header)
		if err != nil {
			var te transientError
			if errors.As(err, &te) {
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transientError{fmt.Errorf("http get: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, url)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, transientError{err}
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transientError{fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Fetch downloads and parses an RSS, Atom or JSON feed from url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	body, err := f.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Items converts parsed feed entries into feed items attributed to source.
// Missing descriptions fall back to the entry content, missing publication
// dates to the update date.
func Items(feed *gofeed.Feed, source string) []model.FeedItem {
	items := make([]model.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		item := model.FeedItem{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PublishedAt: it.Published,
			GUID:        it.GUID,
			Source:      source,
			Categories:  it.Categories,
		}
		if item.Description == "" {
			item.Description = it.Content
		}
		if item.PublishedAt == "" {
			item.PublishedAt = it.Updated
		}
		items = append(items, item)
	}
	return items
}

type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }
