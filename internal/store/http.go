package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default client tuning. Attempt timeout bounds a single HTTP round trip;
// retries apply jittered exponential backoff on top of it.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// ClientConfig configures the HTTP remote store client.
type ClientConfig struct {
	BaseURL    string        // e.g. https://api.example.org/v1
	Token      string        // optional bearer token
	Timeout    time.Duration // per-attempt timeout (DefaultTimeout if zero)
	MaxRetries uint64        // retry attempts after the first (DefaultMaxRetries if zero)
}

// Client is the HTTP implementation of Remote. Transport errors and 5xx
// responses are retried with jittered exponential backoff; 4xx responses are
// permanent. A 404 surfaces as ErrNotFound.
type Client[T Document] struct {
	base       *url.URL
	token      string
	hc         *http.Client
	maxRetries uint64
}

// NewClient builds a Client from cfg.
func NewClient[T Document](cfg ClientConfig) (*Client[T], error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = DefaultMaxRetries
	}
	return &Client[T]{
		base:       base,
		token:      cfg.Token,
		hc:         &http.Client{Timeout: timeout},
		maxRetries: retries,
	}, nil
}

func (c *Client[T]) Upsert(ctx context.Context, doc T) error {
	return c.do(ctx, http.MethodPut, "/drafts/"+url.PathEscape(doc.DocumentID()), doc, nil)
}

func (c *Client[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, "/drafts/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client[T]) Patch(ctx context.Context, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/drafts/"+url.PathEscape(id), fields, nil)
}

func (c *Client[T]) InsertMany(ctx context.Context, collection string, items []map[string]any) error {
	body := map[string]any{"items": items}
	return c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(collection)+"/bulk", body, nil)
}

// do runs one request with retries. The request body is re-marshaled per
// attempt so retries never reuse a drained reader.
func (c *Client[T]) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := c.base.JoinPath(path).String()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	attempt := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err // transport failure, retryable
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("http %d: %s", resp.StatusCode, respBody)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, respBody))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}

	// NewExponentialBackOff applies randomized jitter to each interval.
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(attempt, bo)
}
