// Package records is the client of the remote records API that owns user
// entries and sticker tags.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

const maxDetailBytes = 512

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues one request per call and never retries.
type Client struct {
	client  HTTPClient
	baseURL *url.URL
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// New creates a Client rooted at baseURL. breaker may be nil.
func New(client HTTPClient, baseURL string, breaker *apperrors.CircuitBreaker, log *slog.Logger) (*Client, error) {
	if client == nil {
		return nil, errors.New("records: http client is nil")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("records: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("records: base url %q must be absolute", baseURL)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client:  client,
		baseURL: base,
		breaker: breaker,
		log:     log,
	}, nil
}

// Ping checks that the API answers. Only transport failures and 5xx count.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, "ping", http.MethodGet, url.Values{"user": {"0"}}, nil, nil, "records", "user-entries")
	if err == nil {
		return nil
	}
	switch KindOf(err) {
	case KindNotFound, KindValidation:
		return nil
	default:
		return err
	}
}

func (c *Client) endpoint(segments ...string) *url.URL {
	u := c.baseURL.JoinPath(segments...)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method string, query url.Values, body, out any, segments ...string) error {
	start := time.Now()

	call := func() error {
		return c.roundTrip(ctx, op, method, query, body, out, segments)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.CallCounting(call, countsAgainstBreaker)
		if errors.Is(err, apperrors.ErrCircuitOpen) || errors.Is(err, apperrors.ErrHalfOpenTooManyRequests) {
			err = &Error{Kind: KindUnknown, Op: op, Err: err}
		}
	} else {
		err = call()
	}

	result := "ok"
	if err != nil {
		result = KindOf(err).String()
		c.log.Debug("records call failed",
			slog.String("op", op),
			slog.String("method", method),
			slog.String("kind", result),
			slog.Any("error", err),
		)
	}
	metrics.RecordRecordsCall(op, result, time.Since(start))

	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method string, query url.Values, body, out any, segments []string) error {
	u := c.endpoint(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
		return &Error{
			Kind:   kindForStatus(resp.StatusCode),
			Op:     op,
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(detail)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnknown, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// countsAgainstBreaker keeps caller mistakes from opening the breaker.
func countsAgainstBreaker(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindValidation:
		return false
	default:
		return !errors.Is(err, context.Canceled)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
