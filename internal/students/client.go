// Package students reads the remote student-records endpoint and derives the
// dashboard view from it.
package students

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
	"github.com/AlwanWZ/shophub/pkg/httpclient"
)

const (
	serviceName = "student records"
	maxBody     = 4 << 20
)

// errNotJSON is returned when the upstream body does not parse as JSON.
var errNotJSON = errors.New("upstream body is not valid JSON")

// Getter performs a GET against an upstream.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client fetches student records. It never caches responses.
type Client struct {
	http   Getter
	url    string
	logger *slog.Logger
}

// NewClient creates a client for the records endpoint at url.
func NewClient(h Getter, url string, logger *slog.Logger) *Client {
	return &Client{http: h, url: url, logger: logger}
}

// Raw returns the upstream body unchanged. Any body that parses as JSON is
// accepted whatever the status code. Transport failures and non-JSON bodies
// are errors.
func (c *Client) Raw(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.http.Get(ctx, c.url)
	if err != nil {
		// The breaker reports 5xx as a failure but keeps the body.
		var se *httpclient.StatusError
		if errors.As(err, &se) && json.Valid([]byte(se.Detail)) {
			c.logger.WarnContext(ctx, "relaying student records from failing upstream",
				slog.Int("status", se.StatusCode),
			)
			return json.RawMessage(se.Detail), nil
		}
		return nil, apperrors.Upstream(serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, apperrors.Upstream(serviceName, fmt.Errorf("read body: %w", err))
	}
	if !json.Valid(body) {
		return nil, apperrors.Upstream(serviceName, errNotJSON)
	}

	c.logger.DebugContext(ctx, "student records fetched",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
	)
	return body, nil
}

// envelope is the upstream response shape.
type envelope struct {
	Data []Student `json:"data"`
}

// List fetches and decodes the records.
func (c *Client) List(ctx context.Context) ([]Student, error) {
	body, err := c.Raw(ctx)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Upstream(serviceName, fmt.Errorf("decode records: %w", err))
	}
	if env.Data == nil {
		env.Data = []Student{}
	}
	return env.Data, nil
}
