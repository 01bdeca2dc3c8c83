package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

const maxErrorBody = 64 << 10

// StatusError reports a non-success upstream response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Detail)
}

// upstreamErrorBody covers both the {"error":{...}} envelope and the flat
// {"message":...} shape some upstreams return.
type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// returns an apperrors.Upstream error for serviceName wrapping a *StatusError.
// Structured messages are extracted; otherwise the raw body is kept.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Upstream(serviceName, fmt.Errorf("status %d (read body: %w)", resp.StatusCode, err))
	}

	detail := strings.TrimSpace(string(body))
	var parsed upstreamErrorBody
	if json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.Error != nil && parsed.Error.Message != "":
			detail = parsed.Error.Message
		case parsed.Message != "":
			detail = parsed.Message
		}
	}

	return apperrors.Upstream(serviceName, &StatusError{StatusCode: resp.StatusCode, Detail: detail})
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
