package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Detail carries the server's "detail" message when it sent one.
	Detail string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return e
	}
	var body struct {
		Detail any `json:"detail"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &body); err != nil {
		e.Detail = strings.TrimSpace(string(data))
		return e
	}
	switch d := body.Detail.(type) {
	case nil:
	case string:
		e.Detail = d
	default:
		if raw, err := sonic.ConfigStd.Marshal(d); err == nil {
			e.Detail = string(raw)
		}
	}
	return e
}
