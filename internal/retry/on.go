// Package retry provides an http.RoundTripper that retries failed requests
// according to a condition set and a backoff strategy.
package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// On selects which responses and transport errors are retried.
type On struct {
	serverError    bool
	gatewayError   bool
	connectFailure bool
	conflict       bool
	statusCodes    []int
}

// DefaultOn retries gateway errors, 409 and temporary connection failures.
func DefaultOn() *On {
	return &On{gatewayError: true, connectFailure: true, conflict: true}
}

// ParseOn builds an On from a comma separated list such as
// "5xx,gateway-error,connect-failure,retriable-4xx,429".
func ParseOn(s string) (*On, error) {
	o := &On{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
		case "5xx":
			o.serverError = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.conflict = true
		default:
			code, err := strconv.Atoi(part)
			if err != nil {
				return nil, xerrors.Errorf("invalid retry condition %q: %w", part, err)
			}
			o.statusCodes = append(o.statusCodes, code)
		}
	}
	return o, nil
}

// Response reports whether resp should be retried.
func (o *On) Response(resp *http.Response) bool {
	code := resp.StatusCode
	switch {
	case o.serverError && code >= 500 && code < 600:
		return true
	case o.gatewayError && code >= 502 && code <= 504:
		return true
	case o.conflict && code == http.StatusConflict:
		return true
	}
	for _, c := range o.statusCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Error reports whether a transport error should be retried.
func (o *On) Error(err error) bool {
	if !o.connectFailure && !o.serverError {
		return false
	}
	type temporary interface{ Temporary() bool }
	var t temporary
	return (errors.As(err, &t) && t.Temporary()) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
