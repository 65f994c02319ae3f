package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind classifies a provider failure for retry decisions.
type Kind int

const (
	KindUnavailable Kind = iota
	KindRateLimit
	KindInvalidResponse
	KindTruncated
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	case KindAuth:
		return "unauthorized"
	default:
		return "unavailable"
	}
}

// Error is returned by every provider.
type Error struct {
	Kind       Kind
	Provider   string
	RetryAfter time.Duration
	// Content is the raw reply for KindInvalidResponse and KindTruncated.
	Content json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm %s: %s", e.Provider, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so a bare &Error{Kind: k}
// works as a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err and whether err is an *Error at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// classifyStatus maps an HTTP status from a vendor SDK onto an *Error.
func classifyStatus(provider string, status int, err error) error {
	e := &Error{Kind: KindUnavailable, Provider: provider, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
		return errors.WithHint(e, "check the "+provider+" API key")
	}
	return e
}

func invalid(provider string, content json.RawMessage, err error) error {
	return &Error{Kind: KindInvalidResponse, Provider: provider, Content: content, Err: err}
}
