package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindHTTP4xx    Kind = "http4xx"
	KindHTTP5xx    Kind = "http5xx"
)

// Error is the failure of a single fetch.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether a later attempt could succeed.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindHTTP5xx:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// IsKind reports whether err is a fetch Error of kind k.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

func statusError(rawURL string, code int) *Error {
	k := KindHTTP4xx
	if code >= 500 {
		k = KindHTTP5xx
	}
	return &Error{Kind: k, URL: rawURL, StatusCode: code}
}
