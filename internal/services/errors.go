package services

import (
	"fmt"

	"github.com/desertthunder/bilisync/internal/shared"
)

// ErrorKind classifies a remote API failure.
type ErrorKind int

const (
	KindNetwork  ErrorKind = iota // transport failure
	KindResponse                  // non-2xx status, or an envelope with a non-zero code
	KindDecode                    // malformed payload
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindResponse:
		return "response"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is returned by every [Bilibili] method on failure.
//
// It matches [shared.ErrAPIRequest] with [errors.Is] and unwraps to the underlying cause.
type APIError struct {
	Kind     ErrorKind
	Endpoint string
	Code     int // HTTP status or envelope code, set for KindResponse
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindResponse:
		return fmt.Sprintf("%s: %s %s: code %d: %s", shared.ErrAPIRequest, e.Kind, e.Endpoint, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %v", shared.ErrAPIRequest, e.Kind, e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s: %s %s: %s", shared.ErrAPIRequest, e.Kind, e.Endpoint, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == shared.ErrAPIRequest
}
