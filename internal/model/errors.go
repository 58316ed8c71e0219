package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every FetchError caused by a transport failure
	ErrNetwork = errors.New("network failure")
	// ErrStatus matches every FetchError caused by a non-2xx response
	ErrStatus = errors.New("unexpected response status")

	ErrMovieNotFound  = errors.New("movie not found")
	ErrUnknownTab     = errors.New("unknown category tab")
	ErrUnknownSortKey = errors.New("unknown sort key")
	ErrUnknownView    = errors.New("unknown view")
)

// FetchErrorKind tags the origin of a remote failure
type FetchErrorKind int

const (
	FetchErrorNetwork FetchErrorKind = iota
	FetchErrorStatus
	FetchErrorDecode
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchErrorNetwork:
		return "network"
	case FetchErrorStatus:
		return "status"
	case FetchErrorDecode:
		return "decode"
	}
	return "unknown"
}

// FetchError is returned by the catalog when a remote request fails
type FetchError struct {
	Kind       FetchErrorKind
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchErrorStatus {
		if e.Message != "" {
			return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	if e.Kind == FetchErrorDecode {
		return fmt.Sprintf("%s: malformed payload: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a FetchError against ErrNetwork or ErrStatus
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == FetchErrorNetwork
	case ErrStatus:
		return e.Kind == FetchErrorStatus
	case ErrMovieNotFound:
		return e.Kind == FetchErrorStatus && e.StatusCode == 404
	}
	return false
}
