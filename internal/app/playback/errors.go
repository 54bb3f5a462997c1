package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/domain/track"
)

// Errors
var (
	ErrClosed  = errors.New("player is closed")
	ErrNoAudio = errors.New("track has no playable audio")
)

// ErrorKind classifies failures reported through Error statuses.
type ErrorKind int

const (
	ErrorTransport ErrorKind = iota // Catalog request failed
	ErrorDecode                     // Locator could not be opened or decoded
	ErrorDevice                     // Output device failed
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorTransport:
		return "transport"
	case ErrorDecode:
		return "decode"
	case ErrorDevice:
		return "device"
	default:
		return "unknown"
	}
}

// ErrorInfo describes a failure. Track is set for per-track failures.
type ErrorInfo struct {
	Kind  ErrorKind
	Track *track.Track
	Fatal bool
	Err   error
}

func newErrorInfo(kind ErrorKind, err error, t *track.Track) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Track: t, Err: err}
}

// Error implements error.
func (e *ErrorInfo) Error() string {
	if e.Track != nil {
		return fmt.Sprintf("%s error on %q: %v", e.Kind, e.Track.Title(), e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrorInfo) Unwrap() error {
	return e.Err
}
