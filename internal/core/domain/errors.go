package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownRoute is returned when a route identifier does not resolve to a
// track path.
var ErrUnknownRoute = errors.New("unknown route")

// IOError wraps a failure to retrieve raw track content.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("fetch track %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseErrorKind classifies track parsing failures.
type ParseErrorKind int

const (
	// Malformed content could not be read as a track file.
	Malformed ParseErrorKind = iota + 1
	// Empty content parsed but held no track points.
	Empty
)

func (k ParseErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// ParseError reports why raw content did not yield a track.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse track: " + e.Kind.String()
	}
	return fmt.Sprintf("parse track: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches another *ParseError of the same kind, so callers can write
// errors.Is(err, &domain.ParseError{Kind: domain.Empty}).
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

// EnvironmentError reports that the rendering surface cannot be acquired.
type EnvironmentError struct {
	Reason string
	Err    error
}

func (e *EnvironmentError) Error() string {
	if e.Err == nil {
		return "render environment: " + e.Reason
	}
	return fmt.Sprintf("render environment: %s: %v", e.Reason, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }
