package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlatform is returned by Save when the record names a platform
	// outside the fixed set. No file is written.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrNotFound is returned when a record path does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("malformed record")
	// ErrInvalidPath is returned for relative paths that escape the store.
	ErrInvalidPath = errors.New("invalid record path")
)

// ParseError describes a record file that is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
