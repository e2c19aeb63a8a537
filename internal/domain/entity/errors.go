package entity

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrPrinterUnavailable = errors.New("print subsystem unavailable")

	ErrMalformedReference = errors.New("malformed file reference")
	ErrInvalidPageRange   = errors.New("invalid page range")
	ErrInvalidCopies      = errors.New("invalid copies")
	ErrInvalidLayout      = errors.New("invalid pages per sheet")
	ErrInvalidColorMode   = errors.New("invalid color mode")
	ErrInvalidOrientation = errors.New("invalid orientation")

	ErrContentNotFound = errors.New("content not found")
	ErrDocumentLoad    = errors.New("document load error")
	ErrPrintRejected   = errors.New("print rejected")

	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PageRangeError names the offending token and the valid bound [1, Total].
type PageRangeError struct {
	Token string
	Total int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("invalid page range %q: valid pages are [1, %d]", e.Token, e.Total)
}

func (e *PageRangeError) Is(target error) bool {
	return target == ErrInvalidPageRange
}

// IsTransient reports whether err only delays the current tick instead of failing the job.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrPrinterUnavailable)
}
