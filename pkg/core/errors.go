package core

import (
	"errors"
	"fmt"
	"strings"
)

// SourceMismatchError is returned when an event reaches a consumer that is
// wired to a different upstream chart. Expected is empty when no consumer
// listens to the event's source at all; Known then lists the sources that
// have one.
type SourceMismatchError struct {
	Expected string
	Got      string
	Known    []string
}

func (e *SourceMismatchError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("event from unknown source %q (known sources: %s)", e.Got, strings.Join(e.Known, ", "))
	}
	return fmt.Sprintf("event from source %q delivered to consumer of %q", e.Got, e.Expected)
}

// IndexOutOfRangeError is returned when an event references a trace or a
// point that the emitting chart could not have drawn.
type IndexOutOfRangeError struct {
	Source string
	Curve  int
	Point  int
	// Limit is the number of declared traces when CurveMissing is set,
	// otherwise the number of points in the curve's subgroup.
	Limit        int
	CurveMissing bool
}

func (e *IndexOutOfRangeError) Error() string {
	if e.CurveMissing {
		return fmt.Sprintf("source %q: curve %d out of range (%d traces declared)", e.Source, e.Curve, e.Limit)
	}
	return fmt.Sprintf("source %q: point %d of curve %d out of range (subgroup has %d records)",
		e.Source, e.Point, e.Curve, e.Limit)
}

// UnknownFieldError is returned when a field name is not part of a schema.
type UnknownFieldError struct {
	Field     string
	Available []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q (available: %v)", e.Field, e.Available)
}

// IsContractViolation reports whether err signals a mismatch between chart
// configuration and interpreter logic, as opposed to an ordinary failure.
func IsContractViolation(err error) bool {
	var mismatch *SourceMismatchError
	var outOfRange *IndexOutOfRangeError
	return errors.As(err, &mismatch) || errors.As(err, &outOfRange)
}
