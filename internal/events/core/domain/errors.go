package domain

import (
	"errors"
	"fmt"
)

var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports the first bad record of an event log.
// Line is 1-based; for database sources it is the row number.
type MalformedRecordError struct {
	Source string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}
