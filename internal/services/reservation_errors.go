package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies reservation errors for the transport layer.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindRule       ErrorKind = "rule"
	KindNotFound   ErrorKind = "not_found"
	KindStore      ErrorKind = "store"
)

// ReservationError is returned by ReservationService. Two errors match under errors.Is
// when their Kind and Code are equal, so the package-level values act as sentinels.
type ReservationError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ReservationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ReservationError) Unwrap() error { return e.Err }

func (e *ReservationError) Is(target error) bool {
	t, ok := target.(*ReservationError)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

func (e *ReservationError) withCause(err error) *ReservationError {
	c := *e
	c.Err = err
	return &c
}

func (e *ReservationError) withDetail(format string, args ...interface{}) *ReservationError {
	c := *e
	c.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

// AsReservationError extracts the ReservationError carried by err, if any.
func AsReservationError(err error) (*ReservationError, bool) {
	var re *ReservationError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func newError(kind ErrorKind, code, message string) *ReservationError {
	return &ReservationError{Kind: kind, Code: code, Message: message}
}

// Validation errors: the caller sent malformed input.
var (
	ErrMissingField      = newError(KindValidation, "missing-field", "all fields are required")
	ErrInvalidClientID   = newError(KindValidation, "invalid-client-id", "invalid client id")
	ErrInvalidTimeFormat = newError(KindValidation, "invalid-time-format", "time must be H:MM or HH:MM")
	ErrInvalidDateFormat = newError(KindValidation, "invalid-date-format", "date must be YYYY-MM-DD")
	ErrInvalidStatus     = newError(KindValidation, "invalid-status", "invalid reservation status")
)

// Rule violations: the request is well formed but the schedule rejects it.
var (
	ErrTooSoon           = newError(KindRule, "too-soon", "reservations are only accepted from next calendar week onward")
	ErrOutOfHours        = newError(KindRule, "out-of-hours", "service hours are from 12:00 to 22:00")
	ErrSlotTaken         = newError(KindRule, "slot-taken", "this time slot is already booked for another service")
	ErrAdjacentSlotTaken = newError(KindRule, "adjacent-slot-taken", "this service already has a reservation in an adjacent slot")
	ErrDayFull           = newError(KindRule, "day-full", "no time slots available for this day")
)

var (
	ErrReservationNotFound = newError(KindNotFound, "reservation-not-found", "reservation not found")
	ErrClientNotFound      = newError(KindNotFound, "client-not-found", "client not found")
	ErrReservationStore    = newError(KindStore, "store-failure", "reservation store failure")
)
