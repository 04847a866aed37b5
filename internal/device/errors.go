package device

import (
	"context"
	"errors"
	"fmt"

	"homecore/internal/models"
)

// Kind separates failures worth retrying from failures that never succeed
type Kind int

const (
	Transient Kind = iota + 1
	Permanent
)

// Reason is the specific cause of a device failure
type Reason string

const (
	ReasonUnreachable  Reason = "unreachable"
	ReasonTimeout      Reason = "timeout"
	ReasonTransport    Reason = "transport"
	ReasonOffline      Reason = "offline"
	ReasonUnsupported  Reason = "unsupported_characteristic"
	ReasonUnauthorized Reason = "authorization_denied"
	ReasonInvalid      Reason = "invalid_input"
)

// Kind maps a reason onto the retry taxonomy
func (r Reason) Kind() Kind {
	switch r {
	case ReasonUnsupported, ReasonUnauthorized, ReasonInvalid:
		return Permanent
	}
	return Transient
}

// Connectivity reports whether the reason means the device or hub could not be reached
func (r Reason) Connectivity() bool {
	switch r {
	case ReasonUnreachable, ReasonTimeout, ReasonTransport, ReasonOffline:
		return true
	}
	return false
}

// Error is a classified failure talking to a device
type Error struct {
	Reason         Reason
	Target         string
	Characteristic string
	Err            error
}

// NewError wraps err with a reason and the device or scene it concerns
func NewError(reason Reason, target string, err error) *Error {
	return &Error{Reason: reason, Target: target, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Target, e.Reason)
	if e.Characteristic != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Target, e.Reason, e.Characteristic)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the failure reason from err. Unclassified errors report "".
func ReasonOf(err error) Reason {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, models.ErrInvalidCommand), errors.Is(err, ErrNotFound):
		return ReasonInvalid
	}
	return ""
}

// IsPermanent reports whether retrying err can never succeed
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return ReasonOf(err).Kind() == Permanent
}

// IsConnectivity reports whether err was caused by the device or hub being unreachable
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	return ReasonOf(err).Connectivity()
}
