package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Sync error kinds. Match them with errors.Is.
	ErrLocalWrite         = errors.New("local write failed")
	ErrRemoteWrite        = errors.New("remote write failed")
	ErrRemoteSubscription = errors.New("remote subscription failed")
	ErrAuth               = errors.New("identity resolution failed")

	// ErrRemoteUnavailable marks transport failures: the remote store could
	// not be reached or dropped the connection. Such failures are transient.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)

// SyncError annotates a failure with its kind and the operation that hit it.
type SyncError struct {
	Kind error
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *SyncError) Is(target error) bool {
	return target == e.Kind
}

func LocalWriteError(op string, err error) error {
	return &SyncError{Kind: ErrLocalWrite, Op: op, Err: err}
}

func RemoteWriteError(op string, err error) error {
	return &SyncError{Kind: ErrRemoteWrite, Op: op, Err: err}
}

func RemoteSubscriptionError(op string, err error) error {
	return &SyncError{Kind: ErrRemoteSubscription, Op: op, Err: err}
}

func AuthError(op string, err error) error {
	return &SyncError{Kind: ErrAuth, Op: op, Err: err}
}
