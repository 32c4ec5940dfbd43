// Package common defines sentinel errors shared by the serialgate server
// layers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps any failure of the durable store. It is fatal
	// for the current interaction and is never retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Subscription proof errors. Both are reported to the user as an invalid
	// handle; they differ only in how they are logged.
	ErrValidationRejected = errors.New("validation rejected")
	ErrExternalCallFailed = errors.New("external call failed")

	// ErrLogIO marks audit log file failures inside the checkpoint pipeline.
	ErrLogIO = errors.New("log io failure")

	// Config bundle errors.
	ErrBundleDecrypt = errors.New("bundle decrypt failed")
	ErrBundleFormat  = errors.New("invalid bundle format")
)
