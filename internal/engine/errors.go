package engine

import (
	"errors"
	"fmt"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/instance"
)

// SyncError is returned by every engine operation.
//
// The wrapped Err keeps the lower-level sentinel (basis.ErrDegenerate,
// scene.ErrLocked, ...) reachable through errors.Is.
type SyncError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier is the logical identifier involved, if known.
	Identifier string

	// Node is the path of the offending node, if known.
	Node string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes sync errors.
type ErrorCode string

const (
	// ErrCodeSelection: the selection count or kind does not match the
	// operation's precondition.
	ErrCodeSelection ErrorCode = "SELECTION"

	// ErrCodeIdentity: an identifier is missing, already canonical, or does
	// not resolve to a canonical entity.
	ErrCodeIdentity ErrorCode = "IDENTITY"

	// ErrCodeConsistency: an assumed invariant (intact basis frame, applied
	// pose) was found violated at use time.
	ErrCodeConsistency ErrorCode = "CONSISTENCY"

	// ErrCodeHost: a scene primitive failed (locked node, name clash, ...).
	ErrCodeHost ErrorCode = "HOST"

	// ErrCodeJournal: the scene was updated but the journal write failed.
	ErrCodeJournal ErrorCode = "JOURNAL"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Identifier != "" {
		msg += fmt.Sprintf(" (identifier=%s)", e.Identifier)
	}
	if e.Node != "" {
		msg += fmt.Sprintf(" (node=%s)", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSelectionError reports whether err is a SyncError with ErrCodeSelection.
// Uses errors.As to handle wrapped errors.
func IsSelectionError(err error) bool {
	return hasCode(err, ErrCodeSelection)
}

// IsIdentityError reports whether err is a SyncError with ErrCodeIdentity.
func IsIdentityError(err error) bool {
	return hasCode(err, ErrCodeIdentity)
}

// IsConsistencyError reports whether err is a SyncError with
// ErrCodeConsistency.
func IsConsistencyError(err error) bool {
	return hasCode(err, ErrCodeConsistency)
}

// IsHostError reports whether err is a SyncError with ErrCodeHost.
func IsHostError(err error) bool {
	return hasCode(err, ErrCodeHost)
}

// CodeOf returns the code of the SyncError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func selectionError(format string, args ...any) *SyncError {
	return &SyncError{Code: ErrCodeSelection, Message: fmt.Sprintf(format, args...)}
}

// classify wraps a lower-level error into a SyncError, picking the code
// from the sentinel it carries. An existing SyncError is returned as is.
func classify(err error, msg, identifier, node string) error {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	code := ErrCodeHost
	switch {
	case errors.Is(err, instance.ErrSelection):
		code = ErrCodeSelection
	case errors.Is(err, identity.ErrUntagged),
		errors.Is(err, canonical.ErrNotFound):
		code = ErrCodeIdentity
	case errors.Is(err, basis.ErrFrameMissing),
		errors.Is(err, basis.ErrFrameExists),
		errors.Is(err, basis.ErrDegenerate):
		code = ErrCodeConsistency
	}
	return &SyncError{Code: code, Message: msg, Identifier: identifier, Node: node, Err: err}
}
