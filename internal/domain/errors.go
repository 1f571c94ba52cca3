package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConflict           = errors.New("conflicting file state")
	ErrFilesystem         = errors.New("filesystem operation failed")
	ErrProcessRunning     = errors.New("program is running")
	ErrCanceled           = errors.New("the operation was canceled")
	ErrSelectionNotFound  = errors.New("selection not found")
	ErrDuplicateSelection = errors.New("duplicate selection")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrPayloadNotFound    = errors.New("payload not found")
	ErrPartialFailure     = errors.New("operation failed")
	ErrInvalidTransition  = errors.New("invalid run state transition")
)

// OpError reports a failed step of a component install or uninstall.
// Class is ErrConflict or ErrFilesystem; Err is the underlying cause.
type OpError struct {
	Kind  ComponentKind
	Dir   string
	Step  string
	Class error
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s in %q: %s: %v", e.Kind, e.Dir, e.Step, e.Err)
}

// Unwrap exposes both the class and the cause to errors.Is / errors.As.
func (e *OpError) Unwrap() []error {
	return []error{e.Class, e.Err}
}

// Conflict builds an OpError of class ErrConflict.
func Conflict(kind ComponentKind, dir, step, format string, args ...any) *OpError {
	return &OpError{
		Kind:  kind,
		Dir:   dir,
		Step:  step,
		Class: ErrConflict,
		Err:   fmt.Errorf(format, args...),
	}
}

// Filesystem wraps err as an OpError of class ErrFilesystem.
func Filesystem(kind ComponentKind, dir, step string, err error) *OpError {
	return &OpError{
		Kind:  kind,
		Dir:   dir,
		Step:  step,
		Class: ErrFilesystem,
		Err:   err,
	}
}
