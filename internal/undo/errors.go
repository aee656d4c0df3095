package undo

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Error is a command sequencing error. These are programming errors in the
// caller: they abort the current group without touching the rest of the
// stack and are never swallowed.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Command is the description of the offending command, if any.
	Command string

	// Projects lists the document ids involved (for cross-document errors).
	Projects []string
}

// ErrorCode categorizes sequencing errors.
type ErrorCode string

const (
	// ErrCodeInvalidTransition indicates Redo on an applied command or
	// group, or Undo on an unapplied one.
	ErrCodeInvalidTransition ErrorCode = "INVALID_COMMAND_TRANSITION"

	// ErrCodeCrossDocument indicates a group mixing documents, or a group
	// pushed onto another document's stack.
	ErrCodeCrossDocument ErrorCode = "CROSS_DOCUMENT_COMMAND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (command=%q)", e.Code, e.Message, e.Command)
	}
	if len(e.Projects) > 0 {
		return fmt.Sprintf("%s: %s (projects=%v)", e.Code, e.Message, e.Projects)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTransitionError returns true if err is an out-of-sequence Redo/Undo.
// Uses errors.As to handle wrapped errors.
func IsTransitionError(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeInvalidTransition
	}
	return false
}

// IsCrossDocumentError returns true if err is a cross-document rejection.
// Uses errors.As to handle wrapped errors.
func IsCrossDocumentError(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeCrossDocument
	}
	return false
}

func newTransitionError(command string, state State, call string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("%s called while %s", call, state),
		Command: command,
	}
}

func newCrossDocumentError(message string, projects ...string) *Error {
	return &Error{
		Code:     ErrCodeCrossDocument,
		Message:  message,
		Projects: projects,
	}
}
