package service

import (
	"errors"
	"fmt"
)

// Notice is the user-facing message produced by an action.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Outcome is what a successful action reports back to the screen: a notice
// and, when the action leaves the screen, the destination route.
type Outcome struct {
	Notice Notice `json:"notice"`
	Route  string `json:"route,omitempty"`
}

var (
	ErrNotEditing        = errors.New("profile is not in edit mode")
	ErrPickCancelled     = errors.New("image selection cancelled")
	ErrDeletionCancelled = errors.New("account deletion cancelled")
	ErrNoPicker          = errors.New("media picker not configured")
	ErrNotAuthenticated  = errors.New("no user is logged in")
	ErrUnknownRoute      = errors.New("unknown route")
)

// ValidationError is a local failure detected before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RemoteCallError wraps a failure of the identity provider, record store,
// blob store or media picker together with the notice to show for it.
type RemoteCallError struct {
	Op     string
	Notice Notice
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// SilentError is a failure that is logged and leaves the screen on its
// fallback values.
type SilentError struct {
	Op  string
	Err error
}

func (e *SilentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SilentError) Unwrap() error {
	return e.Err
}

// NoticeFor returns the notice a screen should show for err.
func NoticeFor(err error) (Notice, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Notice{Title: "Error", Message: validationErr.Message}, true
	}
	var remoteErr *RemoteCallError
	if errors.As(err, &remoteErr) {
		return remoteErr.Notice, true
	}
	return Notice{}, false
}

func remoteFailure(op, title, message string, err error) error {
	return &RemoteCallError{
		Op:     op,
		Notice: Notice{Title: title, Message: message},
		Err:    err,
	}
}
