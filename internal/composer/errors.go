package composer

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateAction = errors.New("variant already has this action")
	ErrNotEditing      = errors.New("referral is not being edited")
	ErrConfirmInFlight = errors.New("referral confirmation already in progress")
	ErrComposerClosed  = errors.New("report view is closed")
)

// ErrAlreadyProcessed is returned once the referral has been confirmed.
// Processing is terminal.
var ErrAlreadyProcessed = errors.New("report is already processed")

// ValidationError is a local rejection. No backend call was made.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ConfirmError reports a failed backend confirmation. The draft is kept and
// the call may be retried.
type ConfirmError struct {
	Err error
}

func (e *ConfirmError) Error() string {
	return "referral confirmation failed: " + e.Err.Error()
}

func (e *ConfirmError) Unwrap() error { return e.Err }

// Retryable is always true; the user may resubmit the same draft.
func (e *ConfirmError) Retryable() bool { return true }
