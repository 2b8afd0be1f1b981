package composer

import (
	"context"
	"strings"
	"time"

	"genomic-report-server/internal/models"
	"genomic-report-server/internal/session"
)

// Referral draft fields accepted by SetReferralDraftField.
const (
	FieldSpecialty     = "specialty"
	FieldSuggestedDate = "suggestedDate"
	FieldUrgency       = "urgency"
	FieldBookedStatus  = "bookedStatus"
)

// BeginReferralEdit copies the committed referral into a draft. It reports
// false and changes nothing when the report is processed, no referral is
// needed, or a draft already exists.
func (c *Composer) BeginReferralEdit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.processed || c.referral == nil || !c.referral.Needed || c.draft != nil {
		return false
	}
	d := *c.referral
	c.draft = &d
	return true
}

// SetReferralDraftField edits the draft only; the committed referral is
// untouched until ConfirmReferral succeeds.
func (c *Composer) SetReferralDraftField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == nil {
		return ErrNotEditing
	}
	if c.confirming {
		return ErrConfirmInFlight
	}

	switch field {
	case FieldSpecialty:
		clinic, ok := c.clinic(value)
		if !ok {
			return &ValidationError{Field: field, Message: "unknown clinic " + value}
		}
		c.draft.Specialty = clinic
	case FieldSuggestedDate:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return &ValidationError{Field: field, Message: "expected RFC 3339 timestamp"}
		}
		c.draft.SuggestedDate = t
	case FieldUrgency:
		c.draft.Urgency = value
	case FieldBookedStatus:
		c.draft.BookedStatus = value
	default:
		return &ValidationError{Field: field, Message: "unknown referral field"}
	}
	return nil
}

func (c *Composer) clinic(name string) (string, bool) {
	for _, cl := range c.opts.Clinics {
		if strings.EqualFold(cl, strings.TrimSpace(name)) {
			return cl, true
		}
	}
	return "", false
}

// CancelReferralEdit discards the draft.
func (c *Composer) CancelReferralEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirming {
		return ErrConfirmInFlight
	}
	c.draft = nil
	return nil
}

// ConfirmReferral submits the draft and, on success, commits it and marks the
// report processed.
//
// A processed report returns ErrAlreadyProcessed. An incomplete draft is
// rejected with *ValidationError before any backend call. A backend failure
// returns *ConfirmError and leaves the draft and the processed flag as they
// were. If the view is closed while the call is
// outstanding its result is dropped and ErrComposerClosed is returned.
func (c *Composer) ConfirmReferral(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrComposerClosed
	}
	if c.processed {
		c.mu.Unlock()
		return ErrAlreadyProcessed
	}
	if c.draft == nil {
		c.mu.Unlock()
		return &ValidationError{Field: "referral", Message: "no referral draft to confirm"}
	}
	if err := validateDraft(c.draft); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.confirming {
		c.mu.Unlock()
		return ErrConfirmInFlight
	}
	if !c.session.Valid() {
		c.mu.Unlock()
		return session.ErrNoSession
	}
	c.confirming = true
	draft := *c.draft
	reportID := c.reportID
	c.mu.Unlock()

	err := c.confirmer.ConfirmReferral(session.WithContext(ctx, c.session), reportID, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirming = false
	if !c.active {
		return ErrComposerClosed
	}
	if err != nil {
		return &ConfirmError{Err: err}
	}
	c.referral = &draft
	c.draft = nil
	c.processed = true
	return nil
}

func validateDraft(d *models.Referral) error {
	if strings.TrimSpace(d.Specialty) == "" {
		return &ValidationError{Field: FieldSpecialty, Message: "specialty is required"}
	}
	if d.SuggestedDate.IsZero() {
		return &ValidationError{Field: FieldSuggestedDate, Message: "appointment time is required"}
	}
	return nil
}
