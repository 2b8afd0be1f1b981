// Package composer owns the mutable state of one open genomic report view:
// which sections are expanded, the confirmatory tests ordered against
// variants, and the referral being edited before confirmation.
package composer

import (
	"context"
	"sync"

	"genomic-report-server/internal/models"
	"genomic-report-server/internal/session"
	"genomic-report-server/internal/story"
)

// ReferralConfirmer marks a report processed on the backend, submitting the
// edited referral.
type ReferralConfirmer interface {
	ConfirmReferral(ctx context.Context, reportID string, referral models.Referral) error
}

// DefaultClinics is the specialty list a referral can be moved to.
var DefaultClinics = []string{
	"Cardiology",
	"Neurology",
	"Pediatrics",
	"Orthopedics",
	"Nephrology",
	"Genetics Counseling",
	"Advanced Imaging",
}

type Options struct {
	// RejectDuplicateActions refuses a second identical (variant, action type)
	// pair. Duplicates are accepted when false.
	RejectDuplicateActions bool
	Clinics                []string
	IDs                    IDGenerator
	// Owner is the user the view was opened for.
	Owner string
}

// VariantAction is a confirmatory test ordered against a variant.
type VariantAction struct {
	ID         string            `json:"id"`
	Variant    models.Variant    `json:"variant"`
	ActionType models.ActionType `json:"actionType"`
	Label      string            `json:"label"`
}

// Composer is safe for concurrent use. Every operation is applied atomically
// in call order.
type Composer struct {
	mu sync.Mutex

	reportID  string
	report    *models.ClinicalReport
	session   *session.Context
	confirmer ReferralConfirmer
	opts      Options

	sections   map[SectionID]bool
	actions    []VariantAction
	referral   *models.Referral
	draft      *models.Referral
	processed  bool
	confirming bool
	active     bool
}

// New opens a composer over report. A valid session is required because the
// referral confirmation calls the backend on the user's behalf.
func New(report *models.ClinicalReport, sess *session.Context, confirmer ReferralConfirmer, opts Options) (*Composer, error) {
	if sess == nil || !sess.Valid() {
		return nil, session.ErrNoSession
	}
	if report == nil {
		report = &models.ClinicalReport{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if len(opts.Clinics) == 0 {
		opts.Clinics = DefaultClinics
	}

	c := &Composer{
		reportID:  report.ID,
		report:    report,
		session:   sess,
		confirmer: confirmer,
		opts:      opts,
		sections:  defaultSectionStates(),
		processed: report.IsProcessed,
		active:    true,
	}
	if report.Referral != nil {
		ref := *report.Referral
		c.referral = &ref
	}
	return c, nil
}

func (c *Composer) ReportID() string {
	return c.reportID
}

func (c *Composer) Owner() string {
	return c.opts.Owner
}

// Report returns the read-only report the composer was opened over.
func (c *Composer) Report() *models.ClinicalReport {
	return c.report
}

// ToggleSection flips one section. Unknown ids start collapsed, so the first
// toggle expands them.
func (c *Composer) ToggleSection(id SectionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections[id] = !c.sections[id]
	return c.sections[id]
}

// Sections returns the fixed section list with current expand state.
func (c *Composer) Sections() []SectionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sectionsLocked()
}

func (c *Composer) sectionsLocked() []SectionView {
	views := make([]SectionView, 0, len(genomicSections))
	for _, s := range genomicSections {
		views = append(views, SectionView{
			ID:       s.id,
			Title:    s.title,
			Count:    s.count(c.report),
			Expanded: c.sections[s.id],
		})
	}
	return views
}

// AddVariantAction orders a confirmatory test against v.
func (c *Composer) AddVariantAction(v models.Variant, actionType models.ActionType) (VariantAction, error) {
	if !actionType.Valid() {
		return VariantAction{}, &ValidationError{Field: "actionType", Message: "unknown action type " + string(actionType)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.RejectDuplicateActions {
		for _, a := range c.actions {
			if a.ActionType == actionType && a.Variant.Key() == v.Key() {
				return VariantAction{}, ErrDuplicateAction
			}
		}
	}

	a := VariantAction{
		ID:         c.opts.IDs.NewID(),
		Variant:    v,
		ActionType: actionType,
		Label:      actionType.Label(),
	}
	c.actions = append(c.actions, a)
	return a, nil
}

// RemoveVariantAction deletes the action with id. Unknown ids are ignored.
func (c *Composer) RemoveVariantAction(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.actions {
		if a.ID == id {
			c.actions = append(c.actions[:i:i], c.actions[i+1:]...)
			return
		}
	}
}

// UpdateVariantAction changes the test kind of one action in place. Unknown
// ids are ignored.
func (c *Composer) UpdateVariantAction(id string, actionType models.ActionType) error {
	if !actionType.Valid() {
		return &ValidationError{Field: "actionType", Message: "unknown action type " + string(actionType)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.actions {
		if c.actions[i].ID == id {
			c.actions[i].ActionType = actionType
			c.actions[i].Label = actionType.Label()
			return nil
		}
	}
	return nil
}

// VariantActions returns a copy of the actions in insertion order.
func (c *Composer) VariantActions() []VariantAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]VariantAction(nil), c.actions...)
}

// Story generates the patient story for this report.
func (c *Composer) Story(lang story.Language, level story.Level, length story.Length) story.Output {
	return story.Generate(story.Config{Data: c.report, Language: lang, Level: level, Length: length})
}

// Close marks the view inactive. A confirmation still in flight will not be
// applied.
func (c *Composer) Close() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// Snapshot is a read-only copy of composer state.
type Snapshot struct {
	ReportID       string             `json:"reportId"`
	Sections       []SectionView      `json:"sections"`
	SectionStates  map[SectionID]bool `json:"sectionStates"`
	VariantActions []VariantAction    `json:"variantActions"`
	Referral       *models.Referral   `json:"referral,omitempty"`
	ReferralDraft  *models.Referral   `json:"referralDraft,omitempty"`
	IsProcessed    bool               `json:"isProcessed"`
	Confirming     bool               `json:"confirming"`
}

func (c *Composer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make(map[SectionID]bool, len(c.sections))
	for k, v := range c.sections {
		states[k] = v
	}
	s := Snapshot{
		ReportID:       c.reportID,
		Sections:       c.sectionsLocked(),
		SectionStates:  states,
		VariantActions: append([]VariantAction{}, c.actions...),
		IsProcessed:    c.processed,
		Confirming:     c.confirming,
	}
	if c.referral != nil {
		ref := *c.referral
		s.Referral = &ref
	}
	if c.draft != nil {
		d := *c.draft
		s.ReferralDraft = &d
	}
	return s
}
