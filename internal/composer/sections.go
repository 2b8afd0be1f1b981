package composer

import "genomic-report-server/internal/models"

type SectionID string

const (
	SectionClinical SectionID = "clinical"
	SectionEvidence SectionID = "evidence"
	SectionVariants SectionID = "variants"
	SectionActions  SectionID = "actions"
	SectionPatient  SectionID = "patient"
)

type sectionDef struct {
	id    SectionID
	title string
	open  bool
	count func(r *models.ClinicalReport) int
}

func one(*models.ClinicalReport) int { return 1 }

// genomicSections is the fixed section layout of a genomic report.
var genomicSections = []sectionDef{
	{SectionClinical, "Clinical Context & Assessment", true, one},
	{SectionEvidence, "Evidence Matrix & Quality Control", false, func(r *models.ClinicalReport) int {
		return len(r.EvidenceMatrix.Levels)
	}},
	{SectionVariants, "Tiered Variant Analysis", false, func(r *models.ClinicalReport) int {
		return len(r.Variants)
	}},
	{SectionActions, "Actions & Orders", false, func(r *models.ClinicalReport) int {
		return len(r.ActionsOrders.Actions) + len(r.ActionsOrders.Orders)
	}},
	{SectionPatient, "Patient Story", false, one},
}

// SectionView is one section header as rendered.
type SectionView struct {
	ID       SectionID `json:"id"`
	Title    string    `json:"title"`
	Count    int       `json:"count"`
	Expanded bool      `json:"expanded"`
}

func defaultSectionStates() map[SectionID]bool {
	m := make(map[SectionID]bool, len(genomicSections))
	for _, s := range genomicSections {
		m[s.id] = s.open
	}
	return m
}
