package models

import (
	"strings"
	"time"
)

// QualityLevel grades a piece of evidence or QC metric.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// EvidenceStatus tracks where an evidence entry is in review.
type EvidenceStatus string

const (
	EvidenceConfirmed EvidenceStatus = "confirmed"
	EvidencePending   EvidenceStatus = "pending"
	EvidenceRejected  EvidenceStatus = "rejected"
)

// ClinicalReport is the report document returned by the interpretation backend.
// Every nested field is optional; decoding never fails on a missing key.
type ClinicalReport struct {
	ID                   string          `json:"id,omitempty"`
	Patient              Patient         `json:"patient"`
	ClinicalContext      ClinicalContext `json:"clinicalContext"`
	EvidenceMatrix       EvidenceMatrix  `json:"evidenceMatrix"`
	QualityControl       QualityControl  `json:"qualityControl"`
	Variants             []Variant       `json:"variants"`
	TieredAnalysis       TieredAnalysis  `json:"tieredAnalysis"`
	ActionsOrders        ActionsOrders   `json:"actionsOrders"`
	PatientSummaryEN     string          `json:"patientSummaryEn,omitempty"`
	PatientSummaryAR     string          `json:"patientSummaryAR,omitempty"`
	Referral             *Referral       `json:"referral,omitempty"`
	IntelligenceHub      IntelligenceHub `json:"intelligenceHub"`
	DoctorInterpretation string          `json:"doctorInterpretation,omitempty"`
	AIInterpretationEN   string          `json:"aiInterpretationEn,omitempty"`
	IsProcessed          bool            `json:"isProcessed"`

	// Lab-result documents only.
	LabResults               []LabResult               `json:"labResults,omitempty"`
	AIClinicalInterpretation *ClinicalInterpretation   `json:"aiClinicalInterpretation,omitempty"`
	IntelligentPatientReport *IntelligentPatientReport `json:"intelligentPatientReport,omitempty"`
}

// Patient holds display-only demographics.
type Patient struct {
	Name   string `json:"name"`
	MRN    string `json:"mrn"`
	Age    int    `json:"age,omitempty"`
	DOB    string `json:"dob"`
	Gender string `json:"gender,omitempty"`
}

type ClinicalContext struct {
	Conditions     []string `json:"conditions"`
	MedicalHistory string   `json:"medicalHistory"`
	FamilyHistory  []string `json:"familyHistory"`
	Medications    []string `json:"medications"`
	Assessment     string   `json:"assessment"`
}

type EvidenceLevel struct {
	Name        string         `json:"name"`
	Quality     QualityLevel   `json:"quality"`
	Status      EvidenceStatus `json:"status"`
	Description string         `json:"description"`
}

type EvidenceMatrix struct {
	Levels     []EvidenceLevel `json:"levels"`
	References []string        `json:"references"`
}

type QualityControl struct {
	Coverage        float64 `json:"coverage"`
	MappingQuality  float64 `json:"mappingQuality"`
	DepthUniformity float64 `json:"depthUniformity"`
	CallRate        float64 `json:"callRate"`
	OverallQuality  string  `json:"overallQuality"`
}

// Variant is immutable input data. Annotations live on VariantAction.
type Variant struct {
	Gene                   string   `json:"gene"`
	HGVS                   string   `json:"hgvs,omitempty"`
	Notation               string   `json:"variant,omitempty"`
	Tier                   string   `json:"tier"`
	Zygosity               string   `json:"zygosity"`
	Inheritance            string   `json:"inheritance"`
	ClinicalSignificance   string   `json:"clinicalSignificance"`
	ACMGClassificationCode []string `json:"acmgClassificationCode"`
	Frequency              string   `json:"frequency"`
	Description            string   `json:"description"`
	VAF                    float64  `json:"vaf,omitempty"`
}

// Mutation returns the HGVS notation, falling back to the plain variant string.
func (v Variant) Mutation() string {
	if v.HGVS != "" {
		return v.HGVS
	}
	return v.Notation
}

// Key identifies the same physical variant across the variant and action lists.
func (v Variant) Key() string {
	return strings.TrimSpace(v.Gene + " " + v.Mutation())
}

type TieredAnalysis struct {
	Summary    string   `json:"summary"`
	Guidelines []string `json:"guidelines"`
}

type ClinicalAction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Timeline    string `json:"timeline"`
}

type ClinicalOrder struct {
	OrderName    string `json:"orderName"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	TestType     string `json:"testType"`
	Specimen     string `json:"specimen"`
	Turnaround   string `json:"turnaround,omitempty"`
	Instructions string `json:"instructions"`
}

// ActionsOrders is passed through to the client untouched. Recommendations
// arrive either as a list or as one free-text block; both are normalised to a
// list.
type ActionsOrders struct {
	Recommendations []string         `json:"recommendations"`
	FollowUp        string           `json:"followUp"`
	Actions         []ClinicalAction `json:"actions"`
	Orders          []ClinicalOrder  `json:"orders"`
}

// IntelligenceHub carries the backend's risk triage card.
type IntelligenceHub struct {
	RiskLevel     string `json:"riskLevel,omitempty"`
	AIConfidence  string `json:"aiConfidence,omitempty"`
	HPIPMHSummary string `json:"hpiPmhSummary,omitempty"`
}

// Referral is the auto-suggested (or locally edited) specialist appointment.
type Referral struct {
	Specialty     string    `json:"specialty"`
	SuggestedDate time.Time `json:"suggestedDate"`
	Needed        bool      `json:"needed"`
	BookedStatus  string    `json:"bookedStatus"`
	Urgency       string    `json:"urgency"`
}

// LabResult is one measured test. Value keeps the backend's text, numeric or
// not.
type LabResult struct {
	TestName       string `json:"testName"`
	Value          string `json:"value"`
	Units          string `json:"units"`
	RefRange       string `json:"refRange"`
	Classification string `json:"classification"`
	Status         string `json:"status"`
}

type ResultFinding struct {
	Finding  string `json:"finding"`
	Analysis string `json:"analysis"`
}

// ClinicalInterpretation is the clinician-facing AI reading of the lab results.
type ClinicalInterpretation struct {
	IntegratedClinicalContext    string          `json:"integratedClinicalContext"`
	ResultLinkedAnalysis         []ResultFinding `json:"resultLinkedAnalysis"`
	EvidenceBasedRecommendations []string        `json:"evidenceBasedRecommendations"`
}

type AbnormalTest struct {
	Emoji         string `json:"emoji,omitempty"`
	TestNameEN    string `json:"testNameEN"`
	TestNameAR    string `json:"testNameAR"`
	ResultDisplay string `json:"resultDisplay"`
	Status        string `json:"status"`
	StoryEN       string `json:"storyEN"`
	StoryAR       string `json:"storyAR"`
}

type PatientAction struct {
	ActionEN string `json:"actionEn"`
	ActionAR string `json:"actionAr"`
}

// IntelligentPatientReport is the bilingual patient-facing explanation.
type IntelligentPatientReport struct {
	IntroEN           string          `json:"introEN"`
	IntroAR           string          `json:"introAR"`
	AbnormalTests     []AbnormalTest  `json:"abnormalTests"`
	PatientActionPlan []PatientAction `json:"patientActionPlan"`
}

// AnalysisResult is one row of the multi-patient overview.
type AnalysisResult struct {
	PatientID            string          `json:"patientId"`
	PatientName          string          `json:"patientName,omitempty"`
	PDFFilename          string          `json:"pdfFilename,omitempty"`
	DoctorInterpretation string          `json:"doctorInterpretation,omitempty"`
	Referral             *Referral       `json:"referral,omitempty"`
	IntelligenceHub      IntelligenceHub `json:"intelligenceHub"`
	KeyFindings          []string        `json:"keyFindings"`
}
