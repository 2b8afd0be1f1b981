// Package report decodes backend report documents into models.ClinicalReport.
//
// The backend has shipped more than one document shape (a genomic report with
// top-level patient and variants, and a lab-result document with
// LabReportJSON, AutoReferralBlock and IntelligenceHubCard). Decoding accepts
// both and treats every nested field as optional.
package report

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"genomic-report-server/internal/models"
)

var ErrInvalidDocument = errors.New("report document is not valid JSON")

// Decode reads a report document. Only malformed JSON is an error.
func Decode(raw []byte) (*models.ClinicalReport, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidDocument
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return &models.ClinicalReport{}, nil
	}

	r := &models.ClinicalReport{
		ID:                   first(root, "id", "patient_id", "lab_result_id").String(),
		Patient:              decodePatient(root),
		ClinicalContext:      decodeClinicalContext(root.Get("clinicalContext")),
		EvidenceMatrix:       decodeEvidence(root.Get("evidenceMatrix")),
		QualityControl:       decodeQC(root.Get("qualityControl")),
		TieredAnalysis:       decodeTiered(root.Get("tieredAnalysis")),
		ActionsOrders:        decodeActionsOrders(root.Get("actionsOrders")),
		PatientSummaryEN:     first(root, "patientSummaryEn", "patientSummaryEN", "PatientStoryTelling.english").String(),
		PatientSummaryAR:     first(root, "patientSummaryAR", "patientSummaryAr", "PatientStoryTelling.arabic").String(),
		Referral:             decodeReferral(first(root, "AutoReferralBlock", "LabReportJSON.referral", "referral")),
		IntelligenceHub:      decodeHub(first(root, "IntelligenceHubCard", "intelligenceHub")),
		DoctorInterpretation: first(root, "DoctorInterpretation", "doctorInterpretation").String(),
		AIInterpretationEN:   first(root, "LabReportJSON.aiInterpretationEN", "aiInterpretationEN", "aiInterpretationEn").String(),
		IsProcessed:          first(root, "is_processed", "isProcessed").Bool(),
	}

	for _, v := range arr(first(root, "variants", "LabReportJSON.variants")) {
		if v.IsObject() {
			r.Variants = append(r.Variants, decodeVariant(v))
		}
	}
	for _, res := range arr(root.Get("LabReportJSON.results")) {
		if res.IsObject() {
			r.LabResults = append(r.LabResults, decodeLabResult(res))
		}
	}
	r.AIClinicalInterpretation = decodeInterpretation(root.Get("AI_ClinicalInterpretation"))
	r.IntelligentPatientReport = decodePatientReport(root.Get("IntelligentPatientReport"))
	return r, nil
}

// first returns the first path that exists in obj.
func first(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if res := obj.Get(p); res.Exists() && res.Type != gjson.Null {
			return res
		}
	}
	return gjson.Result{}
}

// arr returns the elements of a JSON array and nothing for any other type.
func arr(res gjson.Result) []gjson.Result {
	if !res.IsArray() {
		return nil
	}
	return res.Array()
}

// strs reads a list of strings. A bare string becomes a one-item list.
func strs(res gjson.Result) []string {
	if !res.Exists() || res.IsObject() {
		return nil
	}
	if !res.IsArray() {
		if s := strings.TrimSpace(res.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range res.Array() {
		if item.IsObject() || item.IsArray() {
			continue
		}
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodePatient(root gjson.Result) models.Patient {
	p := first(root, "patient", "LabReportJSON.demographics", "demographics")
	name := first(p, "name").String()
	if name == "" {
		name = root.Get("patient_name").String()
	}
	return models.Patient{
		Name:   name,
		MRN:    first(p, "mrn", "MRN").String(),
		Age:    int(p.Get("age").Int()),
		DOB:    first(p, "dob", "dateOfBirth").String(),
		Gender: p.Get("gender").String(),
	}
}

func decodeClinicalContext(cc gjson.Result) models.ClinicalContext {
	return models.ClinicalContext{
		Conditions:     strs(cc.Get("conditions")),
		MedicalHistory: cc.Get("medicalHistory").String(),
		FamilyHistory:  strs(cc.Get("familyHistory")),
		Medications:    strs(cc.Get("medications")),
		Assessment:     cc.Get("assessment").String(),
	}
}

func decodeEvidence(em gjson.Result) models.EvidenceMatrix {
	out := models.EvidenceMatrix{References: strs(em.Get("references"))}
	for _, l := range arr(em.Get("levels")) {
		out.Levels = append(out.Levels, models.EvidenceLevel{
			Name:        l.Get("name").String(),
			Quality:     models.QualityLevel(strings.ToLower(l.Get("quality").String())),
			Status:      models.EvidenceStatus(strings.ToLower(l.Get("status").String())),
			Description: l.Get("description").String(),
		})
	}
	return out
}

func decodeQC(qc gjson.Result) models.QualityControl {
	return models.QualityControl{
		Coverage:        qc.Get("coverage").Float(),
		MappingQuality:  qc.Get("mappingQuality").Float(),
		DepthUniformity: qc.Get("depthUniformity").Float(),
		CallRate:        qc.Get("callRate").Float(),
		OverallQuality:  qc.Get("overallQuality").String(),
	}
}

var acmgCodePattern = regexp.MustCompile(`\b[PB](?:VS|S|M|P|A)\d\b`)

func decodeVariant(v gjson.Result) models.Variant {
	codes := strs(v.Get("acmgClassificationCode"))
	if len(codes) == 1 && strings.Contains(codes[0], ",") {
		codes = acmgCodePattern.FindAllString(codes[0], -1)
	}
	if len(codes) == 0 {
		// "Pathogenic (PVS1, PM2, PM5, PP2)"
		codes = acmgCodePattern.FindAllString(v.Get("acmgClassification").String(), -1)
	}
	return models.Variant{
		Gene:                   v.Get("gene").String(),
		HGVS:                   v.Get("hgvs").String(),
		Notation:               v.Get("variant").String(),
		Tier:                   v.Get("tier").String(),
		Zygosity:               v.Get("zygosity").String(),
		Inheritance:            v.Get("inheritance").String(),
		ClinicalSignificance:   v.Get("clinicalSignificance").String(),
		ACMGClassificationCode: codes,
		Frequency:              v.Get("frequency").String(),
		Description:            v.Get("description").String(),
		VAF:                    v.Get("vaf").Float(),
	}
}

func decodeTiered(ta gjson.Result) models.TieredAnalysis {
	return models.TieredAnalysis{
		Summary:    ta.Get("summary").String(),
		Guidelines: strs(ta.Get("guidelines")),
	}
}

func decodeActionsOrders(ao gjson.Result) models.ActionsOrders {
	out := models.ActionsOrders{
		Recommendations: strs(ao.Get("recommendations")),
		FollowUp:        ao.Get("followUp").String(),
	}
	for _, a := range arr(ao.Get("actions")) {
		out.Actions = append(out.Actions, models.ClinicalAction{
			Title:       a.Get("title").String(),
			Description: a.Get("description").String(),
			Status:      a.Get("status").String(),
			Timeline:    a.Get("timeline").String(),
		})
	}
	for _, o := range arr(ao.Get("orders")) {
		out.Orders = append(out.Orders, models.ClinicalOrder{
			OrderName:    o.Get("orderName").String(),
			Status:       o.Get("status").String(),
			Priority:     o.Get("priority").String(),
			TestType:     o.Get("testType").String(),
			Specimen:     o.Get("specimen").String(),
			Turnaround:   o.Get("turnaround").String(),
			Instructions: o.Get("instructions").String(),
		})
	}
	return out
}

func decodeReferral(ref gjson.Result) *models.Referral {
	if !ref.IsObject() {
		return nil
	}
	return &models.Referral{
		Specialty:     ref.Get("specialty").String(),
		SuggestedDate: parseTime(ref.Get("suggestedDate").String()),
		Needed:        ref.Get("needed").Bool(),
		BookedStatus:  ref.Get("bookedStatus").String(),
		Urgency:       ref.Get("urgency").String(),
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts the timestamp formats the backend has emitted. Anything
// else yields the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// decodeLabResult keeps numeric values as their JSON text, so 6.20 and "6.20"
// both read as "6.20".
func decodeLabResult(res gjson.Result) models.LabResult {
	value := res.Get("value")
	text := value.String()
	if value.Type == gjson.Number {
		text = value.Raw
	}
	return models.LabResult{
		TestName:       first(res, "testName", "test").String(),
		Value:          strings.TrimSpace(text),
		Units:          res.Get("units").String(),
		RefRange:       first(res, "refRange", "normalRange").String(),
		Classification: res.Get("classification").String(),
		Status:         res.Get("status").String(),
	}
}

func decodeInterpretation(ai gjson.Result) *models.ClinicalInterpretation {
	if !ai.IsObject() {
		return nil
	}
	out := &models.ClinicalInterpretation{
		IntegratedClinicalContext:    ai.Get("integratedClinicalContext").String(),
		EvidenceBasedRecommendations: strs(ai.Get("evidenceBasedRecommendations")),
	}
	for _, f := range arr(ai.Get("resultLinkedAnalysis")) {
		if f.IsObject() {
			out.ResultLinkedAnalysis = append(out.ResultLinkedAnalysis, models.ResultFinding{
				Finding:  f.Get("finding").String(),
				Analysis: f.Get("analysis").String(),
			})
		}
	}
	return out
}

func decodePatientReport(pr gjson.Result) *models.IntelligentPatientReport {
	if !pr.IsObject() {
		return nil
	}
	out := &models.IntelligentPatientReport{
		IntroEN: pr.Get("introEN").String(),
		IntroAR: pr.Get("introAR").String(),
	}
	for _, t := range arr(pr.Get("abnormalTests")) {
		if !t.IsObject() {
			continue
		}
		out.AbnormalTests = append(out.AbnormalTests, models.AbnormalTest{
			Emoji:         t.Get("emoji").String(),
			TestNameEN:    t.Get("testNameEN").String(),
			TestNameAR:    t.Get("testNameAR").String(),
			ResultDisplay: t.Get("resultDisplay").String(),
			Status:        t.Get("status").String(),
			StoryEN:       t.Get("storyEN").String(),
			StoryAR:       t.Get("storyAR").String(),
		})
	}
	for _, a := range arr(pr.Get("patientActionPlan")) {
		if !a.IsObject() {
			continue
		}
		out.PatientActionPlan = append(out.PatientActionPlan, models.PatientAction{
			ActionEN: first(a, "actionEn", "actionEN").String(),
			ActionAR: first(a, "actionAr", "actionAR").String(),
		})
	}
	return out
}

func decodeHub(hub gjson.Result) models.IntelligenceHub {
	return models.IntelligenceHub{
		RiskLevel:     first(hub, "riskLevel", "RiskLevel").String(),
		AIConfidence:  first(hub, "aiConfidence", "AIConfidence").String(),
		HPIPMHSummary: first(hub, "hpiPmhSummary", "HpiPmhSummary").String(),
	}
}

// DecodeAnalysisResults reads the overview list. The list may be the document
// itself or wrapped under "results".
func DecodeAnalysisResults(raw []byte) ([]models.AnalysisResult, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidDocument
	}
	root := gjson.ParseBytes(raw)
	list := root
	if !root.IsArray() {
		list = root.Get("results")
	}

	out := []models.AnalysisResult{}
	for _, item := range arr(list) {
		if !item.IsObject() {
			continue
		}
		out = append(out, models.AnalysisResult{
			PatientID:            first(item, "patient_id", "patientId").String(),
			PatientName:          first(item, "patient_name", "patientName").String(),
			PDFFilename:          first(item, "pdf_filename", "pdfFilename").String(),
			DoctorInterpretation: first(item, "DoctorInterpretation", "doctorInterpretation").String(),
			Referral:             decodeReferral(first(item, "AutoReferralBlock", "referral")),
			IntelligenceHub:      decodeHub(first(item, "IntelligenceHubCard", "intelligenceHub")),
			KeyFindings:          strs(item.Get("keyFindings")),
		})
	}
	return out, nil
}
