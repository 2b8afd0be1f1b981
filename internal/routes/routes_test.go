package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomic-report-server/internal/backend"
	"genomic-report-server/internal/composer"
	"genomic-report-server/internal/config"
	"genomic-report-server/internal/models"
	"genomic-report-server/internal/utils"
)

const testSecret = "routes-secret"

type fakeReports struct {
	mu          sync.Mutex
	reports     map[string]*models.ClinicalReport
	invalidated []string
}

func (f *fakeReports) Load(_ context.Context, id string) (*models.ClinicalReport, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, &backend.StatusError{Method: http.MethodGet, Path: "/lab-result/" + id, StatusCode: http.StatusNotFound}
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReports) Invalidate(_ context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, id)
}

type fakeAnalysis struct {
	raw []byte
	err error
}

func (f fakeAnalysis) ListAnalysisResults(context.Context) ([]byte, error) { return f.raw, f.err }

// fakeConfirmer fails while err is set and blocks while block is non-nil.
type fakeConfirmer struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	started chan struct{}
	calls   []models.Referral
}

func (f *fakeConfirmer) ConfirmReferral(_ context.Context, _ string, ref models.Referral) error {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	block, started, err := f.block, f.started, f.err
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return err
}

type fakeOrders struct {
	mu            sync.Mutex
	orders        []models.ConfirmatoryOrder
	confirmations []*models.ReferralConfirmation
	err           error
}

func (f *fakeOrders) CreateOrders(_ context.Context, orders []models.ConfirmatoryOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, orders...)
	return nil
}

func (f *fakeOrders) ListOrders(_ context.Context, reportID string) ([]models.ConfirmatoryOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConfirmatoryOrder
	for _, o := range f.orders {
		if o.ReportID == reportID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) RecordReferralConfirmation(_ context.Context, c *models.ReferralConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, c)
	return nil
}

type testEnv struct {
	router    *gin.Engine
	reports   *fakeReports
	confirmer *fakeConfirmer
	orders    *fakeOrders
	views     *composer.Registry
	logs      *test.Hook
}

func fixtureReport() *models.ClinicalReport {
	return &models.ClinicalReport{
		ID:      "rpt-1",
		Patient: models.Patient{Name: "Sara Ali", MRN: "MRN-7"},
		ClinicalContext: models.ClinicalContext{
			Conditions: []string{"Anemia"},
		},
		Variants: []models.Variant{
			{Gene: "HBB", HGVS: "c.20A>T"},
			{Gene: "BRCA1", Notation: "c.68_69delAG"},
		},
		Referral: &models.Referral{
			Specialty:     "Neurology",
			SuggestedDate: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
			Needed:        true,
			Urgency:       "routine",
		},
		PatientSummaryEN: "Backend summary",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, logs := test.NewNullLogger()

	views, err := composer.NewRegistry(8, composer.NewSequenceGenerator("view"))
	require.NoError(t, err)

	env := &testEnv{
		router:    gin.New(),
		reports:   &fakeReports{reports: map[string]*models.ClinicalReport{"rpt-1": fixtureReport()}},
		confirmer: &fakeConfirmer{},
		orders:    &fakeOrders{},
		views:     views,
		logs:      logs,
	}
	SetupRoutes(env.router, Dependencies{
		Config:    &config.Config{JWTSecret: testSecret},
		Logger:    logger,
		Reports:   env.reports,
		Analysis:  fakeAnalysis{raw: []byte(`{"results": [{"patient_id": "p1"}]}`)},
		Confirmer: env.confirmer,
		Orders:    env.orders,
		Views:     views,
	})
	return env
}

type apiResponse struct {
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Retryable bool            `json:"retryable"`
}

type viewData struct {
	ViewID         string                   `json:"viewId"`
	ReportID       string                   `json:"reportId"`
	Sections       []composer.SectionView   `json:"sections"`
	SectionStates  map[string]bool          `json:"sectionStates"`
	VariantActions []composer.VariantAction `json:"variantActions"`
	Referral       *models.Referral         `json:"referral"`
	ReferralDraft  *models.Referral         `json:"referralDraft"`
	IsProcessed    bool                     `json:"isProcessed"`
}

func (e *testEnv) call(t *testing.T, user string, role models.Role, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		tok, err := utils.GenerateToken(user, role, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (e *testEnv) open(t *testing.T) viewData {
	t.Helper()
	w, resp := e.call(t, "doc-1", models.RoleDoctor, http.MethodPost, "/api/v1/reports/rpt-1/views", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v viewData
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func decodeView(t *testing.T, resp apiResponse) viewData {
	t.Helper()
	var v viewData
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.call(t, "", "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.call(t, "", "", http.MethodGet, "/api/v1/reports/rpt-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.call(t, "", "", http.MethodPost, "/api/v1/stories", map[string]interface{}{
		"data": map[string]interface{}{}, "language": "en", "level": "adult", "length": "short",
	})
	assert.Equal(t, http.StatusOK, w.Code, "story generation is public")
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/reports/rpt-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var r models.ClinicalReport
	require.NoError(t, json.Unmarshal(resp.Data, &r))
	assert.Equal(t, "Sara Ali", r.Patient.Name)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/analysis-results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []models.AnalysisResult
	require.NoError(t, json.Unmarshal(resp.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].PatientID)
}

func TestOpenViewDefaults(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)

	assert.Equal(t, "view-1", v.ViewID)
	assert.Equal(t, "rpt-1", v.ReportID)
	require.Len(t, v.Sections, 5)
	assert.True(t, v.SectionStates["clinical"])
	assert.False(t, v.SectionStates["variants"])
	assert.Empty(t, v.VariantActions)
	assert.Nil(t, v.ReferralDraft)

	entry := env.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Report view opened", entry.Message)
	assert.Equal(t, "doc-1", entry.Data["user_id"])
	assert.Equal(t, models.RoleDoctor, entry.Data["role"])

	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, "/api/v1/reports/missing/views", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewsArePrivateToTheirOwner(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)

	w, _ := env.call(t, "doc-2", models.RoleDoctor, http.MethodGet, "/api/v1/views/"+v.ViewID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/views/"+v.ViewID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToggleSection(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	path := "/api/v1/views/" + v.ViewID + "/sections/variants/toggle"

	_, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, path, nil)
	got := decodeView(t, resp)
	assert.True(t, got.SectionStates["variants"])
	assert.True(t, got.SectionStates["clinical"], "toggling one section leaves the others alone")

	_, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, path, nil)
	assert.False(t, decodeView(t, resp).SectionStates["variants"])
}

func TestVariantActionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID + "/actions"

	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base, map[string]interface{}{"variantIndex": 0, "actionType": "sanger"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var action composer.VariantAction
	require.NoError(t, json.Unmarshal(resp.Data, &action))
	assert.Equal(t, "Sanger Sequencing", action.Label)
	assert.Equal(t, "HBB c.20A>T", action.Variant.Key())

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base, map[string]interface{}{"variantIndex": 0, "actionType": "x-ray"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base, map[string]interface{}{"variantIndex": 9, "actionType": "sanger"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base, map[string]interface{}{"actionType": "sanger"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base+"/"+action.ID, map[string]interface{}{"actionType": "counseling"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeView(t, resp)
	require.Len(t, got.VariantActions, 1)
	assert.Equal(t, models.ActionCounseling, got.VariantActions[0].ActionType)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base+"/"+action.ID, map[string]interface{}{"actionType": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	_, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodDelete, base+"/"+action.ID, nil)
	assert.Empty(t, decodeView(t, resp).VariantActions)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodDelete, base+"/unknown", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReferralConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID + "/referral"

	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base, map[string]string{"field": "urgency", "value": "high"})
	assert.Equal(t, http.StatusConflict, w.Code, "editing requires a draft")

	_, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/edit", nil)
	require.NotNil(t, decodeView(t, resp).ReferralDraft)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base, map[string]string{"field": "specialty", "value": "Dermatology"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base, map[string]string{"field": "color", "value": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base, map[string]string{"field": "specialty", "value": "cardiology"})
	got := decodeView(t, resp)
	assert.Equal(t, "Cardiology", got.ReferralDraft.Specialty)
	assert.Equal(t, "Neurology", got.Referral.Specialty, "committed referral is untouched while editing")

	w, _ = env.call(t, "clin-1", models.RoleClinicAdmin, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decodeView(t, resp)
	assert.True(t, got.IsProcessed)
	assert.Nil(t, got.ReferralDraft)
	assert.Equal(t, "Cardiology", got.Referral.Specialty)

	require.Len(t, env.orders.confirmations, 1)
	assert.Equal(t, "Cardiology", env.orders.confirmations[0].Specialty)
	assert.Equal(t, "doc-1", env.orders.confirmations[0].ConfirmedBy)
	assert.Equal(t, []string{"rpt-1"}, env.reports.invalidated)
}

func TestProcessedReportCannotBeConfirmedTwice(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID + "/referral"

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/edit", nil)
	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Referral not editable", resp.Message)
	assert.Nil(t, decodeView(t, resp).ReferralDraft)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base, map[string]string{"field": "specialty", "value": "Cardiology"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Len(t, env.confirmer.calls, 1)
	assert.Len(t, env.orders.confirmations, 1)
}

func TestReferralConfirmFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.confirmer.err = errors.New("backend returned 503")
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID + "/referral"

	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "no draft means no backend call")
	assert.Empty(t, env.confirmer.calls)

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/edit", nil)
	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, resp.Retryable)

	_, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/views/"+v.ViewID, nil)
	got := decodeView(t, resp)
	assert.NotNil(t, got.ReferralDraft)
	assert.False(t, got.IsProcessed)
	assert.Empty(t, env.orders.confirmations)

	_, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodDelete, base+"/edit", nil)
	assert.Nil(t, decodeView(t, resp).ReferralDraft)
}

func TestConfirmInFlightAndLateResponse(t *testing.T) {
	env := newTestEnv(t)
	env.confirmer.block = make(chan struct{})
	env.confirmer.started = make(chan struct{})
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/referral/edit", nil)

	done := make(chan int)
	go func() {
		w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/referral/confirm", nil)
		done <- w.Code
	}()
	<-env.confirmer.started

	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPatch, base+"/referral", map[string]string{"field": "urgency", "value": "high"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/referral/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	close(env.confirmer.block)
	assert.Equal(t, http.StatusNotFound, <-done, "late response for a closed view is discarded")
	assert.Empty(t, env.orders.confirmations)
	assert.Equal(t, 0, env.views.Len())
}

func TestStoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID + "/story"

	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, base+"?language=en&level=child&length=short", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Story struct {
			Title      string   `json:"title"`
			Paragraphs []string `json:"paragraphs"`
		} `json:"story"`
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "Sara Ali's Genetic Health Journey", got.Story.Title)
	assert.Len(t, got.Story.Paragraphs, 3)
	assert.Equal(t, "Backend summary", got.Summary)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, base+"?language=fr", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, base+"?language=ar&format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `dir="rtl"`)
}

func TestCreateTasks(t *testing.T) {
	env := newTestEnv(t)
	v := env.open(t)
	base := "/api/v1/views/" + v.ViewID

	w, _ := env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/tasks", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/actions", map[string]interface{}{"variantIndex": 0, "actionType": "sanger"})
	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/actions", map[string]interface{}{"variantIndex": 1, "actionType": "cancer-risk"})

	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/tasks", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, env.orders.orders, 2)
	assert.Equal(t, "BRCA1", env.orders.orders[1].Gene)
	assert.Equal(t, "c.68_69delAG", env.orders.orders[1].Mutation)
	assert.Equal(t, "doc-1", env.orders.orders[0].OrderedBy)

	w, resp := env.call(t, "doc-1", models.RoleDoctor, http.MethodGet, "/api/v1/reports/rpt-1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.ConfirmatoryOrder
	require.NoError(t, json.Unmarshal(resp.Data, &orders))
	assert.Len(t, orders, 2)

	w, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code, "repeating the request is a no-op")
	var created []models.ConfirmatoryOrder
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Empty(t, created)
	assert.Len(t, env.orders.orders, 2)

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/actions", map[string]interface{}{"variantIndex": 0, "actionType": "counseling"})
	w, resp = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/tasks", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.Len(t, created, 1, "only the new action becomes an order")
	assert.Equal(t, models.ActionCounseling, created[0].ActionType)
	assert.Len(t, env.orders.orders, 3)

	env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/actions", map[string]interface{}{"variantIndex": 1, "actionType": "sanger"})
	env.orders.err = errors.New("db down")
	w, _ = env.call(t, "doc-1", models.RoleDoctor, http.MethodPost, base+"/tasks", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
