package handlers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/composer"
	"genomic-report-server/internal/middleware"
	"genomic-report-server/internal/models"
	"genomic-report-server/internal/story"
	"genomic-report-server/internal/utils"
)

// OrderStore persists confirmatory orders and referral confirmations.
type OrderStore interface {
	CreateOrders(ctx context.Context, orders []models.ConfirmatoryOrder) error
	ListOrders(ctx context.Context, reportID string) ([]models.ConfirmatoryOrder, error)
	RecordReferralConfirmation(ctx context.Context, c *models.ReferralConfirmation) error
}

// ViewHandler drives open report views. Every view belongs to the user that
// opened it; other users get 404.
type ViewHandler struct {
	Views     *composer.Registry
	Reports   ReportLoader
	Confirmer composer.ReferralConfirmer
	Orders    OrderStore
	Options   composer.Options
	Logger    *logrus.Logger
}

func NewViewHandler(views *composer.Registry, reports ReportLoader, confirmer composer.ReferralConfirmer, orders OrderStore, opts composer.Options, logger *logrus.Logger) *ViewHandler {
	return &ViewHandler{
		Views:     views,
		Reports:   reports,
		Confirmer: confirmer,
		Orders:    orders,
		Options:   opts,
		Logger:    logger,
	}
}

// ViewResponse is a composer snapshot tagged with its view id.
type ViewResponse struct {
	ViewID string `json:"viewId"`
	composer.Snapshot
}

func (h *ViewHandler) view(c *gin.Context) (*composer.Composer, bool) {
	userID, _ := middleware.GetUserIDFromContext(c)
	comp, ok := h.Views.Get(c.Param("viewId"))
	if !ok || comp.Owner() != userID {
		utils.NotFound(c, "View not found")
		return nil, false
	}
	return comp, true
}

func (h *ViewHandler) snapshot(c *gin.Context, comp *composer.Composer) ViewResponse {
	return ViewResponse{ViewID: c.Param("viewId"), Snapshot: comp.Snapshot()}
}

// OpenView handles opening a composer over a report.
func (h *ViewHandler) OpenView(c *gin.Context) {
	sess, ok := middleware.GetSessionFromContext(c)
	if !ok {
		utils.Unauthorized(c, "No active session")
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	r, err := h.Reports.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondBackendError(c, h.Logger, err)
		return
	}

	opts := h.Options
	opts.Owner = userID
	comp, err := composer.New(r, sess, h.Confirmer, opts)
	if err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}
	viewID := h.Views.Open(comp)

	h.Logger.WithFields(logrus.Fields{
		"view_id":   viewID,
		"report_id": r.ID,
		"user_id":   userID,
		"role":      role,
	}).Info("Report view opened")

	utils.Created(c, "View opened successfully", ViewResponse{ViewID: viewID, Snapshot: comp.Snapshot()})
}

// GetView handles fetching the current state of a view.
func (h *ViewHandler) GetView(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	utils.Success(c, "View retrieved successfully", h.snapshot(c, comp))
}

// CloseView handles closing a view. A confirmation still in flight is
// discarded when it returns.
func (h *ViewHandler) CloseView(c *gin.Context) {
	if _, ok := h.view(c); !ok {
		return
	}
	h.Views.Close(c.Param("viewId"))
	utils.Success(c, "View closed successfully", nil)
}

// ToggleSection handles expanding or collapsing one section.
func (h *ViewHandler) ToggleSection(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	comp.ToggleSection(composer.SectionID(c.Param("sectionId")))
	utils.Success(c, "Section toggled successfully", h.snapshot(c, comp))
}

// AddVariantActionRequest represents the request body for ordering a test.
type AddVariantActionRequest struct {
	VariantIndex *int   `json:"variantIndex" validate:"required,min=0"`
	ActionType   string `json:"actionType" validate:"required"`
}

// AddVariantAction handles ordering a confirmatory test against a variant.
func (h *ViewHandler) AddVariantAction(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	var req AddVariantActionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	variants := comp.Report().Variants
	if *req.VariantIndex >= len(variants) {
		utils.UnprocessableEntity(c, "variantIndex is out of range")
		return
	}
	actionType, err := models.ParseActionType(req.ActionType)
	if err != nil {
		utils.UnprocessableEntity(c, err.Error())
		return
	}

	action, err := comp.AddVariantAction(variants[*req.VariantIndex], actionType)
	if err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}
	utils.Created(c, "Variant action added successfully", action)
}

// UpdateVariantActionRequest represents the request body for changing a test.
type UpdateVariantActionRequest struct {
	ActionType string `json:"actionType" validate:"required"`
}

// UpdateVariantAction handles changing the test kind of an action.
func (h *ViewHandler) UpdateVariantAction(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	var req UpdateVariantActionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := comp.UpdateVariantAction(c.Param("actionId"), models.ActionType(req.ActionType)); err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Variant action updated successfully", h.snapshot(c, comp))
}

// RemoveVariantAction handles deleting an action. Unknown ids succeed.
func (h *ViewHandler) RemoveVariantAction(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	comp.RemoveVariantAction(c.Param("actionId"))
	utils.Success(c, "Variant action removed successfully", h.snapshot(c, comp))
}

// BeginReferralEdit handles starting a referral edit.
func (h *ViewHandler) BeginReferralEdit(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	message := "Referral edit started"
	if !comp.BeginReferralEdit() {
		message = "Referral not editable"
	}
	utils.Success(c, message, h.snapshot(c, comp))
}

// SetReferralFieldRequest represents the request body for editing the draft.
type SetReferralFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=specialty suggestedDate urgency bookedStatus"`
	Value string `json:"value"`
}

// SetReferralField handles editing one field of the referral draft.
func (h *ViewHandler) SetReferralField(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	var req SetReferralFieldRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := comp.SetReferralDraftField(req.Field, req.Value); err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Referral draft updated successfully", h.snapshot(c, comp))
}

// CancelReferralEdit handles discarding the referral draft.
func (h *ViewHandler) CancelReferralEdit(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	if err := comp.CancelReferralEdit(); err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Referral edit cancelled", h.snapshot(c, comp))
}

// ConfirmReferral handles submitting the referral draft to the backend. On
// success the confirmation is recorded locally and the cached report dropped.
func (h *ViewHandler) ConfirmReferral(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	// A client that disconnects must not cancel a submission the backend may
	// already be applying.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := comp.ConfirmReferral(ctx); err != nil {
		respondComposerError(c, h.Logger, err)
		return
	}

	snap := h.snapshot(c, comp)
	logger := h.Logger.WithFields(logrus.Fields{"view_id": snap.ViewID, "report_id": snap.ReportID})
	h.Reports.Invalidate(ctx, snap.ReportID)

	if snap.Referral != nil {
		userID, _ := middleware.GetUserIDFromContext(c)
		rec := &models.ReferralConfirmation{
			ReportID:      snap.ReportID,
			Specialty:     snap.Referral.Specialty,
			SuggestedDate: snap.Referral.SuggestedDate,
			Urgency:       snap.Referral.Urgency,
			ConfirmedBy:   userID,
		}
		if err := h.Orders.RecordReferralConfirmation(ctx, rec); err != nil {
			logger.WithError(err).Error("Failed to record referral confirmation")
		}
	}

	logger.Info("Referral confirmed")
	utils.Success(c, "Referral confirmed successfully", snap)
}

// StoryResponse carries the generated story and the backend's own summary, if
// it sent one.
type StoryResponse struct {
	Story   story.Output `json:"story"`
	Summary string       `json:"summary,omitempty"`
}

// GetStory handles generating the patient story for a view. format=html
// returns the printable page.
func (h *ViewHandler) GetStory(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}

	lang, err := story.ParseLanguage(c.DefaultQuery("language", string(story.English)))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	level, err := story.ParseLevel(c.DefaultQuery("level", string(story.Adult)))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	length, err := story.ParseLength(c.DefaultQuery("length", string(story.Standard)))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	out := comp.Story(lang, level, length)

	if c.Query("format") == "html" {
		var buf bytes.Buffer
		if err := story.RenderPrintPage(&buf, comp.Report(), lang, out); err != nil {
			h.Logger.WithError(err).Error("Failed to render print page")
			utils.InternalServerError(c, "Failed to render print page")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
		return
	}

	utils.Success(c, "Story generated successfully", StoryResponse{
		Story:   out,
		Summary: story.RelaySummary(comp.Report(), lang),
	})
}

// CreateTasks handles turning the ordered variant actions into persisted
// confirmatory orders. Actions that already have an order are skipped, so
// repeating the request is safe.
func (h *ViewHandler) CreateTasks(c *gin.Context) {
	comp, ok := h.view(c)
	if !ok {
		return
	}
	actions := comp.VariantActions()
	if len(actions) == 0 {
		utils.UnprocessableEntity(c, "No variant actions to create tasks from")
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Orders.ListOrders(ctx, comp.ReportID())
	if err != nil {
		h.Logger.WithError(err).WithField("report_id", comp.ReportID()).Error("Failed to list existing tasks")
		utils.InternalServerError(c, "Failed to create tasks")
		return
	}
	existing := make(map[string]bool, len(stored))
	for _, o := range stored {
		existing[o.ActionID] = true
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	orders := make([]models.ConfirmatoryOrder, 0, len(actions))
	for _, a := range actions {
		if existing[a.ID] {
			continue
		}
		orders = append(orders, models.ConfirmatoryOrder{
			ReportID:   comp.ReportID(),
			ActionID:   a.ID,
			Gene:       a.Variant.Gene,
			Mutation:   a.Variant.Mutation(),
			ActionType: a.ActionType,
			Label:      a.Label,
			OrderedBy:  userID,
		})
	}

	if len(orders) == 0 {
		utils.Success(c, "Tasks already created", orders)
		return
	}

	if err := h.Orders.CreateOrders(ctx, orders); err != nil {
		h.Logger.WithError(err).WithField("report_id", comp.ReportID()).Error("Failed to create tasks")
		utils.InternalServerError(c, "Failed to create tasks")
		return
	}
	utils.Created(c, "Tasks created successfully", orders)
}

// ListOrders handles listing persisted orders for a report.
func (h *ViewHandler) ListOrders(c *gin.Context) {
	orders, err := h.Orders.ListOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Logger.WithError(err).Error("Failed to list orders")
		utils.InternalServerError(c, "Failed to list orders")
		return
	}
	utils.Success(c, "Orders retrieved successfully", orders)
}
