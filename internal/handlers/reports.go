package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/models"
	"genomic-report-server/internal/report"
	"genomic-report-server/internal/utils"
)

// ReportLoader fetches and decodes a report with the caller's session.
type ReportLoader interface {
	Load(ctx context.Context, id string) (*models.ClinicalReport, error)
	Invalidate(ctx context.Context, id string)
}

// AnalysisLister returns the raw multi-patient overview.
type AnalysisLister interface {
	ListAnalysisResults(ctx context.Context) ([]byte, error)
}

// ReportHandler proxies read-only report data from the backend.
type ReportHandler struct {
	Reports  ReportLoader
	Analysis AnalysisLister
	Logger   *logrus.Logger
}

func NewReportHandler(reports ReportLoader, analysis AnalysisLister, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{Reports: reports, Analysis: analysis, Logger: logger}
}

// GetReport handles fetching one decoded report.
func (h *ReportHandler) GetReport(c *gin.Context) {
	id := c.Param("id")
	r, err := h.Reports.Load(c.Request.Context(), id)
	if err != nil {
		respondBackendError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Report retrieved successfully", r)
}

// ListAnalysisResults handles the multi-patient overview.
func (h *ReportHandler) ListAnalysisResults(c *gin.Context) {
	raw, err := h.Analysis.ListAnalysisResults(c.Request.Context())
	if err != nil {
		respondBackendError(c, h.Logger, err)
		return
	}
	results, err := report.DecodeAnalysisResults(raw)
	if err != nil {
		respondBackendError(c, h.Logger, err)
		return
	}
	utils.Success(c, "Analysis results retrieved successfully", results)
}
