package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/backend"
	"genomic-report-server/internal/composer"
	"genomic-report-server/internal/report"
	"genomic-report-server/internal/session"
	"genomic-report-server/internal/utils"
)

// respondBackendError maps a failed backend fetch to a client response.
func respondBackendError(c *gin.Context, logger *logrus.Logger, err error) {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, session.ErrNoSession):
		utils.Unauthorized(c, "No active session")
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		utils.NotFound(c, "Report not found")
	case errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden):
		utils.Error(c, statusErr.StatusCode, "Backend rejected the session")
	case errors.Is(err, report.ErrInvalidDocument):
		logger.WithError(err).Error("Backend returned a malformed report")
		utils.BadGateway(c, "Backend returned a malformed report")
	case errors.Is(err, backend.ErrUnavailable):
		logger.WithError(err).Warn("Backend request failed")
		utils.BadGateway(c, err.Error())
	default:
		logger.WithError(err).Error("Unexpected backend error")
		utils.InternalServerError(c, "Failed to reach backend: "+err.Error())
	}
}

// respondComposerError maps composer failures to client responses.
func respondComposerError(c *gin.Context, logger *logrus.Logger, err error) {
	var validationErr *composer.ValidationError
	var confirmErr *composer.ConfirmError
	switch {
	case errors.As(err, &validationErr):
		utils.UnprocessableEntity(c, validationErr.Error())
	case errors.Is(err, composer.ErrConfirmInFlight),
		errors.Is(err, composer.ErrNotEditing),
		errors.Is(err, composer.ErrDuplicateAction),
		errors.Is(err, composer.ErrAlreadyProcessed):
		utils.Conflict(c, err.Error())
	case errors.Is(err, composer.ErrComposerClosed):
		utils.NotFound(c, "View was closed")
	case errors.Is(err, session.ErrNoSession):
		utils.Unauthorized(c, "No active session")
	case errors.As(err, &confirmErr):
		logger.WithError(confirmErr.Err).Warn("Referral confirmation failed")
		utils.BadGateway(c, "Failed to confirm referral: "+confirmErr.Err.Error())
	default:
		logger.WithError(err).Error("Unexpected composer error")
		utils.InternalServerError(c, err.Error())
	}
}
