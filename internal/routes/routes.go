package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/composer"
	"genomic-report-server/internal/config"
	"genomic-report-server/internal/handlers"
	"genomic-report-server/internal/middleware"
	"genomic-report-server/internal/models"
)

// Dependencies are the collaborators the route handlers are built from.
type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Reports   handlers.ReportLoader
	Analysis  handlers.AnalysisLister
	Confirmer composer.ReferralConfirmer
	Orders    handlers.OrderStore
	Views     *composer.Registry
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	// Initialize handlers
	storyHandler := handlers.NewStoryHandler(deps.Logger)
	reportHandler := handlers.NewReportHandler(deps.Reports, deps.Analysis, deps.Logger)
	viewHandler := handlers.NewViewHandler(deps.Views, deps.Reports, deps.Confirmer, deps.Orders, composer.Options{
		RejectDuplicateActions: cfg.Composer.RejectDuplicateActions,
		Clinics:                cfg.Composer.Clinics,
	}, deps.Logger)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		// Story generation is pure and reads nothing from the backend
		public.POST("/stories", storyHandler.GenerateStory)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		private.GET("/analysis-results", reportHandler.ListAnalysisResults)

		reportRoutes := private.Group("/reports")
		{
			reportRoutes.GET("/:id", reportHandler.GetReport)
			reportRoutes.POST("/:id/views", viewHandler.OpenView)
			reportRoutes.GET("/:id/orders", viewHandler.ListOrders)
		}

		viewRoutes := private.Group("/views/:viewId")
		{
			viewRoutes.GET("", viewHandler.GetView)
			viewRoutes.DELETE("", viewHandler.CloseView)
			viewRoutes.POST("/sections/:sectionId/toggle", viewHandler.ToggleSection)

			viewRoutes.POST("/actions", viewHandler.AddVariantAction)
			viewRoutes.PATCH("/actions/:actionId", viewHandler.UpdateVariantAction)
			viewRoutes.DELETE("/actions/:actionId", viewHandler.RemoveVariantAction)

			viewRoutes.POST("/referral/edit", viewHandler.BeginReferralEdit)
			viewRoutes.DELETE("/referral/edit", viewHandler.CancelReferralEdit)
			viewRoutes.PATCH("/referral", viewHandler.SetReferralField)

			viewRoutes.GET("/story", viewHandler.GetStory)

			// Only clinicians sign off on referrals and lab orders
			clinician := viewRoutes.Group("")
			clinician.Use(middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin))
			{
				clinician.POST("/referral/confirm", viewHandler.ConfirmReferral)
				clinician.POST("/tasks", viewHandler.CreateTasks)
			}
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "openViews": deps.Views.Len()})
	})
}
