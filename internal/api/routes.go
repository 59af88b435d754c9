package api

import (
	"alcyxob/adherence-app/internal/domain" // Needed for RoleMiddleware
	"alcyxob/adherence-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlanServices bundles the services of one plan kind.
type PlanServices struct {
	Templates service.TemplateService
	Calendar  service.CalendarService
	Tracking  service.TrackingService
	Rollup    service.RollupService
	Library   service.LibraryService
}

// kindSegment is the plural route segment of a kind ("meals", "exercises").
func kindSegment(kind domain.PlanKind) string {
	return string(kind) + "s"
}

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	plans map[domain.PlanKind]PlanServices,
	progressService service.ProgressService,
	trendService service.TrendService,
) {
	authMiddleware := AuthMiddleware(jwtSecret)
	plannerOnly := RoleMiddleware(domain.RolePlanner)
	progressHandler := NewProgressHandler(progressService, trendService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		subjectGroup := protected.Group("/subjects/:subjectId")
		subjectGroup.Use(SubjectAccessMiddleware())
		{
			// GET|POST /api/v1/subjects/{subjectId}/progress
			subjectGroup.GET("/progress", progressHandler.ListSamples)
			subjectGroup.POST("/progress", progressHandler.RecordSample)
			// GET /api/v1/subjects/{subjectId}/trends?metric=weight&weeks=8
			subjectGroup.GET("/trends", progressHandler.Trends)
		}

		for kind, svc := range plans {
			segment := kindSegment(kind)
			registerPlanRoutes(subjectGroup.Group("/"+segment), svc, plannerOnly)

			// --- Library Routes ---
			libraryHandler := NewLibraryHandler(svc.Library)
			libraryGroup := protected.Group("/library/" + segment)
			{
				libraryGroup.POST("", plannerOnly, libraryHandler.CreateItem)
				libraryGroup.GET("", plannerOnly, libraryHandler.GetPlannerItems)
				libraryGroup.GET("/:itemId", libraryHandler.GetItem)
				libraryGroup.PUT("/:itemId", plannerOnly, libraryHandler.UpdateItem)
			}
		}
	}
}

// registerPlanRoutes mounts one kind's templates, calendar, tracking and
// summaries under /api/v1/subjects/{subjectId}/{kind}.
func registerPlanRoutes(group *gin.RouterGroup, svc PlanServices, plannerOnly gin.HandlerFunc) {
	templateHandler := NewTemplateHandler(svc.Templates)
	calendarHandler := NewCalendarHandler(svc.Calendar)
	trackingHandler := NewTrackingHandler(svc.Tracking)
	summaryHandler := NewSummaryHandler(svc.Rollup)

	// --- Template Routes (planners write, both read) ---
	templates := group.Group("/templates")
	{
		templates.POST("", plannerOnly, templateHandler.CreateTemplate)
		templates.GET("", templateHandler.ListTemplates)
		templates.GET("/:templateId", templateHandler.GetTemplate)
		templates.PUT("/:templateId", plannerOnly, templateHandler.UpdateTemplate)
		templates.POST("/:templateId/days", plannerOnly, templateHandler.AddTemplateDay)
		templates.DELETE("/:templateId", plannerOnly, templateHandler.DeactivateTemplate)
	}

	// --- Calendar Routes ---
	calendar := group.Group("/calendar")
	{
		calendar.GET("", calendarHandler.ListRange)
		calendar.GET("/:date", calendarHandler.ResolveDay)
		calendar.PUT("/:date", calendarHandler.Override)
		calendar.POST("/:date/materialize", calendarHandler.Materialize)
		calendar.POST("/:date/rematerialize", calendarHandler.Rematerialize)
		calendar.POST("/:date/sessions", calendarHandler.AddSession)
		calendar.DELETE("/:date/sessions/:sessionId", calendarHandler.RemoveSession)
		calendar.POST("/:date/sessions/:sessionId/items", calendarHandler.AddItem)
		calendar.DELETE("/:date/sessions/:sessionId/items/:itemId", calendarHandler.RemoveItem)
	}

	// --- Tracking Routes ---
	tracking := group.Group("/tracking")
	{
		tracking.PUT("", trackingHandler.UpsertRecord)
		tracking.GET("", trackingHandler.QueryRecords)
		tracking.GET("/:recordId", trackingHandler.GetRecord)
		tracking.POST("/:recordId/media/upload-url", trackingHandler.RequestMediaUploadURL)
		tracking.POST("/:recordId/media", trackingHandler.AttachMedia)
		tracking.GET("/:recordId/media/download-url", trackingHandler.MediaDownloadURL)
		tracking.DELETE("/:recordId/media", trackingHandler.DetachMedia)
	}

	// --- Summary Routes ---
	summary := group.Group("/summary")
	{
		summary.GET("/day/:date", summaryHandler.DaySummary)
		summary.GET("/week/:date", summaryHandler.WeekSummary)
		summary.GET("/streak", summaryHandler.Streak)
	}
}
