package api

import (
	"alcyxob/adherence-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SummaryHandler serves adherence rollups of one plan kind. Rollups are read-only.
type SummaryHandler struct {
	rollupService service.RollupService
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(rollupService service.RollupService) *SummaryHandler {
	return &SummaryHandler{rollupService: rollupService}
}

// DaySummary godoc
// @Summary Adherence of one date
// @Tags Summary
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} service.DaySummary
// @Router /subjects/{subjectId}/{kind}/summary/day/{date} [get]
func (h *SummaryHandler) DaySummary(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	sum, err := h.rollupService.Day(c.Request.Context(), getSubjectID(c), date)
	if err != nil {
		abortWithServiceError(c, err, "summarize day")
		return
	}
	c.JSON(http.StatusOK, sum)
}

// WeekSummary covers the Monday..Sunday week containing the date.
func (h *SummaryHandler) WeekSummary(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	sum, err := h.rollupService.Week(c.Request.Context(), getSubjectID(c), date)
	if err != nil {
		abortWithServiceError(c, err, "summarize week")
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Streak counts back from ?asOf (default today).
func (h *SummaryHandler) Streak(c *gin.Context) {
	asOf, ok := queryDate(c, "asOf")
	if !ok {
		return
	}
	streak, err := h.rollupService.Streak(c.Request.Context(), getSubjectID(c), asOf)
	if err != nil {
		abortWithServiceError(c, err, "compute streak")
		return
	}
	c.JSON(http.StatusOK, streak)
}
