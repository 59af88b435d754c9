package api

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/service"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ProgressHandler serves body/performance samples and the weekly trend charts built on them.
type ProgressHandler struct {
	progressService service.ProgressService
	trendService    service.TrendService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService service.ProgressService, trendService service.TrendService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, trendService: trendService}
}

// RecordSampleRequest logs one measurement; measuredAt defaults to now.
type RecordSampleRequest struct {
	Metric     string     `json:"metric" binding:"required"`
	Value      *float64   `json:"value" binding:"required"`
	MeasuredAt *time.Time `json:"measuredAt"`
	Note       string     `json:"note"`
}

func (h *ProgressHandler) RecordSample(c *gin.Context) {
	var req RecordSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	var measuredAt time.Time
	if req.MeasuredAt != nil {
		measuredAt = *req.MeasuredAt
	}

	sample, err := h.progressService.Record(c.Request.Context(), getSubjectID(c), req.Metric, *req.Value, measuredAt, req.Note)
	if err != nil {
		abortWithServiceError(c, err, "record progress sample")
		return
	}
	c.JSON(http.StatusCreated, sample)
}

// ListSamples returns ?metric samples from ?from up to and including the ?to date.
func (h *ProgressHandler) ListSamples(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	samples, err := h.progressService.List(c.Request.Context(), getSubjectID(c), c.Query("metric"), from, to.AddDate(0, 0, 1))
	if err != nil {
		abortWithServiceError(c, err, "list progress samples")
		return
	}
	if samples == nil {
		samples = []domain.ProgressSample{}
	}
	c.JSON(http.StatusOK, samples)
}

// Trends godoc
// @Summary Weekly averages per metric
// @Description Weeks end on ?to (default today). Weeks without data may carry a synthetic value, flagged as such.
// @Tags Trends
// @Produce json
// @Security BearerAuth
// @Param metric query []string true "Metric names, repeated or comma separated"
// @Param weeks query int false "Number of weeks (1-52)"
// @Success 200 {array} service.TrendSeries
// @Router /subjects/{subjectId}/trends [get]
func (h *ProgressHandler) Trends(c *gin.Context) {
	var metrics []string
	for _, raw := range c.QueryArray("metric") {
		metrics = append(metrics, strings.Split(raw, ",")...)
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	weeks := 0
	if raw := c.Query("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "must be an integer", "field": "weeks"})
			return
		}
		weeks = n
	}

	series, err := h.trendService.Trends(c.Request.Context(), getSubjectID(c), metrics, to, weeks)
	if err != nil {
		abortWithServiceError(c, err, "compute trends")
		return
	}
	c.JSON(http.StatusOK, series)
}
