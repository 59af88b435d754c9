package api

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CalendarHandler serves the dated calendar of one plan kind.
type CalendarHandler struct {
	calendarService service.CalendarService
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(calendarService service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// --- DTOs ---

// MaterializeRequest optionally pins the source template.
type MaterializeRequest struct {
	TemplateID string `json:"templateId"`
}

// OverrideRequest is the complete replacement session list for a date.
type OverrideRequest struct {
	Sessions []CalendarSessionRequest `json:"sessions"`
}

// CalendarSessionRequest keeps the id of an existing session so its tracking
// records stay attached; omit it for a new session.
type CalendarSessionRequest struct {
	ID    string                `json:"id"`
	Name  string                `json:"name"`
	Order int                   `json:"order"`
	Items []CalendarItemRequest `json:"items"`
}

type CalendarItemRequest struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	LibraryRef string              `json:"libraryRef"`
	Order      int                 `json:"order"`
	Planned    domain.Measurements `json:"planned"`
	Notes      string              `json:"notes"`
}

// ResolveResponse distinguishes "nothing materialized yet" from an empty day.
type ResolveResponse struct {
	Materialized bool                  `json:"materialized"`
	Entry        *domain.CalendarEntry `json:"entry,omitempty"`
}

func mapCalendarSessionRequest(req CalendarSessionRequest, field string) (domain.CalendarSession, error) {
	var sess domain.CalendarSession
	id, err := optionalObjectID(req.ID, field+".id")
	if err != nil {
		return sess, err
	}
	if id != nil {
		sess.ID = *id
	}
	sess.Name = req.Name
	sess.Order = req.Order
	sess.Items = make([]domain.CalendarItem, len(req.Items))
	for j, it := range req.Items {
		item, err := mapCalendarItemRequest(it, fmt.Sprintf("%s.items[%d]", field, j))
		if err != nil {
			return sess, err
		}
		sess.Items[j] = item
	}
	return sess, nil
}

func mapCalendarItemRequest(req CalendarItemRequest, field string) (domain.CalendarItem, error) {
	item := domain.CalendarItem{Name: req.Name, Order: req.Order, Planned: req.Planned, Notes: req.Notes}
	id, err := optionalObjectID(req.ID, field+".id")
	if err != nil {
		return item, err
	}
	if id != nil {
		item.ID = *id
	}
	if item.LibraryRef, err = optionalObjectID(req.LibraryRef, field+".libraryRef"); err != nil {
		return item, err
	}
	return item, nil
}

// --- Handler Methods ---

// ResolveDay godoc
// @Summary Read the calendar entry of a date without creating it
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} ResolveResponse
// @Router /subjects/{subjectId}/{kind}/calendar/{date} [get]
func (h *CalendarHandler) ResolveDay(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	entry, found, err := h.calendarService.Resolve(c.Request.Context(), getSubjectID(c), date)
	if err != nil {
		abortWithServiceError(c, err, "resolve calendar entry")
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{Materialized: found, Entry: entry})
}

// ListRange returns entries between ?from and ?to, inclusive.
func (h *CalendarHandler) ListRange(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	entries, err := h.calendarService.ListRange(c.Request.Context(), getSubjectID(c), from, to)
	if err != nil {
		abortWithServiceError(c, err, "list calendar entries")
		return
	}
	if entries == nil {
		entries = []domain.CalendarEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// Materialize godoc
// @Summary Create the date's entry from a template, or return the existing one
// @Description Repeated calls return the same entry unchanged.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MaterializeRequest false "Optional template"
// @Success 200 {object} domain.CalendarEntry
// @Failure 404 {object} gin.H "Template not found or no active template"
// @Router /subjects/{subjectId}/{kind}/calendar/{date}/materialize [post]
func (h *CalendarHandler) Materialize(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	var req MaterializeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	templateID, err := optionalObjectID(req.TemplateID, "templateId")
	if err != nil {
		abortWithServiceError(c, err, "materialize calendar entry")
		return
	}

	entry, err := h.calendarService.MaterializeFromTemplate(c.Request.Context(), getSubjectID(c), date, templateID)
	if err != nil {
		abortWithServiceError(c, err, "materialize calendar entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Override godoc
// @Summary Replace the date's session list
// @Description The entry is marked overridden permanently and never re-synced with its template.
// @Tags Calendar
// @Router /subjects/{subjectId}/{kind}/calendar/{date} [put]
func (h *CalendarHandler) Override(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sessions := make([]domain.CalendarSession, len(req.Sessions))
	for i, s := range req.Sessions {
		sess, err := mapCalendarSessionRequest(s, fmt.Sprintf("sessions[%d]", i))
		if err != nil {
			abortWithServiceError(c, err, "override calendar entry")
			return
		}
		sessions[i] = sess
	}

	entry, err := h.calendarService.ApplyOverride(c.Request.Context(), getSubjectID(c), date, sessions)
	if err != nil {
		abortWithServiceError(c, err, "override calendar entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CalendarHandler) AddSession(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	var req CalendarSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, err := mapCalendarSessionRequest(req, "session")
	if err != nil {
		abortWithServiceError(c, err, "add session")
		return
	}

	entry, err := h.calendarService.AddSession(c.Request.Context(), getSubjectID(c), date, sess)
	if err != nil {
		abortWithServiceError(c, err, "add session")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CalendarHandler) RemoveSession(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId", "session")
	if !ok {
		return
	}
	entry, err := h.calendarService.RemoveSession(c.Request.Context(), getSubjectID(c), date, sessionID)
	if err != nil {
		abortWithServiceError(c, err, "remove session")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CalendarHandler) AddItem(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId", "session")
	if !ok {
		return
	}
	var req CalendarItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	item, err := mapCalendarItemRequest(req, "item")
	if err != nil {
		abortWithServiceError(c, err, "add item")
		return
	}

	entry, err := h.calendarService.AddItem(c.Request.Context(), getSubjectID(c), date, sessionID, item)
	if err != nil {
		abortWithServiceError(c, err, "add item")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *CalendarHandler) RemoveItem(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId", "session")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(c, "itemId", "item")
	if !ok {
		return
	}
	entry, err := h.calendarService.RemoveItem(c.Request.Context(), getSubjectID(c), date, sessionID, itemID)
	if err != nil {
		abortWithServiceError(c, err, "remove item")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Rematerialize refreshes an untouched entry from its template; 409 once overridden.
func (h *CalendarHandler) Rematerialize(c *gin.Context) {
	date, ok := pathDate(c, "date")
	if !ok {
		return
	}
	entry, err := h.calendarService.Rematerialize(c.Request.Context(), getSubjectID(c), date)
	if err != nil {
		abortWithServiceError(c, err, "rematerialize calendar entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}
