package api

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/service"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TemplateHandler serves week templates of one plan kind.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs ---

// TemplateRequest is the full template tree. Updates replace the tree wholesale.
type TemplateRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Days        []TemplateDayRequest `json:"days" binding:"dive"`
}

// TemplateDayRequest is one weekday of a template; dayOfWeek is 0 (Mon) - 6 (Sun).
type TemplateDayRequest struct {
	DayOfWeek *int             `json:"dayOfWeek" binding:"required"`
	IsRestDay bool             `json:"isRestDay"`
	Sessions  []SessionRequest `json:"sessions"`
}

type SessionRequest struct {
	Name  string        `json:"name"`
	Order int           `json:"order"`
	Items []ItemRequest `json:"items"`
}

type ItemRequest struct {
	Name       string              `json:"name"`
	LibraryRef string              `json:"libraryRef"`
	Order      int                 `json:"order"`
	Planned    domain.Measurements `json:"planned"`
	Notes      string              `json:"notes"`
}

func mapTemplateRequest(req *TemplateRequest) (*domain.WeekTemplate, error) {
	tmpl := &domain.WeekTemplate{
		Name:        req.Name,
		Description: req.Description,
		Days:        make([]domain.TemplateDay, len(req.Days)),
	}
	for i := range req.Days {
		day, err := mapTemplateDayRequest(&req.Days[i], fmt.Sprintf("days[%d]", i))
		if err != nil {
			return nil, err
		}
		tmpl.Days[i] = day
	}
	return tmpl, nil
}

func mapTemplateDayRequest(req *TemplateDayRequest, field string) (domain.TemplateDay, error) {
	day := domain.TemplateDay{
		DayOfWeek: *req.DayOfWeek,
		IsRestDay: req.IsRestDay,
		Sessions:  make([]domain.Session, len(req.Sessions)),
	}
	for i, s := range req.Sessions {
		sess := domain.Session{Name: s.Name, Order: s.Order, Items: make([]domain.Item, len(s.Items))}
		for j, it := range s.Items {
			ref, err := optionalObjectID(it.LibraryRef, fmt.Sprintf("%s.sessions[%d].items[%d].libraryRef", field, i, j))
			if err != nil {
				return day, err
			}
			sess.Items[j] = domain.Item{Name: it.Name, LibraryRef: ref, Order: it.Order, Planned: it.Planned, Notes: it.Notes}
		}
		day.Sessions[i] = sess
	}
	return day, nil
}

// --- Handler Methods ---

// CreateTemplate godoc
// @Summary Create a week template for a subject
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path string true "Subject's ObjectID Hex"
// @Param template body TemplateRequest true "Template tree"
// @Success 201 {object} domain.WeekTemplate
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden (not a planner)"
// @Failure 409 {object} gin.H "Duplicate day of week"
// @Router /subjects/{subjectId}/{kind}/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	input, err := mapTemplateRequest(&req)
	if err != nil {
		abortWithServiceError(c, err, "create template")
		return
	}

	tmpl, err := h.templateService.Create(c.Request.Context(), getSubjectID(c), input)
	if err != nil {
		abortWithServiceError(c, err, "create template")
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// ListTemplates returns the subject's templates newest first; ?active=true hides deactivated ones.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	templates, err := h.templateService.List(c.Request.Context(), getSubjectID(c), activeOnly)
	if err != nil {
		abortWithServiceError(c, err, "retrieve templates")
		return
	}
	if templates == nil {
		templates = []domain.WeekTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId", "template")
	if !ok {
		return
	}
	tmpl, err := h.templateService.Get(c.Request.Context(), getSubjectID(c), templateID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// UpdateTemplate godoc
// @Summary Replace a template's name and whole day tree
// @Description Entries already materialized from the template are not changed.
// @Tags Templates
// @Router /subjects/{subjectId}/{kind}/templates/{templateId} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId", "template")
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	input, err := mapTemplateRequest(&req)
	if err != nil {
		abortWithServiceError(c, err, "update template")
		return
	}

	tmpl, err := h.templateService.Update(c.Request.Context(), getSubjectID(c), templateID, input)
	if err != nil {
		abortWithServiceError(c, err, "update template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) AddTemplateDay(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId", "template")
	if !ok {
		return
	}
	var req TemplateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	day, err := mapTemplateDayRequest(&req, "day")
	if err != nil {
		abortWithServiceError(c, err, "add template day")
		return
	}

	tmpl, err := h.templateService.AddDay(c.Request.Context(), getSubjectID(c), templateID, day)
	if err != nil {
		abortWithServiceError(c, err, "add template day")
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// DeactivateTemplate soft-deletes the template. Calendar entries keep their content.
func (h *TemplateHandler) DeactivateTemplate(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId", "template")
	if !ok {
		return
	}
	if err := h.templateService.Deactivate(c.Request.Context(), getSubjectID(c), templateID); err != nil {
		abortWithServiceError(c, err, "deactivate template")
		return
	}
	c.Status(http.StatusNoContent)
}
