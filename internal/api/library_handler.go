package api

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LibraryHandler serves a planner's reusable foods or exercises.
type LibraryHandler struct {
	libraryService service.LibraryService
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(libraryService service.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// --- DTOs for API (Data Transfer Objects) ---

// LibraryItemRequest defines the expected JSON for creating or updating a library item.
type LibraryItemRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Category    string              `json:"category"` // e.g., "Chest", "Grains"
	Defaults    domain.Measurements `json:"defaults"`
}

// LibraryItemResponse is the DTO for returning library item details.
type LibraryItemResponse struct {
	ID          string              `json:"id"`
	Kind        domain.PlanKind     `json:"kind"`
	OwnerID     string              `json:"ownerId"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Defaults    domain.Measurements `json:"defaults"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// MapLibraryItemToResponse converts a domain.LibraryItem to LibraryItemResponse DTO.
func MapLibraryItemToResponse(item *domain.LibraryItem) LibraryItemResponse {
	if item == nil {
		return LibraryItemResponse{}
	}
	return LibraryItemResponse{
		ID:          item.ID.Hex(),
		Kind:        item.Kind,
		OwnerID:     item.OwnerID.Hex(),
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Defaults:    item.Defaults,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// MapLibraryItemsToResponse converts a slice of domain.LibraryItem to a slice of LibraryItemResponse DTO.
func MapLibraryItemsToResponse(items []domain.LibraryItem) []LibraryItemResponse {
	responses := make([]LibraryItemResponse, len(items))
	for i := range items {
		responses[i] = MapLibraryItemToResponse(&items[i])
	}
	return responses
}

func (req *LibraryItemRequest) toDomain() *domain.LibraryItem {
	return &domain.LibraryItem{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Defaults:    req.Defaults,
	}
}

// --- Handler Methods ---

// CreateItem godoc
// @Summary Create a new library item
// @Description Creates a food or exercise definition for the authenticated planner.
// @Tags Library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body LibraryItemRequest true "Library item details"
// @Success 201 {object} LibraryItemResponse "Library item created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a planner)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /library/{kind} [post]
func (h *LibraryHandler) CreateItem(c *gin.Context) {
	var req LibraryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	plannerID, ok := getUserObjectID(c)
	if !ok {
		return
	}

	item, err := h.libraryService.Create(c.Request.Context(), plannerID, req.toDomain())
	if err != nil {
		abortWithServiceError(c, err, "create library item")
		return
	}
	c.JSON(http.StatusCreated, MapLibraryItemToResponse(item))
}

// GetPlannerItems godoc
// @Summary Get library items of the authenticated planner
// @Tags Library
// @Produce json
// @Security BearerAuth
// @Success 200 {array} LibraryItemResponse "List of library items"
// @Router /library/{kind} [get]
func (h *LibraryHandler) GetPlannerItems(c *gin.Context) {
	plannerID, ok := getUserObjectID(c)
	if !ok {
		return
	}

	items, err := h.libraryService.ListByOwner(c.Request.Context(), plannerID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve library items")
		return
	}
	c.JSON(http.StatusOK, MapLibraryItemsToResponse(items))
}

func (h *LibraryHandler) GetItem(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId", "library item")
	if !ok {
		return
	}
	item, err := h.libraryService.Get(c.Request.Context(), itemID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve library item")
		return
	}
	c.JSON(http.StatusOK, MapLibraryItemToResponse(item))
}

// UpdateItem replaces the item's fields; only its owner may change it.
func (h *LibraryHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathObjectID(c, "itemId", "library item")
	if !ok {
		return
	}
	var req LibraryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	plannerID, ok := getUserObjectID(c)
	if !ok {
		return
	}

	item, err := h.libraryService.Update(c.Request.Context(), plannerID, itemID, req.toDomain())
	if err != nil {
		abortWithServiceError(c, err, "update library item")
		return
	}
	c.JSON(http.StatusOK, MapLibraryItemToResponse(item))
}
