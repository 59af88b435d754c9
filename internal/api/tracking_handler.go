package api

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackingHandler serves the tracking ledger of one plan kind.
type TrackingHandler struct {
	trackingService service.TrackingService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(trackingService service.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService}
}

// --- DTOs ---

// UpsertTrackingRequest addresses the whole day (entry only), a session, or an
// item. sessionId may be omitted for an item.
type UpsertTrackingRequest struct {
	EntryID   string                  `json:"entryId" binding:"required"`
	SessionID string                  `json:"sessionId"`
	ItemID    string                  `json:"itemId"`
	Status    domain.CompletionStatus `json:"status"`
	Actual    domain.Measurements     `json:"actual"`
	Notes     string                  `json:"notes"`
}

// RequestUploadURLRequest names the media type the client will PUT.
type RequestUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// AttachMediaRequest reports a finished upload.
type AttachMediaRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size" binding:"gte=0"`
}

// MediaDownloadURLResponse wraps a presigned GET URL.
type MediaDownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

func mapUpsertTrackingRequest(req *UpsertTrackingRequest) (service.UpsertInput, error) {
	in := service.UpsertInput{Status: req.Status, Actual: req.Actual, Notes: req.Notes}
	entryID, err := primitive.ObjectIDFromHex(req.EntryID)
	if err != nil {
		return in, &service.InputError{Field: "entryId", Reason: "invalid id format"}
	}
	in.Key.EntryID = entryID
	if in.Key.SessionID, err = optionalObjectID(req.SessionID, "sessionId"); err != nil {
		return in, err
	}
	if in.Key.ItemID, err = optionalObjectID(req.ItemID, "itemId"); err != nil {
		return in, err
	}
	return in, nil
}

// --- Handler Methods ---

// UpsertRecord godoc
// @Summary Record what happened for a day, session or item
// @Description Writes the record for the key in place; the first write creates it.
// @Tags Tracking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param record body UpsertTrackingRequest true "Tracking key, status and actuals"
// @Success 200 {object} domain.TrackingRecord
// @Failure 400 {object} gin.H "Invalid key or status"
// @Failure 404 {object} gin.H "Calendar entry not found"
// @Router /subjects/{subjectId}/{kind}/tracking [put]
func (h *TrackingHandler) UpsertRecord(c *gin.Context) {
	var req UpsertTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	in, err := mapUpsertTrackingRequest(&req)
	if err != nil {
		abortWithServiceError(c, err, "record tracking")
		return
	}

	record, err := h.trackingService.Upsert(c.Request.Context(), getSubjectID(c), in)
	if err != nil {
		abortWithServiceError(c, err, "record tracking")
		return
	}
	c.JSON(http.StatusOK, record)
}

// QueryRecords returns records of ?entryId, or else those tracked between ?from and ?to.
func (h *TrackingHandler) QueryRecords(c *gin.Context) {
	subjectID := getSubjectID(c)
	var (
		records []domain.TrackingRecord
		err     error
	)
	if raw := c.Query("entryId"); raw != "" {
		entryID, parseErr := primitive.ObjectIDFromHex(raw)
		if parseErr != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid entry ID format.")
			return
		}
		records, err = h.trackingService.ListForEntry(c.Request.Context(), subjectID, entryID)
	} else {
		from, ok := queryDate(c, "from")
		if !ok {
			return
		}
		to, ok := queryDate(c, "to")
		if !ok {
			return
		}
		records, err = h.trackingService.Query(c.Request.Context(), subjectID, from, to)
	}
	if err != nil {
		abortWithServiceError(c, err, "query tracking records")
		return
	}
	if records == nil {
		records = []domain.TrackingRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *TrackingHandler) GetRecord(c *gin.Context) {
	recordID, ok := pathObjectID(c, "recordId", "record")
	if !ok {
		return
	}
	record, err := h.trackingService.Get(c.Request.Context(), getSubjectID(c), recordID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve tracking record")
		return
	}
	c.JSON(http.StatusOK, record)
}

// RequestMediaUploadURL godoc
// @Summary Get a presigned URL to upload a photo or video for a record
// @Tags Tracking Media
// @Success 200 {object} service.UploadURLResponse
// @Failure 503 {object} gin.H "Media storage not configured"
// @Router /subjects/{subjectId}/{kind}/tracking/{recordId}/media/upload-url [post]
func (h *TrackingHandler) RequestMediaUploadURL(c *gin.Context) {
	recordID, ok := pathObjectID(c, "recordId", "record")
	if !ok {
		return
	}
	var req RequestUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.trackingService.RequestMediaUploadURL(c.Request.Context(), getSubjectID(c), recordID, req.ContentType)
	if err != nil {
		abortWithServiceError(c, err, "generate upload URL")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TrackingHandler) AttachMedia(c *gin.Context) {
	recordID, ok := pathObjectID(c, "recordId", "record")
	if !ok {
		return
	}
	var req AttachMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	record, err := h.trackingService.AttachMedia(c.Request.Context(), getSubjectID(c), recordID, domain.MediaRef{
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		FileName:    req.FileName,
		Size:        req.Size,
	})
	if err != nil {
		abortWithServiceError(c, err, "attach media")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *TrackingHandler) MediaDownloadURL(c *gin.Context) {
	recordID, ok := pathObjectID(c, "recordId", "record")
	if !ok {
		return
	}
	objectKey := c.Query("key")
	if objectKey == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'key' is required.")
		return
	}

	url, err := h.trackingService.MediaDownloadURL(c.Request.Context(), getSubjectID(c), recordID, objectKey)
	if err != nil {
		abortWithServiceError(c, err, "generate download URL")
		return
	}
	c.JSON(http.StatusOK, MediaDownloadURLResponse{DownloadURL: url})
}

// DetachMedia removes the ?key attachment from the record and deletes the object.
func (h *TrackingHandler) DetachMedia(c *gin.Context) {
	recordID, ok := pathObjectID(c, "recordId", "record")
	if !ok {
		return
	}
	objectKey := c.Query("key")
	if objectKey == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'key' is required.")
		return
	}

	record, err := h.trackingService.DetachMedia(c.Request.Context(), getSubjectID(c), recordID, objectKey)
	if err != nil {
		abortWithServiceError(c, err, "detach media")
		return
	}
	c.JSON(http.StatusOK, record)
}
