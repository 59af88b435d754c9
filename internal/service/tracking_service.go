package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"alcyxob/adherence-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Service Interface ---

// UpsertInput is one ledger write. Key.SessionID may be omitted for an item
// key; it is filled with the item's owning session.
type UpsertInput struct {
	Key    domain.TrackingKey
	Status domain.CompletionStatus
	Actual domain.Measurements
	Notes  string
}

// UploadURLResponse carries a presigned PUT URL and the key to report back.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// TrackingService is the ledger of what actually happened. Upsert is the only
// write path; records are never deleted.
type TrackingService interface {
	Upsert(ctx context.Context, subjectID primitive.ObjectID, in UpsertInput) (*domain.TrackingRecord, error)
	Get(ctx context.Context, subjectID, recordID primitive.ObjectID) (*domain.TrackingRecord, error)
	ListForEntry(ctx context.Context, subjectID, entryID primitive.ObjectID) ([]domain.TrackingRecord, error)
	// Query returns the subject's records tracked between from and to, inclusive.
	Query(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error)

	RequestMediaUploadURL(ctx context.Context, subjectID, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	AttachMedia(ctx context.Context, subjectID, recordID primitive.ObjectID, ref domain.MediaRef) (*domain.TrackingRecord, error)
	MediaDownloadURL(ctx context.Context, subjectID, recordID primitive.ObjectID, objectKey string) (string, error)
	// DetachMedia drops one media reference and deletes the stored object. The record itself stays.
	DetachMedia(ctx context.Context, subjectID, recordID primitive.ObjectID, objectKey string) (*domain.TrackingRecord, error)
}

// --- Service Implementation ---

type trackingService struct {
	kind         domain.PlanKind
	trackingRepo repository.TrackingRepository
	calendarRepo repository.CalendarRepository
	fileStorage  storage.FileStorage // nil disables media
	now          func() time.Time
}

// NewTrackingService creates the ledger for one plan kind. fileStorage may be nil.
func NewTrackingService(
	kind domain.PlanKind,
	trackingRepo repository.TrackingRepository,
	calendarRepo repository.CalendarRepository,
	fileStorage storage.FileStorage,
) TrackingService {
	return &trackingService{
		kind:         kind,
		trackingRepo: trackingRepo,
		calendarRepo: calendarRepo,
		fileStorage:  fileStorage,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Upsert writes the record for the key in place, creating it on first use.
func (s *trackingService) Upsert(ctx context.Context, subjectID primitive.ObjectID, in UpsertInput) (*domain.TrackingRecord, error) {
	// 1. Validate Input
	if in.Status == "" {
		in.Status = domain.StatusPending
	}
	if !in.Status.Valid() {
		return nil, invalid("status", "unknown status %q", in.Status)
	}
	if err := checkMeasurements(s.kind, in.Actual, "actual"); err != nil {
		return nil, err
	}

	// 2. Resolve the key against the entry it references
	entry, err := s.entryFor(ctx, subjectID, in.Key.EntryID)
	if err != nil {
		return nil, err
	}
	key, err := normalizeKey(entry, in.Key)
	if err != nil {
		return nil, err
	}
	if key.IsItemLevel() && in.Status == domain.StatusPartial {
		return nil, invalid("status", "partial applies to sessions only; an item is completed or not")
	}

	// 3. Carry over what this write does not replace
	record := &domain.TrackingRecord{
		SubjectID:   subjectID,
		TrackingKey: key,
		TrackedDate: entry.Date,
		Status:      in.Status,
		Actual:      in.Actual.Clone(),
		Notes:       strings.TrimSpace(in.Notes),
	}
	existing, err := s.trackingRepo.GetByKey(ctx, key)
	switch {
	case err == nil:
		record.Media = existing.Media
		record.CompletedAt = existing.CompletedAt
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	if record.Status == domain.StatusCompleted && record.CompletedAt == nil {
		at := s.now()
		record.CompletedAt = &at
	}

	// 4. Persist
	inserted, err := s.trackingRepo.Upsert(ctx, record)
	if err != nil {
		return nil, err
	}
	op := "update"
	if inserted {
		op = "insert"
	}
	trackingUpsertsTotal.WithLabelValues(string(s.kind), op).Inc()
	return record, nil
}

// entryFor loads an entry and hides entries of other subjects.
func (s *trackingService) entryFor(ctx context.Context, subjectID, entryID primitive.ObjectID) (*domain.CalendarEntry, error) {
	if entryID == primitive.NilObjectID {
		return nil, invalid("entryId", "entry is required")
	}
	entry, err := s.calendarRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if entry.SubjectID != subjectID {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// normalizeKey checks that the session and item belong to the entry and fills
// in the session of an item-only key.
func normalizeKey(entry *domain.CalendarEntry, key domain.TrackingKey) (domain.TrackingKey, error) {
	out := domain.TrackingKey{EntryID: entry.ID}
	if key.SessionID != nil {
		sess, ok := entry.Session(*key.SessionID)
		if !ok {
			return out, invalid("sessionId", "session %s is not part of entry %s", key.SessionID.Hex(), entry.ID.Hex())
		}
		sid := sess.ID
		out.SessionID = &sid
		if key.ItemID != nil {
			if !sess.HasItem(*key.ItemID) {
				return out, invalid("itemId", "item %s is not part of session %s", key.ItemID.Hex(), sess.ID.Hex())
			}
			iid := *key.ItemID
			out.ItemID = &iid
		}
		return out, nil
	}
	if key.ItemID != nil {
		sess, ok := entry.SessionOfItem(*key.ItemID)
		if !ok {
			return out, invalid("itemId", "item %s is not part of entry %s", key.ItemID.Hex(), entry.ID.Hex())
		}
		sid, iid := sess.ID, *key.ItemID
		out.SessionID = &sid
		out.ItemID = &iid
	}
	return out, nil
}

func (s *trackingService) Get(ctx context.Context, subjectID, recordID primitive.ObjectID) (*domain.TrackingRecord, error) {
	record, err := s.trackingRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if record.SubjectID != subjectID {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (s *trackingService) ListForEntry(ctx context.Context, subjectID, entryID primitive.ObjectID) ([]domain.TrackingRecord, error) {
	if _, err := s.entryFor(ctx, subjectID, entryID); err != nil {
		return nil, err
	}
	return s.trackingRepo.ListByEntry(ctx, entryID)
}

func (s *trackingService) Query(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.trackingRepo.ListBySubjectAndRange(ctx, subjectID, from, to)
}

// === Media ===

// parseMediaType accepts image/* and video/* content types and returns the bare media type.
func parseMediaType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !(strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/")) {
		return "", invalid("contentType", "an image/* or video/* content type is required")
	}
	return mediaType, nil
}

func mediaPrefix(subjectID, recordID primitive.ObjectID) string {
	return path.Join("tracking", subjectID.Hex(), recordID.Hex()) + "/"
}

// RequestMediaUploadURL generates a presigned URL for a photo or video of a tracked unit.
func (s *trackingService) RequestMediaUploadURL(ctx context.Context, subjectID, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if s.fileStorage == nil {
		return nil, ErrMediaUnavailable
	}
	mediaType, err := parseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, subjectID, recordID); err != nil {
		return nil, err
	}

	fileExtension := mediaType[strings.Index(mediaType, "/")+1:]
	objectKey := mediaPrefix(subjectID, recordID) + fmt.Sprintf("%s.%s", uuid.NewString(), fileExtension)

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, mediaType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload URL: %w", err)
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// AttachMedia records an uploaded object on the record. The write goes
// through the same keyed upsert as every other ledger change.
func (s *trackingService) AttachMedia(ctx context.Context, subjectID, recordID primitive.ObjectID, ref domain.MediaRef) (*domain.TrackingRecord, error) {
	if !strings.HasPrefix(ref.ObjectKey, mediaPrefix(subjectID, recordID)) {
		return nil, invalid("objectKey", "object key was not issued for this record")
	}
	// The presigned PUT does not pin the content type, so it is checked here
	// against the key's extension.
	mediaType, err := parseMediaType(ref.ContentType)
	if err != nil {
		return nil, err
	}
	if ext := path.Ext(ref.ObjectKey); ext != "."+mediaType[strings.Index(mediaType, "/")+1:] {
		return nil, invalid("contentType", "%s does not match the issued key", mediaType)
	}
	ref.ContentType = mediaType
	record, err := s.Get(ctx, subjectID, recordID)
	if err != nil {
		return nil, err
	}
	for _, m := range record.Media {
		if m.ObjectKey == ref.ObjectKey {
			return record, nil
		}
	}

	ref.AttachedAt = s.now()
	record.Media = append(record.Media, ref)
	if _, err := s.trackingRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}
	log.Printf("INFO: Attached media %s to %s tracking record %s", ref.ObjectKey, s.kind, recordID.Hex())
	return record, nil
}

// MediaDownloadURL generates a temporary URL for media attached to the record.
func (s *trackingService) MediaDownloadURL(ctx context.Context, subjectID, recordID primitive.ObjectID, objectKey string) (string, error) {
	if s.fileStorage == nil {
		return "", ErrMediaUnavailable
	}
	record, err := s.Get(ctx, subjectID, recordID)
	if err != nil {
		return "", err
	}
	for _, m := range record.Media {
		if m.ObjectKey == objectKey {
			url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
			if err != nil {
				return "", fmt.Errorf("generate download URL: %w", err)
			}
			return url, nil
		}
	}
	return "", ErrMediaNotFound
}

func (s *trackingService) DetachMedia(ctx context.Context, subjectID, recordID primitive.ObjectID, objectKey string) (*domain.TrackingRecord, error) {
	if s.fileStorage == nil {
		return nil, ErrMediaUnavailable
	}
	record, err := s.Get(ctx, subjectID, recordID)
	if err != nil {
		return nil, err
	}
	kept := make([]domain.MediaRef, 0, len(record.Media))
	for _, m := range record.Media {
		if m.ObjectKey != objectKey {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(record.Media) {
		return nil, ErrMediaNotFound
	}

	record.Media = kept
	if _, err := s.trackingRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}
	// The reference is gone either way; an orphaned object is only logged.
	if err := s.fileStorage.DeleteObject(ctx, objectKey); err != nil {
		log.Printf("WARN: Failed to delete media object %s: %v", objectKey, err)
	}
	return record, nil
}
