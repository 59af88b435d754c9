package service

import (
	"alcyxob/adherence-app/internal/domain"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStorage records presign requests instead of talking to S3.
type fakeStorage struct {
	uploads   []string
	downloads []string
	deleted   []string
	failWith  error
	deleteErr error
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, contentType string, _ time.Duration) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	s.uploads = append(s.uploads, objectKey)
	return "https://uploads.example.test/" + objectKey + "?ct=" + contentType, nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	s.downloads = append(s.downloads, objectKey)
	return "https://downloads.example.test/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return s.deleteErr
}

func materializedMonday(t *testing.T, f *fixture) *domain.CalendarEntry {
	t.Helper()
	tmpl := weekA()
	tmpl.Days[0].Sessions[0].Items = append(tmpl.Days[0].Sessions[0].Items,
		domain.Item{Name: "Coffee"},
		domain.Item{Name: "Banana"},
	)
	f.createTemplate(t, tmpl)
	entry, err := f.calendarSvc.MaterializeFromTemplate(context.Background(), f.subject, mustDate("2024-01-01"), nil)
	require.NoError(t, err)
	return entry
}

func TestTracking_UpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)

	first := f.track(t, entry, 0, 0, domain.StatusPending)
	second := f.track(t, entry, 0, 0, domain.StatusCompleted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, mustDate("2024-01-01"), second.TrackedDate)

	records, err := f.trackingSvc.ListForEntry(ctx, f.subject, entry.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusCompleted, records[0].Status)
}

func TestTracking_ItemKeyGetsItsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)
	item := entry.Sessions[0].Items[1]

	rec, err := f.trackingSvc.Upsert(ctx, f.subject, UpsertInput{
		Key:    domain.TrackingKey{EntryID: entry.ID, ItemID: &item.ID},
		Status: domain.StatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.SessionID)
	assert.Equal(t, entry.Sessions[0].ID, *rec.SessionID)

	// The explicit form addresses the same record.
	again := f.track(t, entry, 0, 1, domain.StatusSkipped)
	assert.Equal(t, rec.ID, again.ID)
}

func TestTracking_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)
	sess := entry.Sessions[0]
	foreign := primitive.NewObjectID()

	cases := []struct {
		name  string
		in    UpsertInput
		field string
	}{
		{"unknown status", UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID}, Status: "done"}, "status"},
		{"partial on item", UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID, SessionID: &sess.ID, ItemID: &sess.Items[0].ID}, Status: domain.StatusPartial}, "status"},
		{"foreign session", UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID, SessionID: &foreign}}, "sessionId"},
		{"foreign item", UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID, SessionID: &sess.ID, ItemID: &foreign}}, "itemId"},
		{"item of no session", UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID, ItemID: &foreign}}, "itemId"},
		{"missing entry", UpsertInput{}, "entryId"},
		{"wrong measurement block", UpsertInput{
			Key:    domain.TrackingKey{EntryID: entry.ID},
			Actual: domain.Measurements{Exercise: &domain.ExerciseMeasures{}},
		}, "actual.exercise"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.trackingSvc.Upsert(ctx, f.subject, tc.in)
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tc.field, inputErr.Field)
		})
	}
}

func TestTracking_PartialAllowedOnSession(t *testing.T) {
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)

	rec := f.track(t, entry, 0, -1, domain.StatusPartial)
	assert.True(t, rec.IsSessionLevel())
	assert.Equal(t, domain.StatusPartial, rec.Status)
}

func TestTracking_OtherSubjectsEntryIsHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)
	rec := f.track(t, entry, 0, 0, domain.StatusCompleted)
	stranger := primitive.NewObjectID()

	_, err := f.trackingSvc.Upsert(ctx, stranger, UpsertInput{Key: domain.TrackingKey{EntryID: entry.ID}, Status: domain.StatusCompleted})
	assert.ErrorIs(t, err, ErrEntryNotFound)
	_, err = f.trackingSvc.Get(ctx, stranger, rec.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = f.trackingSvc.ListForEntry(ctx, stranger, entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTracking_CompletedAtIsStampedOnce(t *testing.T) {
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)
	clock := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	f.trackingSvc.(*trackingService).now = func() time.Time { return clock }

	pending := f.track(t, entry, 0, 0, domain.StatusPending)
	assert.Nil(t, pending.CompletedAt)

	done := f.track(t, entry, 0, 0, domain.StatusCompleted)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock, *done.CompletedAt)

	clock = clock.Add(2 * time.Hour)
	again := f.track(t, entry, 0, 0, domain.StatusCompleted)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC), *again.CompletedAt)
}

func TestTracking_QueryByRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	entry := materializedMonday(t, f)
	f.track(t, entry, 0, 0, domain.StatusCompleted)
	f.track(t, entry, 0, 1, domain.StatusSkipped)

	records, err := f.trackingSvc.Query(ctx, f.subject, mustDate("2024-01-01"), mustDate("2024-01-07"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = f.trackingSvc.Query(ctx, f.subject, mustDate("2024-01-02"), mustDate("2024-01-07"))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.trackingSvc.Query(ctx, f.subject, mustDate("2024-01-07"), mustDate("2024-01-01"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.trackingSvc.Query(ctx, f.subject, mustDate("2023-01-01"), mustDate("2024-06-01"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTracking_MediaFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	store := &fakeStorage{}
	f.trackingSvc = NewTrackingService(domain.KindMeal, f.tracking, f.calendar, store)
	entry := materializedMonday(t, f)
	rec := f.track(t, entry, 0, 0, domain.StatusCompleted)

	_, err := f.trackingSvc.RequestMediaUploadURL(ctx, f.subject, rec.ID, "application/pdf")
	assert.ErrorIs(t, err, ErrValidation)

	upload, err := f.trackingSvc.RequestMediaUploadURL(ctx, f.subject, rec.ID, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.ObjectKey, "tracking/"+f.subject.Hex()+"/"+rec.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(upload.ObjectKey, ".jpeg"))
	assert.Equal(t, []string{upload.ObjectKey}, store.uploads)

	_, err = f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, domain.MediaRef{ObjectKey: "tracking/elsewhere/x.jpeg", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrValidation)

	// The bucket does not enforce the content type, so attach does.
	_, err = f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, domain.MediaRef{ObjectKey: upload.ObjectKey, ContentType: "application/pdf"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, domain.MediaRef{ObjectKey: upload.ObjectKey, ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrValidation)

	ref := domain.MediaRef{ObjectKey: upload.ObjectKey, ContentType: "image/jpeg", FileName: "oats.jpeg"}
	updated, err := f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, ref)
	require.NoError(t, err)
	require.Len(t, updated.Media, 1)
	_, err = f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, ref)
	require.NoError(t, err)

	// A later status change keeps the attachment.
	rec = f.track(t, entry, 0, 0, domain.StatusSkipped)
	require.Len(t, rec.Media, 1)

	url, err := f.trackingSvc.MediaDownloadURL(ctx, f.subject, rec.ID, upload.ObjectKey)
	require.NoError(t, err)
	assert.Contains(t, url, upload.ObjectKey)

	_, err = f.trackingSvc.MediaDownloadURL(ctx, f.subject, rec.ID, "tracking/unknown.jpeg")
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestTracking_DetachMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	store := &fakeStorage{deleteErr: errors.New("bucket unreachable")}
	f.trackingSvc = NewTrackingService(domain.KindMeal, f.tracking, f.calendar, store)
	entry := materializedMonday(t, f)
	rec := f.track(t, entry, 0, 0, domain.StatusCompleted)

	upload, err := f.trackingSvc.RequestMediaUploadURL(ctx, f.subject, rec.ID, "image/png")
	require.NoError(t, err)
	_, err = f.trackingSvc.AttachMedia(ctx, f.subject, rec.ID, domain.MediaRef{ObjectKey: upload.ObjectKey, ContentType: "image/png"})
	require.NoError(t, err)

	// A failed object delete does not keep the reference alive.
	detached, err := f.trackingSvc.DetachMedia(ctx, f.subject, rec.ID, upload.ObjectKey)
	require.NoError(t, err)
	assert.Empty(t, detached.Media)
	assert.Equal(t, []string{upload.ObjectKey}, store.deleted)

	got, err := f.trackingSvc.Get(ctx, f.subject, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Media)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = f.trackingSvc.DetachMedia(ctx, f.subject, rec.ID, upload.ObjectKey)
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestTracking_MediaWithoutStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindExercise)

	_, err := f.trackingSvc.RequestMediaUploadURL(ctx, f.subject, primitive.NewObjectID(), "image/png")
	assert.ErrorIs(t, err, ErrMediaUnavailable)
}

func TestTracking_UploadURLFailureIsWrapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	boom := errors.New("presign failed")
	f.trackingSvc = NewTrackingService(domain.KindMeal, f.tracking, f.calendar, &fakeStorage{failWith: boom})
	entry := materializedMonday(t, f)
	rec := f.track(t, entry, 0, 0, domain.StatusCompleted)

	_, err := f.trackingSvc.RequestMediaUploadURL(ctx, f.subject, rec.ID, "image/png")
	assert.ErrorIs(t, err, boom)
}
