package storage

import (
	"alcyxob/adherence-app/internal/config"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) FileStorage {
	t.Helper()
	fs, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		BucketName:      "adherence-media",
	})
	require.NoError(t, err)
	return fs
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPresignedUploadURL_PathStyle(t *testing.T) {
	fs := newTestStorage(t)
	raw, err := fs.GeneratePresignedUploadURL(context.Background(), "tracking/a/b/photo.jpeg", "image/jpeg", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/adherence-media/tracking/a/b/photo.jpeg", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "host", u.Query().Get("X-Amz-SignedHeaders"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignedDownloadURL_DefaultExpiry(t *testing.T) {
	fs := newTestStorage(t)
	raw, err := fs.GeneratePresignedDownloadURL(context.Background(), "tracking/a/b/video.mp4", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
