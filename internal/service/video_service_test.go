package service

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/events"
	"streamvault/video-platform/internal/repository"
	"streamvault/video-platform/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newVideoServiceFixture(t *testing.T, maxUploadSize int64) (VideoService, *fakeVideoRepo) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeVideoRepo()
	return NewVideoService(repo, files, nil, nil, maxUploadSize), repo
}

func uploadInput(name, mime, body string) UploadInput {
	return UploadInput{
		OriginalName: name,
		MimeType:     mime,
		Size:         int64(len(body)),
		Content:      strings.NewReader(body),
	}
}

func TestUploadCreatesRecordInUploadedState(t *testing.T) {
	svc, repo := newVideoServiceFixture(t, 1024)
	tenantID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	in := uploadInput("holiday.mp4", "video/mp4", "fake video bytes")
	in.Description = "Beach trip"
	in.Tags = []string{"travel", "family"}

	video, err := svc.Upload(context.Background(), tenantID, userID, in)
	require.NoError(t, err)

	assert.False(t, video.ID.IsZero())
	assert.Equal(t, domain.StatusUploaded, video.Status)
	assert.Equal(t, 0, video.Progress)
	assert.Equal(t, "holiday.mp4", video.OriginalName)
	assert.NotEqual(t, video.OriginalName, video.Filename)
	assert.True(t, strings.HasSuffix(video.Filename, ".mp4"))
	assert.Equal(t, int64(len("fake video bytes")), video.Size)
	assert.Equal(t, tenantID, video.TenantID)
	assert.Equal(t, userID, video.UploadedBy)
	assert.Equal(t, []string{"travel", "family"}, video.Tags)

	// File landed on disk with the full content.
	data, err := os.ReadFile(video.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "fake video bytes", string(data))

	// Record is retrievable within the tenant.
	stored := repo.get(video.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusUploaded, stored.Status)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	svc, _ := newVideoServiceFixture(t, 1024)
	tenantID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	cases := []struct {
		name string
		mime string
	}{
		{"script.exe", "application/octet-stream"},
		{"notes.txt", "text/plain"},
		{"image.png", "image/png"},
	}
	for _, tc := range cases {
		_, err := svc.Upload(context.Background(), tenantID, userID, uploadInput(tc.name, tc.mime, "x"))
		assert.ErrorIs(t, err, ErrInvalidFileType, tc.name)
	}

	// Either a whitelisted extension or a whitelisted mime type is enough.
	_, err := svc.Upload(context.Background(), tenantID, userID, uploadInput("clip.bin", "video/webm", "x"))
	assert.NoError(t, err)
	_, err = svc.Upload(context.Background(), tenantID, userID, uploadInput("clip.mkv", "application/octet-stream", "x"))
	assert.NoError(t, err)
}

func TestUploadRejectsOversizedDeclaration(t *testing.T) {
	svc, _ := newVideoServiceFixture(t, 10)
	in := uploadInput("big.mp4", "video/mp4", "x")
	in.Size = 11

	_, err := svc.Upload(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), in)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	svc, repo := newVideoServiceFixture(t, 10)

	// Declared size lies; the actual body is over the ceiling.
	in := uploadInput("big.mp4", "video/mp4", strings.Repeat("x", 20))
	in.Size = 5

	_, err := svc.Upload(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), in)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, repo.videos)
}

func TestUploadRequiresFile(t *testing.T) {
	svc, _ := newVideoServiceFixture(t, 1024)
	_, err := svc.Upload(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), UploadInput{})
	assert.ErrorIs(t, err, ErrNoFileProvided)
}

func TestGetScopesByTenant(t *testing.T) {
	svc, repo := newVideoServiceFixture(t, 1024)
	video := newTestVideo(repo)

	got, err := svc.Get(context.Background(), video.ID, video.TenantID)
	require.NoError(t, err)
	assert.Equal(t, video.ID, got.ID)

	// A foreign tenant holding a valid id sees the same error as an unknown id.
	_, foreignErr := svc.Get(context.Background(), video.ID, primitive.NewObjectID())
	_, unknownErr := svc.Get(context.Background(), primitive.NewObjectID(), video.TenantID)
	assert.ErrorIs(t, foreignErr, ErrVideoNotFound)
	assert.ErrorIs(t, unknownErr, ErrVideoNotFound)
	assert.Equal(t, foreignErr, unknownErr)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeVideoRepo()
	svc := NewVideoService(repo, files, nil, nil, 1024)

	tenantID := primitive.NewObjectID()
	video, err := svc.Upload(context.Background(), tenantID, primitive.NewObjectID(),
		uploadInput("gone.mp4", "video/mp4", "content"))
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), video.ID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, video.ID, deleted.ID)

	_, err = os.Stat(video.FilePath)
	assert.True(t, os.IsNotExist(err))
	assert.Nil(t, repo.get(video.ID))

	_, err = svc.Delete(context.Background(), video.ID, tenantID)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestDeleteForeignTenantLeavesEverything(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeVideoRepo()
	svc := NewVideoService(repo, files, nil, nil, 1024)

	tenantID := primitive.NewObjectID()
	video, err := svc.Upload(context.Background(), tenantID, primitive.NewObjectID(),
		uploadInput("keep.mp4", "video/mp4", "content"))
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), video.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, statErr := os.Stat(video.FilePath)
	assert.NoError(t, statErr)
	assert.NotNil(t, repo.get(video.ID))
}

func TestDeleteCancelsInFlightRun(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeVideoRepo()
	b := events.NewBroadcaster()

	classifierEntered := make(chan struct{})
	classifier := &fakeClassifier{fn: func(ctx context.Context, _ string) (domain.Sensitivity, error) {
		close(classifierEntered)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	pipeline := NewProcessingPipeline(repo, okProbe(), classifier, b, files, nil, 0, 5*time.Second)
	svc := NewVideoService(repo, files, nil, pipeline, 1024)

	tenantID := primitive.NewObjectID()
	video, err := svc.Upload(context.Background(), tenantID, primitive.NewObjectID(),
		uploadInput("inflight.mp4", "video/mp4", "content"))
	require.NoError(t, err)
	require.NoError(t, pipeline.Start(video))

	select {
	case <-classifierEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("run never reached the classifier")
	}

	ch, cancelSub := b.Subscribe(tenantID.Hex())
	defer cancelSub()

	_, err = svc.Delete(context.Background(), video.ID, tenantID)
	require.NoError(t, err)
	waitNotRunning(t, pipeline, video.ID.Hex())

	// The canceled run must not have written FAILED to the deleted record or
	// emitted terminal events for it.
	assert.Nil(t, repo.get(video.ID))
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event after delete: %+v", ev)
	default:
	}
	_, err = os.Stat(video.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestListCapsLimit(t *testing.T) {
	repo := newFakeVideoRepo()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewVideoService(repo, files, nil, nil, 1024)

	tenantID := primitive.NewObjectID()
	_, pagination, err := svc.List(context.Background(), tenantID, repository.VideoFilter{}, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, pagination.Limit)
}

type fakeArchive struct {
	objects map[string]bool
}

func (a *fakeArchive) PutObject(ctx context.Context, key, contentType string, body io.Reader) error {
	if a.objects == nil {
		a.objects = make(map[string]bool)
	}
	a.objects[key] = true
	return nil
}

func (a *fakeArchive) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://archive.example/" + key + "?signed=1", nil
}

func (a *fakeArchive) DeleteObject(ctx context.Context, key string) error {
	delete(a.objects, key)
	return nil
}

func TestArchiveDownloadURL(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeVideoRepo()
	archive := &fakeArchive{}
	svc := NewVideoService(repo, files, archive, nil, 1024)

	video := newTestVideo(repo)

	// Not archived yet.
	_, err = svc.ArchiveDownloadURL(context.Background(), video.ID, video.TenantID)
	assert.ErrorIs(t, err, ErrNotArchived)

	video.ArchiveKey = video.TenantID.Hex() + "/" + video.Filename
	repo.put(video)

	url, err := svc.ArchiveDownloadURL(context.Background(), video.ID, video.TenantID)
	require.NoError(t, err)
	assert.Contains(t, url, video.Filename)

	// Foreign tenants cannot learn whether an archived copy exists.
	_, err = svc.ArchiveDownloadURL(context.Background(), video.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestValidateVideoFile(t *testing.T) {
	assert.NoError(t, validateVideoFile("a.mp4", "video/mp4", 10, 100))
	assert.NoError(t, validateVideoFile("a.MKV", "", 10, 100))
	assert.ErrorIs(t, validateVideoFile("a.avi", "video/avi", 10, 100), ErrInvalidFileType)
	assert.ErrorIs(t, validateVideoFile("a.mp4", "video/mp4", 101, 100), ErrFileTooLarge)
}
