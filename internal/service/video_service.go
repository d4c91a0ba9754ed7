package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/repository"
	"streamvault/video-platform/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrVideoNotFound    = errors.New("video not found")
	ErrInvalidFileType  = errors.New("invalid file type: only mp4, mkv, webm are allowed")
	ErrFileTooLarge     = errors.New("file size exceeds maximum limit")
	ErrNoFileProvided   = errors.New("no file provided")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotArchived      = errors.New("video has no archived copy")
)

// allowedExtensions is the upload allow-list.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
}

// allowedMimeTypes accepted alongside the extension check.
var allowedMimeTypes = map[string]bool{
	"video/mp4":        true,
	"video/x-matroska": true,
	"video/webm":       true,
}

// UploadInput carries one incoming video upload.
type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64 // declared size from the multipart header
	Description  string
	Tags         []string
	Content      io.Reader
}

// VideoService owns the video record lifecycle outside the pipeline:
// creation at upload time, tenant-scoped reads, and deletion of record plus
// backing file together.
type VideoService interface {
	Upload(ctx context.Context, tenantID, userID primitive.ObjectID, in UploadInput) (*domain.Video, error)
	List(ctx context.Context, tenantID primitive.ObjectID, filter repository.VideoFilter, page, limit int) ([]domain.Video, *repository.Pagination, error)
	Get(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error)
	Delete(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error)
	Stats(ctx context.Context, tenantID primitive.ObjectID) (*repository.VideoStats, error)
	// ArchiveDownloadURL returns a temporary download link for the video's
	// archived copy, ErrNotArchived when none exists.
	ArchiveDownloadURL(ctx context.Context, id, tenantID primitive.ObjectID) (string, error)
}

// videoService implements the VideoService interface.
type videoService struct {
	videoRepo     repository.VideoRepository
	files         storage.FileStorage
	archive       storage.ObjectArchive // optional, nil when archiving is disabled
	pipeline      *ProcessingPipeline
	maxUploadSize int64
}

// NewVideoService creates a new instance of videoService. archive may be nil.
func NewVideoService(
	videoRepo repository.VideoRepository,
	files storage.FileStorage,
	archive storage.ObjectArchive,
	pipeline *ProcessingPipeline,
	maxUploadSize int64,
) VideoService {
	if maxUploadSize <= 0 {
		maxUploadSize = 500_000_000 // 500 MB
	}
	return &videoService{
		videoRepo:     videoRepo,
		files:         files,
		archive:       archive,
		pipeline:      pipeline,
		maxUploadSize: maxUploadSize,
	}
}

// Upload validates the incoming file, stores it under the tenant's directory
// and creates the record in UPLOADED state with progress 0. It does not start
// processing; the caller triggers the pipeline after the response is sent.
func (s *videoService) Upload(ctx context.Context, tenantID, userID primitive.ObjectID, in UploadInput) (*domain.Video, error) {
	if in.Content == nil || in.OriginalName == "" {
		return nil, ErrNoFileProvided
	}
	if err := validateVideoFile(in.OriginalName, in.MimeType, in.Size, s.maxUploadSize); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	storedName := fmt.Sprintf("%s-%d%s", uuid.NewString(), time.Now().Unix(), ext)

	// Cap the copy at the ceiling so a lying Content-Length cannot blow past it.
	limited := io.LimitReader(in.Content, s.maxUploadSize+1)
	path, written, err := s.files.Save(tenantID.Hex(), storedName, limited)
	if err != nil {
		return nil, err
	}
	if written > s.maxUploadSize {
		_ = s.files.Delete(path)
		return nil, ErrFileTooLarge
	}

	video := &domain.Video{
		Filename:     storedName,
		OriginalName: in.OriginalName,
		Size:         written,
		FilePath:     path,
		MimeType:     in.MimeType,
		Status:       domain.StatusUploaded,
		Progress:     0,
		TenantID:     tenantID,
		UploadedBy:   userID,
		Description:  in.Description,
		Tags:         in.Tags,
	}

	id, err := s.videoRepo.Create(ctx, video)
	if err != nil {
		// The record is the source of truth; an orphaned file must not outlive
		// a failed insert.
		_ = s.files.Delete(path)
		return nil, err
	}
	video.ID = id

	log.Printf("[VIDEO] Created video %s (%s) for tenant %s", id.Hex(), in.OriginalName, tenantID.Hex())
	return video, nil
}

// List returns one page of the tenant's videos.
func (s *videoService) List(ctx context.Context, tenantID primitive.ObjectID, filter repository.VideoFilter, page, limit int) ([]domain.Video, *repository.Pagination, error) {
	if limit > 100 {
		limit = 100
	}
	return s.videoRepo.List(ctx, tenantID, filter, page, limit)
}

// Get returns a single video scoped to the tenant. Foreign-tenant ids map to
// ErrVideoNotFound, indistinguishable from unknown ids.
func (s *videoService) Get(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

// Delete removes the record and its backing file together. An in-flight
// pipeline run for the video is canceled first so it cannot write to the
// deleted record.
func (s *videoService) Delete(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error) {
	if s.pipeline != nil && s.pipeline.Cancel(id.Hex()) {
		log.Printf("[VIDEO] Canceled in-flight processing for deleted video %s", id.Hex())
	}

	video, err := s.videoRepo.Delete(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	if err := s.files.Delete(video.FilePath); err != nil {
		// The record is gone; losing the file cleanup is a defect worth noise.
		log.Printf("[VIDEO] ERROR: record %s deleted but file %s was not: %v", id.Hex(), video.FilePath, err)
	}
	if s.archive != nil && video.ArchiveKey != "" {
		if err := s.archive.DeleteObject(ctx, video.ArchiveKey); err != nil {
			log.Printf("[VIDEO] ERROR: could not delete archive object %s: %v", video.ArchiveKey, err)
		}
	}

	return video, nil
}

// Stats aggregates counts by status and sensitivity plus total byte size.
func (s *videoService) Stats(ctx context.Context, tenantID primitive.ObjectID) (*repository.VideoStats, error) {
	return s.videoRepo.Stats(ctx, tenantID)
}

// ArchiveDownloadURL presigns a GET for the video's archive object.
func (s *videoService) ArchiveDownloadURL(ctx context.Context, id, tenantID primitive.ObjectID) (string, error) {
	video, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return "", err
	}
	if s.archive == nil || video.ArchiveKey == "" {
		return "", ErrNotArchived
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, video.ArchiveKey, storage.DefaultPresignedURLExpiry)
}

// validateVideoFile enforces the extension/mime allow-list and size ceiling.
func validateVideoFile(originalName, mimeType string, size, maxSize int64) error {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] && !allowedMimeTypes[mimeType] {
		return ErrInvalidFileType
	}
	if size > maxSize {
		return ErrFileTooLarge
	}
	return nil
}

// parseObjectID converts a hex string into an ObjectID.
func parseObjectID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}
