package repository

import (
	"context"
	"time"

	"streamvault/video-platform/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicateKey = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// VideoFilter narrows a tenant-scoped listing. Zero values mean "no filter".
type VideoFilter struct {
	Status      domain.VideoStatus
	Sensitivity domain.Sensitivity
	Search      string // matched against originalName, description and tags
}

// Pagination describes one page of a listing result.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// VideoPatch carries the optional fields of a conditional status update.
// Nil fields are left untouched.
type VideoPatch struct {
	Progress              *int
	Metadata              *domain.VideoMetadata
	Sensitivity           *domain.Sensitivity
	ErrorMessage          *string
	ArchiveKey            *string
	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time

	// ClearOutcome removes errorMessage, sensitivity and
	// processingCompletedAt, so a retried run starts clean instead of
	// carrying a previous run's failure or result. errorMessage must only
	// ever be present on a FAILED record.
	ClearOutcome bool
}

// VideoStats aggregates a tenant's videos by status and sensitivity.
type VideoStats struct {
	TotalVideos   int64            `json:"totalVideos"`
	ByStatus      map[string]int64 `json:"byStatus"`
	BySensitivity map[string]int64 `json:"bySensitivity"`
	TotalSize     int64            `json:"totalSize"`
}

// VideoRepository defines the interface for interacting with video records.
// Every lookup and mutation is scoped by (id, tenantID): a caller holding a
// valid id from another tenant gets ErrNotFound, indistinguishable from a
// record that does not exist.
type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error)
	List(ctx context.Context, tenantID primitive.ObjectID, filter VideoFilter, page, limit int) ([]domain.Video, *Pagination, error)
	// UpdateStatus performs a single conditional write (find-and-modify) so a
	// progress write cannot race a concurrent delete into a lost update.
	UpdateStatus(ctx context.Context, id, tenantID primitive.ObjectID, status domain.VideoStatus, patch VideoPatch) (*domain.Video, error)
	Delete(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error)
	Stats(ctx context.Context, tenantID primitive.ObjectID) (*VideoStats, error)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// OrganizationRepository defines the interface for interacting with tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Organization, error)
}
