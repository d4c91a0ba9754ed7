package storage

import (
	"context"
	"io"
	"os"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for the local file store backing
// uploaded videos. Streaming reads byte ranges straight from the
// returned *os.File.
type FileStorage interface {
	// Save writes the uploaded content to a tenant-scoped path and returns
	// the absolute path of the stored file.
	Save(tenantID, filename string, src io.Reader) (string, int64, error)

	// Open opens a stored file for reading.
	Open(path string) (*os.File, error)

	// Stat returns the size of a stored file, or an error if it is absent.
	Stat(path string) (int64, error)

	// Delete removes a stored file from disk.
	Delete(path string) error
}

// ObjectArchive defines the interface for the optional S3-compatible
// archive that receives completed videos.
type ObjectArchive interface {
	// PutObject uploads the content under the given key.
	PutObject(ctx context.Context, objectKey, contentType string, body io.Reader) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for downloading the archived object.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the archive.
	DeleteObject(ctx context.Context, objectKey string) error
}
