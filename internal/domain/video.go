package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoStatus tracks where a video is in its processing lifecycle.
type VideoStatus string

const (
	StatusUploaded   VideoStatus = "uploaded"
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

// Sensitivity is the content classification assigned by the pipeline.
type Sensitivity string

const (
	SensitivitySafe    Sensitivity = "safe"
	SensitivityFlagged Sensitivity = "flagged"
)

// VideoMetadata holds the media properties extracted during processing.
type VideoMetadata struct {
	Duration  int     `bson:"duration" json:"duration"` // seconds
	Width     int     `bson:"width" json:"width"`
	Height    int     `bson:"height" json:"height"`
	FrameRate float64 `bson:"frameRate" json:"frameRate"`
	Bitrate   string  `bson:"bitrate" json:"bitrate"`
	HasAudio  bool    `bson:"hasAudio" json:"hasAudio"`
}

// Video represents one uploaded video and its processing lifecycle.
// TenantID is immutable after creation; every read and mutation of a video
// must be filtered by (id, tenantId), never by id alone.
type Video struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename              string             `bson:"filename" json:"filename"` // unique stored name on disk
	OriginalName          string             `bson:"originalName" json:"originalName"`
	Size                  int64              `bson:"size" json:"size"` // bytes
	FilePath              string             `bson:"filePath" json:"-"`
	MimeType              string             `bson:"mimeType" json:"mimeType"`
	Status                VideoStatus        `bson:"status" json:"status"`
	Sensitivity           Sensitivity        `bson:"sensitivity,omitempty" json:"sensitivity,omitempty"`
	Progress              int                `bson:"progress" json:"progress"` // 0-100, meaningful while processing
	TenantID              primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	UploadedBy            primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	ProcessingStartedAt   *time.Time         `bson:"processingStartedAt,omitempty" json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time         `bson:"processingCompletedAt,omitempty" json:"processingCompletedAt,omitempty"`
	ErrorMessage          string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Metadata              *VideoMetadata     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ArchiveKey            string             `bson:"archiveKey,omitempty" json:"-"` // object key when archived to S3
	Description           string             `bson:"description,omitempty" json:"description,omitempty"`
	Tags                  []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether the status is a terminal pipeline state.
func (s VideoStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
