package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/repository"
	"streamvault/video-platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoHandler holds the video-facing service dependencies.
type VideoHandler struct {
	videoService service.VideoService
	pipeline     *service.ProcessingPipeline
	streamer     *service.StreamService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videoService service.VideoService, pipeline *service.ProcessingPipeline, streamer *service.StreamService) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		pipeline:     pipeline,
		streamer:     streamer,
	}
}

// --- DTOs for API (Data Transfer Objects) ---

// VideoResponse is the DTO for returning video details.
type VideoResponse struct {
	ID                    string                `json:"id"`
	Filename              string                `json:"filename"`
	OriginalName          string                `json:"originalName"`
	Size                  int64                 `json:"size"`
	MimeType              string                `json:"mimeType"`
	Status                domain.VideoStatus    `json:"status"`
	Sensitivity           domain.Sensitivity    `json:"sensitivity,omitempty"`
	Progress              int                   `json:"progress"`
	Metadata              *domain.VideoMetadata `json:"metadata,omitempty"`
	ErrorMessage          string                `json:"errorMessage,omitempty"`
	Description           string                `json:"description,omitempty"`
	Tags                  []string              `json:"tags,omitempty"`
	ProcessingStartedAt   *time.Time            `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time            `json:"processingCompletedAt,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
}

func mapVideoToResponse(v *domain.Video) VideoResponse {
	if v == nil {
		return VideoResponse{}
	}
	return VideoResponse{
		ID:           v.ID.Hex(),
		Filename:     v.Filename,
		OriginalName: v.OriginalName,
		Size:         v.Size,
		MimeType:     v.MimeType,
		Status:       v.Status,
		Sensitivity:  v.Sensitivity,
		Progress:     v.Progress,
		Metadata:     v.Metadata,
		ErrorMessage: v.ErrorMessage,
		Description:  v.Description,
		Tags:         v.Tags,

		ProcessingStartedAt:   v.ProcessingStartedAt,
		ProcessingCompletedAt: v.ProcessingCompletedAt,
		CreatedAt:             v.CreatedAt,
	}
}

func mapVideosToResponse(videos []domain.Video) []VideoResponse {
	responses := make([]VideoResponse, len(videos))
	for i := range videos {
		responses[i] = mapVideoToResponse(&videos[i])
	}
	return responses
}

// callerScope pulls the (userID, tenantID) pair set by AuthMiddleware.
func callerScope(c *gin.Context) (userID, tenantID primitive.ObjectID, ok bool) {
	userIDStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	userID, err = primitive.ObjectIDFromHex(userIDStr)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user ID in token.")
		return
	}
	tenantID, err = getTenantIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid tenant ID in token.")
		return
	}
	return userID, tenantID, true
}

// videoIDParam parses the :id path parameter. An unparseable id behaves like
// an unknown one to avoid distinguishing malformed from foreign ids.
func videoIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Video not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

// --- Handler Methods ---

// Upload accepts one multipart video file plus optional description and
// comma-separated tags, creates the record and starts processing in the
// background. The response returns before processing begins.
// POST /api/v1/videos/upload
func (h *VideoHandler) Upload(c *gin.Context) {
	userID, tenantID, ok := callerScope(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file provided")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}

	video, err := h.videoService.Upload(c.Request.Context(), tenantID, userID, service.UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Description:  c.PostForm("description"),
		Tags:         tags,
		Content:      file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFileType),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrNoFileProvided):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to store upload.")
		}
		return
	}

	// Fire-and-forget: the pipeline run is supervised and logged, never
	// surfaced to this request.
	if err := h.pipeline.Start(video); err != nil {
		abortWithError(c, http.StatusConflict, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Video uploaded successfully",
		"data": gin.H{
			"videoId":      video.ID.Hex(),
			"filename":     video.Filename,
			"originalName": video.OriginalName,
			"status":       video.Status,
		},
	})
}

// List returns one page of the tenant's videos with optional filters.
// GET /api/v1/videos?page=&limit=&status=&sensitivity=&search=
func (h *VideoHandler) List(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 || limit < 1 {
		abortWithError(c, http.StatusBadRequest, "Page and limit must be positive integers")
		return
	}

	filter := repository.VideoFilter{
		Status:      domain.VideoStatus(c.Query("status")),
		Sensitivity: domain.Sensitivity(c.Query("sensitivity")),
		Search:      c.Query("search"),
	}

	videos, pagination, err := h.videoService.List(c.Request.Context(), tenantID, filter, page, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list videos.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       mapVideosToResponse(videos),
		"pagination": pagination,
	})
}

// Stats returns aggregate counts for the tenant's videos.
// GET /api/v1/videos/stats
func (h *VideoHandler) Stats(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}

	stats, err := h.videoService.Stats(c.Request.Context(), tenantID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to compute stats.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// Get returns a single video, 404 when absent or owned by another tenant.
// GET /api/v1/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}
	id, ok := videoIDParam(c)
	if !ok {
		return
	}

	video, err := h.videoService.Get(c.Request.Context(), id, tenantID)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			abortWithError(c, http.StatusNotFound, "Video not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load video.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": mapVideoToResponse(video)})
}

// Stream serves the video file honoring byte-range requests.
// GET /api/v1/videos/:id/stream
func (h *VideoHandler) Stream(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}
	id, ok := videoIDParam(c)
	if !ok {
		return
	}

	video, err := h.videoService.Get(c.Request.Context(), id, tenantID)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			abortWithError(c, http.StatusNotFound, "Video not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load video.")
		}
		return
	}

	if streamErr := h.streamer.Serve(c.Writer, c.Request, video); streamErr != nil {
		abortWithError(c, streamErr.StatusCode, streamErr.Message)
		return
	}
}

// Process re-triggers the pipeline for an already-uploaded video. Replaces
// the push-channel "process" client event; 409 while a run is in flight.
// POST /api/v1/videos/:id/process
func (h *VideoHandler) Process(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}
	id, ok := videoIDParam(c)
	if !ok {
		return
	}

	video, err := h.videoService.Get(c.Request.Context(), id, tenantID)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			abortWithError(c, http.StatusNotFound, "Video not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load video.")
		}
		return
	}

	if err := h.pipeline.Start(video); err != nil {
		if errors.Is(err, service.ErrAlreadyProcessing) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to start processing.")
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Video processing started",
		"data":    gin.H{"videoId": video.ID.Hex()},
	})
}

// Download returns a presigned URL for the video's archived copy, when the
// archive is enabled and the pipeline has copied the file there.
// GET /api/v1/videos/:id/download
func (h *VideoHandler) Download(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}
	id, ok := videoIDParam(c)
	if !ok {
		return
	}

	url, err := h.videoService.ArchiveDownloadURL(c.Request.Context(), id, tenantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVideoNotFound):
			abortWithError(c, http.StatusNotFound, "Video not found")
		case errors.Is(err, service.ErrNotArchived):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate download link.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"url": url}})
}

// Delete removes the record and backing file together.
// DELETE /api/v1/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	_, tenantID, ok := callerScope(c)
	if !ok {
		return
	}
	id, ok := videoIDParam(c)
	if !ok {
		return
	}

	video, err := h.videoService.Delete(c.Request.Context(), id, tenantID)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			abortWithError(c, http.StatusNotFound, "Video not found")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete video.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Video deleted successfully",
		"data":    gin.H{"videoId": video.ID.Hex()},
	})
}
