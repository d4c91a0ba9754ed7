package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/events"
	"streamvault/video-platform/internal/media"
	"streamvault/video-platform/internal/repository"
	"streamvault/video-platform/internal/storage"
)

var (
	// ErrAlreadyProcessing is returned when a run is triggered for a video
	// that already has an active run.
	ErrAlreadyProcessing = errors.New("video is already being processed")
)

// Progress checkpoints and stage messages emitted by every run.
const (
	progressMetadata    = 10
	progressSensitivity = 40
	progressFinalizing  = 90
	progressDone        = 100

	msgExtracting = "Extracting metadata..."
	msgAnalyzing  = "Analyzing sensitivity..."
	msgFinalizing = "Finalizing..."
	msgCompleted  = "Video processing completed"
)

// failWriteTimeout bounds the FAILED status write issued after a stage error,
// which must not reuse the (possibly expired) stage context.
const failWriteTimeout = 5 * time.Second

// ProcessingPipeline drives a video through
// uploaded -> processing -> completed|failed, emitting a progress event at
// each checkpoint. At most one run per video id is active at a time; a run
// can be canceled (on delete) and aborts at the next stage boundary without
// writing to the record.
type ProcessingPipeline struct {
	videos       repository.VideoRepository
	probe        media.MetadataProbe
	classifier   media.SensitivityClassifier
	broadcaster  *events.Broadcaster
	files        storage.FileStorage
	archive      storage.ObjectArchive // optional, nil when archiving is disabled
	stageDelay   time.Duration
	stageTimeout time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc // active runs keyed by video id
}

// NewProcessingPipeline creates the pipeline. archive may be nil.
func NewProcessingPipeline(
	videos repository.VideoRepository,
	probe media.MetadataProbe,
	classifier media.SensitivityClassifier,
	broadcaster *events.Broadcaster,
	files storage.FileStorage,
	archive storage.ObjectArchive,
	stageDelay, stageTimeout time.Duration,
) *ProcessingPipeline {
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}
	return &ProcessingPipeline{
		videos:       videos,
		probe:        probe,
		classifier:   classifier,
		broadcaster:  broadcaster,
		files:        files,
		archive:      archive,
		stageDelay:   stageDelay,
		stageTimeout: stageTimeout,
		running:      make(map[string]context.CancelFunc),
	}
}

// Start spawns a detached run for the video. It returns ErrAlreadyProcessing
// when a run for the same video id is still active; the caller never waits
// for the run itself. The run's terminal error is logged here, not surfaced
// to the uploader, whose request already completed.
func (p *ProcessingPipeline) Start(video *domain.Video) error {
	videoID := video.ID.Hex()

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if _, active := p.running[videoID]; active {
		p.mu.Unlock()
		cancel()
		return ErrAlreadyProcessing
	}
	p.running[videoID] = cancel
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.running, videoID)
			p.mu.Unlock()
			cancel()
		}()

		if err := p.run(ctx, video); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("[PIPELINE] Run for video %s canceled", videoID)
			} else {
				log.Printf("[PIPELINE] Run for video %s failed: %v", videoID, err)
			}
		}
	}()

	return nil
}

// Cancel aborts the active run for a video id, if any. Used when a record is
// deleted while its run is still in flight.
func (p *ProcessingPipeline) Cancel(videoID string) bool {
	p.mu.Lock()
	cancel, active := p.running[videoID]
	p.mu.Unlock()
	if active {
		cancel()
	}
	return active
}

// IsRunning reports whether a run for the video id is currently active.
func (p *ProcessingPipeline) IsRunning(videoID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, active := p.running[videoID]
	return active
}

// run executes the stages for one video. Progress only moves forward:
// 10 (metadata) -> 40 (sensitivity) -> 90 (finalizing) -> 100 (completed).
func (p *ProcessingPipeline) run(ctx context.Context, video *domain.Video) error {
	videoID := video.ID.Hex()
	topic := video.TenantID.Hex()

	log.Printf("[PIPELINE] Starting processing for video %s", videoID)

	// Enter PROCESSING. A retried run must not carry the previous run's
	// errorMessage, sensitivity or completion time.
	zero := 0
	startedAt := time.Now().UTC()
	_, err := p.videos.UpdateStatus(ctx, video.ID, video.TenantID, domain.StatusProcessing, repository.VideoPatch{
		Progress:            &zero,
		ProcessingStartedAt: &startedAt,
		ClearOutcome:        true,
	})
	if err != nil {
		// Nothing to mark FAILED if the record is already gone.
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("video %s vanished before processing: %w", videoID, err)
		}
		return p.fail(ctx, video, err)
	}
	p.broadcaster.BroadcastProgress(topic, videoID, progressMetadata, msgExtracting)

	if err := p.pause(ctx); err != nil {
		return err
	}

	// Stage A: metadata extraction. Probe failures are absorbed into default
	// metadata, they never fail the run.
	meta, err := p.probeMetadata(ctx, video.FilePath)
	if err != nil {
		log.Printf("[PIPELINE] Probe failed for video %s, using default metadata: %v", videoID, err)
		meta = media.DefaultMetadata()
	}

	forty := progressSensitivity
	if _, err := p.videos.UpdateStatus(ctx, video.ID, video.TenantID, domain.StatusProcessing, repository.VideoPatch{
		Progress: &forty,
		Metadata: meta,
	}); err != nil {
		return p.fail(ctx, video, err)
	}
	p.broadcaster.BroadcastProgress(topic, videoID, progressSensitivity, msgAnalyzing)

	if err := p.pause(ctx); err != nil {
		return err
	}

	// Stage B: sensitivity classification. A classifier error fails the run.
	sensitivity, err := p.classify(ctx, video.FilePath)
	if err != nil {
		return p.fail(ctx, video, err)
	}

	ninety := progressFinalizing
	if _, err := p.videos.UpdateStatus(ctx, video.ID, video.TenantID, domain.StatusProcessing, repository.VideoPatch{
		Progress:    &ninety,
		Sensitivity: &sensitivity,
	}); err != nil {
		return p.fail(ctx, video, err)
	}
	p.broadcaster.BroadcastProgress(topic, videoID, progressFinalizing, msgFinalizing)

	// Finalize.
	done := progressDone
	completedAt := time.Now().UTC()
	completed, err := p.videos.UpdateStatus(ctx, video.ID, video.TenantID, domain.StatusCompleted, repository.VideoPatch{
		Progress:              &done,
		ProcessingCompletedAt: &completedAt,
	})
	if err != nil {
		return p.fail(ctx, video, err)
	}
	p.broadcaster.BroadcastCompleted(topic, videoID, completed, msgCompleted)

	log.Printf("[PIPELINE] Video %s processing completed", videoID)

	if p.archive != nil {
		p.archiveVideo(completed)
	}
	return nil
}

// probeMetadata bounds the probe call with the stage timeout.
func (p *ProcessingPipeline) probeMetadata(ctx context.Context, filePath string) (*domain.VideoMetadata, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.probe.Probe(stageCtx, filePath)
}

// classify bounds the classifier call with the stage timeout.
func (p *ProcessingPipeline) classify(ctx context.Context, filePath string) (domain.Sensitivity, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.classifier.Classify(stageCtx, filePath)
}

// pause simulates bounded stage work, honoring cancellation.
func (p *ProcessingPipeline) pause(ctx context.Context) error {
	if p.stageDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.stageDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail transitions the record to FAILED, broadcasts the failure and returns
// the original error for the supervisor to log. A canceled run (deleted
// record) aborts without writing at all.
func (p *ProcessingPipeline) fail(ctx context.Context, video *domain.Video, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// The failing stage's context may already be expired; the FAILED write
	// gets a fresh one.
	writeCtx, cancel := context.WithTimeout(context.Background(), failWriteTimeout)
	defer cancel()

	msg := cause.Error()
	if _, err := p.videos.UpdateStatus(writeCtx, video.ID, video.TenantID, domain.StatusFailed, repository.VideoPatch{
		ErrorMessage: &msg,
	}); err != nil {
		log.Printf("[PIPELINE] Could not mark video %s as failed: %v", video.ID.Hex(), err)
	}

	p.broadcaster.BroadcastFailed(video.TenantID.Hex(), video.ID.Hex(), msg)
	return cause
}

// archiveVideo copies a completed video into the object archive, best-effort.
// Archive problems are logged and never affect the record's state.
func (p *ProcessingPipeline) archiveVideo(video *domain.Video) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	file, err := p.files.Open(video.FilePath)
	if err != nil {
		log.Printf("[PIPELINE] Archive skipped for video %s: %v", video.ID.Hex(), err)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s", video.TenantID.Hex(), video.Filename)
	if err := p.archive.PutObject(ctx, key, video.MimeType, file); err != nil {
		log.Printf("[PIPELINE] Archive upload failed for video %s: %v", video.ID.Hex(), err)
		return
	}

	if _, err := p.videos.UpdateStatus(ctx, video.ID, video.TenantID, domain.StatusCompleted, repository.VideoPatch{
		ArchiveKey: &key,
	}); err != nil {
		log.Printf("[PIPELINE] Could not record archive key for video %s: %v", video.ID.Hex(), err)
	}
}
