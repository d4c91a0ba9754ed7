package media

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"streamvault/video-platform/internal/domain"
)

// SensitivityClassifier assigns a content-sensitivity label to a stored file.
// A returned error is a hard failure and fails the pipeline run.
type SensitivityClassifier interface {
	Classify(ctx context.Context, filePath string) (domain.Sensitivity, error)
}

// SimulatedClassifier stands in for a real analytics/ML service. It spends
// time proportional to the file size (bounded at maxDelay) and flags roughly
// one video in five. Safe for concurrent use: runs for different videos
// classify in parallel on one shared instance.
type SimulatedClassifier struct {
	maxDelay time.Duration
}

// NewSimulatedClassifier creates a classifier with the given delay ceiling.
func NewSimulatedClassifier(maxDelay time.Duration) *SimulatedClassifier {
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &SimulatedClassifier{maxDelay: maxDelay}
}

// Classify stats the file, simulates analysis time and returns a label.
// A missing file is a hard error.
func (c *SimulatedClassifier) Classify(ctx context.Context, filePath string) (domain.Sensitivity, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("classify %s: %w", filePath, err)
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	delay := time.Duration(sizeMB*50) * time.Millisecond
	if delay > c.maxDelay {
		delay = c.maxDelay
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// Top-level rand is lock-protected, unlike a shared *rand.Rand.
	if rand.Float64() < 0.8 {
		return domain.SensitivitySafe, nil
	}
	return domain.SensitivityFlagged, nil
}
