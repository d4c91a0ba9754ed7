package media

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"streamvault/video-platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedClassifierLabelsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	c := NewSimulatedClassifier(100 * time.Millisecond)
	label, err := c.Classify(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, []domain.Sensitivity{domain.SensitivitySafe, domain.SensitivityFlagged}, label)
}

func TestSimulatedClassifierConcurrentUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	// One shared instance classifying for many runs at once, as wired in the
	// server. Run with -race.
	c := NewSimulatedClassifier(100 * time.Millisecond)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Classify(context.Background(), path)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSimulatedClassifierMissingFileIsHardError(t *testing.T) {
	c := NewSimulatedClassifier(100 * time.Millisecond)
	_, err := c.Classify(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestSimulatedClassifierHonorsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	// Large enough that the simulated delay hits the ceiling.
	require.NoError(t, os.WriteFile(path, make([]byte, 4*1024*1024), 0o644))

	c := NewSimulatedClassifier(5 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.01)
	assert.Equal(t, float64(25), parseFrameRate("25/1"))
	assert.Equal(t, float64(0), parseFrameRate("0/0"))
	assert.Equal(t, float64(0), parseFrameRate(""))
	assert.Equal(t, float64(0), parseFrameRate("30"))
}

func TestDefaultMetadata(t *testing.T) {
	meta := DefaultMetadata()
	assert.Equal(t, 1920, meta.Width)
	assert.Equal(t, 1080, meta.Height)
	assert.Equal(t, float64(30), meta.FrameRate)
	assert.Equal(t, "5000k", meta.Bitrate)
	assert.True(t, meta.HasAudio)
}
