package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const streamBody = "0123456789abcdefghijklmnopqrstuvwxyz" // 36 bytes

func newStreamFixture(t *testing.T) (*StreamService, *domain.Video) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, written, err := files.Save("tenant", "clip.mp4", strings.NewReader(streamBody))
	require.NoError(t, err)
	require.Equal(t, int64(len(streamBody)), written)

	video := &domain.Video{
		ID:       primitive.NewObjectID(),
		FilePath: path,
		MimeType: "video/mp4",
		Size:     written,
	}
	return NewStreamService(files), video
}

func serveRange(t *testing.T, s *StreamService, video *domain.Video, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	require.Nil(t, s.Serve(w, req, video))
	return w
}

func TestStreamFullFile(t *testing.T) {
	s, video := newStreamFixture(t)
	w := serveRange(t, s, video, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, streamBody, w.Body.String())
	assert.Equal(t, fmt.Sprint(len(streamBody)), w.Header().Get("Content-Length"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Empty(t, w.Header().Get("Content-Range"))
}

func TestStreamPartialRange(t *testing.T) {
	s, video := newStreamFixture(t)
	w := serveRange(t, s, video, "bytes=10-19")

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, streamBody[10:20], w.Body.String())
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, fmt.Sprintf("bytes 10-19/%d", len(streamBody)), w.Header().Get("Content-Range"))
}

func TestStreamOpenEndedRange(t *testing.T) {
	s, video := newStreamFixture(t)
	w := serveRange(t, s, video, "bytes=30-")

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, streamBody[30:], w.Body.String())
	assert.Equal(t, fmt.Sprintf("bytes 30-%d/%d", len(streamBody)-1, len(streamBody)), w.Header().Get("Content-Range"))
}

func TestStreamAdjacentRangesReassemble(t *testing.T) {
	s, video := newStreamFixture(t)

	first := serveRange(t, s, video, "bytes=0-17")
	second := serveRange(t, s, video, "bytes=18-35")

	assert.Equal(t, http.StatusPartialContent, first.Code)
	assert.Equal(t, http.StatusPartialContent, second.Code)
	assert.Equal(t, streamBody, first.Body.String()+second.Body.String())
}

func TestStreamUnsatisfiableRanges(t *testing.T) {
	s, video := newStreamFixture(t)
	size := len(streamBody)

	cases := []struct {
		name  string
		value string
	}{
		{"start beyond size", fmt.Sprintf("bytes=%d-", size)},
		{"start far beyond size", "bytes=500000-"},
		{"end beyond size", fmt.Sprintf("bytes=0-%d", size)},
		{"inverted", "bytes=20-10"},
		{"malformed start", "bytes=abc-10"},
		{"multi-range", "bytes=0-5,10-15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serveRange(t, s, video, tc.value)
			assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
			assert.Equal(t, fmt.Sprintf("bytes */%d", size), w.Header().Get("Content-Range"))
			assert.Empty(t, w.Body.String())
		})
	}
}

func TestStreamMissingFile(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	s := NewStreamService(files)

	video := &domain.Video{
		ID:       primitive.NewObjectID(),
		FilePath: "/nonexistent/clip.mp4",
		MimeType: "video/mp4",
	}

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	w := httptest.NewRecorder()
	streamErr := s.Serve(w, req, video)
	require.NotNil(t, streamErr)
	assert.Equal(t, http.StatusNotFound, streamErr.StatusCode)
	assert.Equal(t, ErrFileNotFound.Error(), streamErr.Message)
}

func TestParseRangeHeader(t *testing.T) {
	start, end, err := parseRangeHeader("bytes=5-9", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(5), start)
	assert.Equal(t, int64(9), end)

	start, end, err = parseRangeHeader("bytes=10-", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10), start)
	assert.Equal(t, int64(99), end)

	_, _, err = parseRangeHeader("items=0-5", 100)
	assert.Error(t, err)

	_, _, err = parseRangeHeader("bytes=100-", 100)
	assert.Error(t, err)

	_, _, err = parseRangeHeader("bytes=0-100", 100)
	assert.Error(t, err)
}
