package service

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/storage"
)

// ErrFileNotFound marks a record whose backing file is absent on disk,
// distinct from the record itself being absent.
var ErrFileNotFound = errors.New("video file not found on disk")

// StreamError is a streaming failure detected before any headers were sent.
type StreamError struct {
	StatusCode int
	Message    string
}

func (e *StreamError) Error() string {
	return e.Message
}

// StreamService serves a stored video over HTTP honoring single byte-range
// requests (RFC 7233). The caller must already have authenticated the
// request and resolved the record within the caller's tenant.
type StreamService struct {
	files storage.FileStorage
}

// NewStreamService creates a new StreamService.
func NewStreamService(files storage.FileStorage) *StreamService {
	return &StreamService{files: files}
}

// Serve writes the response for a stream request. A non-nil *StreamError
// means no bytes were written and the caller should render the error;
// after headers are committed, failures terminate the connection instead.
//
// Semantics:
//   - no Range header: 200 with the full file and explicit Content-Length
//   - "bytes=<start>-<end>" (end optional): 206 with the inclusive range
//   - start >= size, end >= size or start > end: 416 with
//     "Content-Range: bytes */<size>" and an empty body; the file is not
//     opened in this case
//   - multi-range requests are not supported
func (s *StreamService) Serve(w http.ResponseWriter, r *http.Request, video *domain.Video) *StreamError {
	fileSize, err := s.files.Stat(video.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &StreamError{StatusCode: http.StatusNotFound, Message: ErrFileNotFound.Error()}
		}
		return &StreamError{StatusCode: http.StatusInternalServerError, Message: "Error reading video file"}
	}

	contentType := video.MimeType
	if contentType == "" {
		contentType = "video/mp4"
	}
	startByte := int64(0)
	endByte := fileSize - 1
	partial := false

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, err := parseRangeHeader(rangeHeader, fileSize)
		if err != nil {
			// Unsatisfiable: empty body, and the file is never opened.
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return nil
		}
		startByte, endByte = start, end
		partial = true
	}

	// Open before committing headers so a pre-header failure can still
	// produce a structured error response.
	file, err := s.files.Open(video.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &StreamError{StatusCode: http.StatusNotFound, Message: ErrFileNotFound.Error()}
		}
		return &StreamError{StatusCode: http.StatusInternalServerError, Message: "Error streaming video"}
	}
	defer file.Close()

	if _, err := file.Seek(startByte, io.SeekStart); err != nil {
		return &StreamError{StatusCode: http.StatusInternalServerError, Message: "Error streaming video"}
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", startByte, endByte, fileSize))
		w.Header().Set("Content-Length", strconv.FormatInt(endByte-startByte+1, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
		w.WriteHeader(http.StatusOK)
	}

	if _, err := io.CopyN(w, file, endByte-startByte+1); err != nil {
		// Mid-stream failure, usually the client going away. The transport
		// tears the connection down; nothing useful left to write.
		log.Printf("[STREAM] Transfer aborted for %s: %v", video.FilePath, err)
	}
	return nil
}

// parseRangeHeader parses a single "bytes=<start>-<end>" range. The end is
// optional and defaults to fileSize-1. Unsatisfiable or malformed ranges
// return an error; multi-range requests are rejected.
func parseRangeHeader(rangeHeader string, fileSize int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("unsupported range %q", rangeHeader)
	}

	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, fmt.Errorf("malformed range %q", rangeHeader)
	}

	start, err = strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("malformed range start %q", rangeHeader)
	}

	end = fileSize - 1
	if strings.TrimSpace(last) != "" {
		end, err = strconv.ParseInt(strings.TrimSpace(last), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed range end %q", rangeHeader)
		}
	}

	if start >= fileSize || end >= fileSize || start > end {
		return 0, 0, fmt.Errorf("unsatisfiable range %d-%d for size %d", start, end, fileSize)
	}
	return start, end, nil
}
