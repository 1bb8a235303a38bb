package vidcache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache miss")
)

// DownloadError is returned for any fault that prevents a video from being
// cached: directory creation, eviction pre-flight or the transfer itself.
// Message is human-readable and safe to show to a caller.
type DownloadError struct {
	Message string
	Err     error
}

func NewDownloadError(err error, format string, a ...any) *DownloadError {
	return &DownloadError{
		Message: fmt.Sprintf(format, a...),
		Err:     err,
	}
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func IsDownloadError(err error) bool {
	var downloadErr *DownloadError
	return errors.As(err, &downloadErr)
}

// FileInfo describes a single path. Exists is false for missing paths,
// in which case the other fields are zero.
type FileInfo struct {
	Exists  bool
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Storage wraps the filesystem primitives the cache is built on.
type Storage interface {
	// Stat reports whether a path exists. A missing path is not an error.
	Stat(path string) (FileInfo, error)
	// ListDirectory returns the names of all entries in a directory.
	// A missing directory is treated as empty.
	ListDirectory(path string) ([]string, error)
	// MakeDirectory creates a directory and all its parents. It is
	// idempotent.
	MakeDirectory(path string) error
	// Delete removes a path. Directories are removed recursively.
	Delete(path string) error
}

// ProgressFunc reports download progress. expected is 0 when the total
// transfer size is unknown.
type ProgressFunc func(written, expected int64)

// Downloader transfers a remote resource to a local file.
type Downloader interface {
	// DownloadResumable downloads url to destPath, resuming a previous
	// partial transfer if possible, and returns the final path. Any
	// transport fault is reported as a [*DownloadError].
	DownloadResumable(ctx context.Context, url, destPath string, onProgress ProgressFunc) (string, error)
}
