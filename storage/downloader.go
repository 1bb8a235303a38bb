package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// partFileSuffix marks an incomplete download. Partial files are kept
// after a failure so that the next attempt can resume the transfer.
const partFileSuffix = ".part"

// Downloader implements [vidcache.Downloader] over HTTP. Transfers are
// resumed from a partial file via a Range request when the server
// supports it.
type Downloader struct {
	httpClient *http.Client
}

var _ vidcache.Downloader = (*Downloader)(nil)

func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *Downloader) DownloadResumable(
	ctx context.Context, url, destPath string, onProgress vidcache.ProgressFunc,
) (string, error) {

	partPath := destPath + partFileSuffix

	var offset int64
	if info, err := os.Stat(partPath); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", vidcache.NewDownloadError(err, "invalid download url %q", url)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", vidcache.NewDownloadError(err, "couldn't download %q", url)
	}
	defer resp.Body.Close()

	switch {
	case offset > 0 && resp.StatusCode == http.StatusPartialContent:
		rlog.Debugf("resume download of %q from offset %d", url, offset)

	case resp.StatusCode == http.StatusOK:
		// Either a fresh download or the server ignored the Range
		// header - start over.
		offset = 0

	default:
		return "", vidcache.NewDownloadError(nil, "unexpected response for %q: %s", url, resp.Status)
	}

	written, err := d.writePartFile(partPath, offset, resp, onProgress)
	if err != nil {
		// The partial file is left in place for a future resume.
		return "", vidcache.NewDownloadError(err, "download of %q was interrupted after %d bytes", url, written)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		return "", vidcache.NewDownloadError(err, "couldn't finalize download of %q", url)
	}
	return destPath, nil
}

func (d *Downloader) writePartFile(
	partPath string, offset int64, resp *http.Response, onProgress vidcache.ProgressFunc,
) (written int64, err error) {

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(partPath, flags, 0o666)
	if err != nil {
		return 0, fmt.Errorf("couldn't create partial file: %w", err)
	}

	var expected int64
	if resp.ContentLength >= 0 {
		expected = offset + resp.ContentLength
	}
	if onProgress != nil {
		onProgress(offset, expected)
	}

	w := &progressWriter{
		written:    offset,
		expected:   expected,
		onProgress: onProgress,
	}

	copied, err := io.Copy(f, io.TeeReader(resp.Body, w))
	closeErr := f.Close()
	if err != nil {
		return offset + copied, err
	}
	if closeErr != nil {
		return offset + copied, fmt.Errorf("couldn't close partial file: %w", closeErr)
	}
	return offset + copied, nil
}

// progressWriter reports the number of downloaded bytes after every chunk.
type progressWriter struct {
	written    int64
	expected   int64
	onProgress vidcache.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.onProgress != nil {
		w.onProgress(w.written, w.expected)
	}
	return len(p), nil
}
