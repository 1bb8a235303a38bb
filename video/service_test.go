package video

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vidcache/vidcache/storage"
	"github.com/vidcache/vidcache/vidcache"
)

type testDownloader struct {
	data string
	// blockedURLs holds channels that must be closed before a download
	// of that url can finish.
	blockedURLs map[string]chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func newTestDownloader(data string) *testDownloader {
	return &testDownloader{
		data:        data,
		blockedURLs: make(map[string]chan struct{}),
		calls:       make(map[string]int),
	}
}

func (d *testDownloader) DownloadResumable(
	ctx context.Context, url, destPath string, onProgress vidcache.ProgressFunc,
) (string, error) {

	d.mu.Lock()
	d.calls[url]++
	blockCh := d.blockedURLs[url]
	d.mu.Unlock()

	if blockCh != nil {
		<-blockCh
	}

	size := int64(len(d.data))
	if onProgress != nil {
		onProgress(size, size)
	}

	if err := os.WriteFile(destPath, []byte(d.data), 0o666); err != nil {
		return "", err
	}
	return destPath, nil
}

func (d *testDownloader) callCount(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls[url]
}

func newTestService(t *testing.T, downloader vidcache.Downloader, enablePreload bool) *Service {
	t.Helper()

	cfg := vidcache.Config{
		Dir:           t.TempDir(),
		EnableCaching: true,
		CacheDirName:  "videos",
		MaxCacheSize:  500,
		EnablePreload: enablePreload,
	}
	return NewService(cfg, storage.NewDisk(), downloader)
}

func TestService_Preload(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	downloader := newTestDownloader("video bytes")
	service := newTestService(t, downloader, false)

	const url = "https://cdn.example/a/video.mp4"

	path, err := service.Preload(context.Background(), url)
	r.NoError(err)
	r.Equal(filepath.Join(service.cfg.CacheDir(), "video.mp4"), path)

	data, err := os.ReadFile(path)
	r.NoError(err)
	r.Equal("video bytes", string(data))

	// A preloaded video is a cache hit for new sessions.
	session := service.NewSession(url, true)
	waitForSettled(t, session)

	state := session.State()
	r.True(state.IsCached)
	r.Equal(path, state.ServedPath)
}

func TestService_PreloadDisabledCaching(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	downloader := newTestDownloader("video bytes")
	service := newTestService(t, downloader, false)
	service.cfg.EnableCaching = false

	path, err := service.Preload(context.Background(), "https://cdn.example/a/video.mp4")
	r.NoError(err)
	r.Empty(path)
	r.Equal(0, downloader.callCount("https://cdn.example/a/video.mp4"))
}

func TestService_ClearCache(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	downloader := newTestDownloader("video bytes")
	service := newTestService(t, downloader, false)

	const url = "https://cdn.example/a/video.mp4"

	path, err := service.Preload(context.Background(), url)
	r.NoError(err)

	key := vidcache.ResolveKey(url)
	r.True(service.index.Exists(key))

	r.NoError(service.ClearCache())

	r.False(service.index.Exists(key))
	_, err = os.Stat(path)
	r.ErrorIs(err, os.ErrNotExist)
}
