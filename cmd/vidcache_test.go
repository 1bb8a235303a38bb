package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vidcache/vidcache/vidcache"
)

func TestVidcache_PrepareAndShutdown(t *testing.T) {
	r := require.New(t)

	v := NewVidcache(vidcache.Config{
		ServerPort:      8080,
		Dir:             t.TempDir(),
		EnableCaching:   true,
		CacheDirName:    "videos",
		MaxCacheSize:    500,
		DownloadTimeout: time.Minute,
	})
	r.NoError(v.Prepare())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.NoError(v.Shutdown(ctx))
}

// Shutdown must be safe to call even when Prepare was never run.
func TestVidcache_ShutdownWithoutPrepare(t *testing.T) {
	v := NewVidcache(vidcache.Config{})
	require.NoError(t, v.Shutdown(context.Background()))
}

func TestSafeShutdown(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	err := safeShutdown(ctx, nil)
	r.NoError(err)

	err = safeShutdown(ctx, (*testShutdowner)(nil))
	r.NoError(err)

	err = safeShutdown(ctx, new(testShutdowner))
	r.Equal(err.Error(), "test")
}

type testShutdowner struct{}

func (*testShutdowner) Shutdown(context.Context) error { return errors.New("test") }
