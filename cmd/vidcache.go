package cmd

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/storage"
	"github.com/vidcache/vidcache/vidcache"
	"github.com/vidcache/vidcache/video"
	"github.com/vidcache/vidcache/web"
)

type Vidcache struct {
	cfg vidcache.Config

	videoService *video.Service

	server *web.Server
}

func NewVidcache(cfg vidcache.Config) *Vidcache {
	return &Vidcache{
		cfg: cfg,
	}
}

func (v *Vidcache) Prepare() error {
	if err := os.MkdirAll(v.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("couldn't create app data dir %q: %w", v.cfg.Dir, err)
	}

	disk := storage.NewDisk()
	downloader := storage.NewDownloader(v.cfg.DownloadTimeout)

	if !v.cfg.EnableCaching {
		rlog.Info("video caching is disabled")
	}

	v.videoService = video.NewService(v.cfg, disk, downloader)

	v.server = web.NewServer(v.cfg, v.videoService)

	return nil
}

func (v *Vidcache) Start(onError func()) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		if err := v.server.Start(); err != nil {
			rlog.Errorf("web server error: %s", err)
			onError()
		}
		close(done)
	}()

	return done
}

// Shutdown shutdowns all components. It is safe to call this method even
// if Prepare has failed.
func (v *Vidcache) Shutdown(ctx context.Context) error {
	var failed int
	for _, x := range []struct {
		name string
		s    shutdowner
	}{
		{"web server", v.server},
	} {
		if err := safeShutdown(ctx, x.s); err != nil {
			failed++
			rlog.Errorf("couldn't gracefully shutdown %s: %s", x.name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("couldn't gracefully shutdown %d component(s), see logs for more info", failed)
	}
	return nil
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// safeShutdown calls Shutdown method only on initialized components.
func safeShutdown(ctx context.Context, s shutdowner) error {
	v := reflect.ValueOf(s)
	if !v.IsValid() || v.IsNil() {
		return nil
	}
	return s.Shutdown(ctx)
}
