package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidcache/vidcache/cmd"
	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

func main() {
	cfg, err := vidcache.ParseConfig()
	if err != nil {
		rlog.Errorf("invalid config: %s", err)
		os.Exit(1)
	}

	cfg.BuildInfo.Print()
	cfg.Print()

	if cfg.DebugLogLevel {
		rlog.SetLevel(rlog.LevelDebug)
	}

	vc := cmd.NewVidcache(cfg)

	var (
		exitCode      int
		startFinished <-chan struct{}
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rlog.Info("shutdown")
		if err := vc.Shutdown(ctx); err != nil {
			rlog.Error(err)
		}

		if startFinished != nil {
			<-startFinished
		}

		os.Exit(exitCode)
	}()

	if err := vc.Prepare(); err != nil {
		rlog.Error(err)
		exitCode = 1
		return
	}

	termCtx, termCtxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer termCtxCancel()

	startFinished = vc.Start(func() {
		exitCode = 1
		termCtxCancel()
	})

	<-termCtx.Done()
}
