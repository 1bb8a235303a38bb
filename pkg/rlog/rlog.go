package rlog

import (
	"io"
	"log"
	"os"
)

const flags = log.Ldate | log.Ltime | log.Lmsgprefix

var (
	debug = log.New(io.Discard, "[DBG] ", flags)
	info  = log.New(os.Stderr, "[INF] ", flags)
	warn  = log.New(os.Stderr, "[WRN] ", flags)
	err   = log.New(os.Stderr, "[ERR] ", flags)
	fatal = log.New(os.Stderr, "[FAT] ", flags)
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// SetLevel enables all loggers with a level >= l and discards the output
// of the others.
func SetLevel(l Level) {
	for _, x := range []struct {
		logger *log.Logger
		level  Level
	}{
		{debug, LevelDebug},
		{info, LevelInfo},
		{warn, LevelWarn},
		{err, LevelError},
	} {
		var w io.Writer = io.Discard
		if x.level >= l {
			w = os.Stderr
		}
		x.logger.SetOutput(w)
	}
}

func Debug(v ...any)                 { debug.Println(v...) }
func Debugf(format string, v ...any) { debug.Printf(format, v...) }

func Info(v ...any)                 { info.Println(v...) }
func Infof(format string, v ...any) { info.Printf(format, v...) }

func Warn(v ...any)                 { warn.Println(v...) }
func Warnf(format string, v ...any) { warn.Printf(format, v...) }

func Error(v ...any)                 { err.Println(v...) }
func Errorf(format string, v ...any) { err.Printf(format, v...) }

func Fatal(v ...any)                 { fatal.Fatal(v...) }
func Fatalf(format string, v ...any) { fatal.Fatalf(format, v...) }
