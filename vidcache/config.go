package vidcache

import (
	"encoding"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BuildInfo BuildInfo

	ServerPort int
	Dir        string

	EnableCaching bool
	CacheDirName  string
	MaxCacheSize  MiB
	EnablePreload bool

	DownloadTimeout time.Duration

	// Debug options

	DebugLogLevel bool
}

// CacheDir returns the directory all cache entries live under.
func (cfg Config) CacheDir() string {
	return filepath.Join(cfg.Dir, cfg.CacheDirName)
}

type BuildInfo struct {
	ShortGitHash string
	CommitTime   string
}

type MiB int

func (mb MiB) Bytes() int64 {
	return int64(mb) << 20
}

func (mb MiB) String() string {
	text, _ := mb.MarshalText()
	return string(text)
}

func (mb MiB) MarshalText() (text []byte, err error) {
	if mb >= 1024 && mb%1024 == 0 {
		return []byte(strconv.Itoa(int(mb/1024)) + "Gi"), nil
	}
	return []byte(strconv.Itoa(int(mb)) + "Mi"), nil
}

func (mb *MiB) UnmarshalText(data []byte) error {
	text := string(data)

	mul := 1
	switch {
	case strings.HasSuffix(text, "Mi"):
	case strings.HasSuffix(text, "Gi"):
		mul = 1024
	default:
		return fmt.Errorf("valid suffixes: Mi, Gi")
	}
	n, err := strconv.Atoi(text[:len(text)-2])
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}

	*mb = MiB(n * mul)
	return nil
}

type flagParams struct {
	// p is a pointer to a value.
	p            any
	defaultValue any
	desc         string
}

func (cfg *Config) getFlagParams() map[string]flagParams {
	return map[string]flagParams{
		"port": {
			p: &cfg.ServerPort, defaultValue: 8080, desc: "Server port",
		},
		"dir": {
			p: &cfg.Dir, defaultValue: "./var", desc: "Directory for app data (cached videos and etc.)",
		},
		//
		"enable-caching": {
			p: &cfg.EnableCaching, defaultValue: true, desc: "Cache downloaded videos on disk",
		},
		"cache-dir-name": {
			p: &cfg.CacheDirName, defaultValue: "videos", desc: "Name of the cache directory under --dir",
		},
		"max-cache-size": {
			p: &cfg.MaxCacheSize, defaultValue: MiB(500), desc: "Max total size of cached videos",
		},
		"enable-preload": {
			p: &cfg.EnablePreload, defaultValue: false, desc: "" +
				"Download videos in the background on a cache miss. When disabled,\n" +
				"videos are cached only via explicit preload requests",
		},
		//
		"download-timeout": {
			p: &cfg.DownloadTimeout, defaultValue: 10 * time.Minute, desc: "Timeout for a single video download",
		},
		//
		"debug-log-level": {
			p: &cfg.DebugLogLevel, defaultValue: false, desc: "Display debug log messages",
		},
	}
}

func ParseConfig() (Config, error) {
	cfg := Config{
		BuildInfo: readBuildInfo(),
	}

	var printVersion bool
	flag.BoolVar(&printVersion, "version", false, "Print version and exit")

	flags := cfg.getFlagParams()
	for name, params := range flags {
		switch p := params.p.(type) {
		case *bool:
			flag.BoolVar(p, name, params.defaultValue.(bool), params.desc)
		case *int:
			flag.IntVar(p, name, params.defaultValue.(int), params.desc)
		case *int64:
			flag.Int64Var(p, name, params.defaultValue.(int64), params.desc)
		case *string:
			flag.StringVar(p, name, params.defaultValue.(string), params.desc)
		case *time.Duration:
			flag.DurationVar(p, name, params.defaultValue.(time.Duration), params.desc)
		case encoding.TextUnmarshaler:
			flag.TextVar(p, name, params.defaultValue.(encoding.TextMarshaler), params.desc)
		default:
			return Config{}, fmt.Errorf("flag %q has unsupported type: %T", name, p)
		}
	}

	flag.Parse()

	if printVersion {
		cfg.BuildInfo.Print()
		os.Exit(0)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.ServerPort <= 0 {
		return errors.New("server port must be > 0")
	}
	if cfg.Dir == "" {
		return errors.New("dir can't be empty")
	}
	if cfg.CacheDirName == "" {
		return errors.New("cache dir name can't be empty")
	}
	if strings.ContainsRune(cfg.CacheDirName, os.PathSeparator) {
		return errors.New("cache dir name can't contain path separators")
	}
	if cfg.MaxCacheSize <= 0 {
		return errors.New("max cache size must be > 0")
	}
	if cfg.DownloadTimeout <= 0 {
		return errors.New("download timeout must be > 0")
	}
	return nil
}

func readBuildInfo() BuildInfo {
	res := BuildInfo{
		ShortGitHash: "unknown",
		CommitTime:   "unknown",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return res
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			res.ShortGitHash = s.Value
			if len(res.ShortGitHash) > 7 {
				res.ShortGitHash = res.ShortGitHash[:7]
			}

		case "vcs.time":
			t, err := time.Parse(time.RFC3339, s.Value)
			if err == nil {
				res.CommitTime = t.UTC().Format("2006-01-02 15:04:05 UTC")
			}
		}
	}
	return res
}

func (info BuildInfo) Print() {
	fmt.Fprintf(os.Stderr, `
    vidcache - local disk cache for remote videos

    Commit Hash: %q
    Commit Time: %q

`,
		info.ShortGitHash,
		info.CommitTime,
	)
}

func (cfg Config) Print() {
	flags := cfg.getFlagParams()

	var (
		names         = make([]string, 0, len(flags))
		maxNameLength int
	)
	for name := range flags {
		if len(name) > maxNameLength {
			maxNameLength = len(name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprint(os.Stderr, "    Config:\n\n")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "        --%-*s = %v\n", maxNameLength, name, reflect.ValueOf(flags[name].p).Elem())
	}
	fmt.Fprint(os.Stderr, "\n")
}
