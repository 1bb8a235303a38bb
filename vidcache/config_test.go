package vidcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMiB(t *testing.T) {
	for _, tt := range []struct {
		in        string
		wantErr   string
		wantText  string
		wantBytes int64
	}{
		{in: "1Mi", wantText: "1Mi", wantBytes: 1 << 20},
		{in: "500Mi", wantText: "500Mi", wantBytes: 500 << 20},
		{in: "1024Mi", wantText: "1Gi", wantBytes: 1 << 30},
		{in: "2047Mi", wantText: "2047Mi", wantBytes: 2047 << 20},
		{in: "2048Mi", wantText: "2Gi", wantBytes: 2 << 30},
		{in: "1Gi", wantText: "1Gi", wantBytes: 1 << 30},
		{in: "3Gi", wantText: "3Gi", wantBytes: 3 << 30},
		//
		{in: "3GiB", wantErr: "valid suffixes: Mi, Gi", wantText: "0Mi"},
		{in: "3xGi", wantErr: "invalid size: strconv.Atoi", wantText: "0Mi"},
	} {
		t.Run("", func(t *testing.T) {
			r := require.New(t)

			var s MiB
			err := s.UnmarshalText([]byte(tt.in))
			if tt.wantErr == "" {
				r.NoError(err)
			} else {
				r.Error(err)
				r.Contains(err.Error(), tt.wantErr)
			}

			r.Equal(tt.wantText, s.String())
			r.Equal(tt.wantBytes, s.Bytes())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() Config {
		return Config{
			ServerPort:      8080,
			Dir:             "./var",
			CacheDirName:    "videos",
			MaxCacheSize:    500,
			DownloadTimeout: time.Minute,
		}
	}

	r := require.New(t)

	r.NoError(validConfig().validate())

	cfg := validConfig()
	cfg.ServerPort = 0
	r.EqualError(cfg.validate(), "server port must be > 0")

	cfg = validConfig()
	cfg.CacheDirName = ""
	r.EqualError(cfg.validate(), "cache dir name can't be empty")

	cfg = validConfig()
	cfg.CacheDirName = "a/b"
	r.EqualError(cfg.validate(), "cache dir name can't contain path separators")

	cfg = validConfig()
	cfg.MaxCacheSize = 0
	r.EqualError(cfg.validate(), "max cache size must be > 0")
}

func TestConfigCacheDir(t *testing.T) {
	t.Parallel()

	cfg := Config{Dir: "/data", CacheDirName: "videos"}
	require.Equal(t, "/data/videos", cfg.CacheDir())
}
