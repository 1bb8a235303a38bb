package vidcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveKey(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		identifier string
		wantName   string
	}{
		{identifier: "https://cdn.example/a/video.mp4", wantName: "video.mp4"},
		{identifier: "https://cdn.example/a/Video.MP4", wantName: "video.mp4"},
		{identifier: "https://cdn.example/a/video.mp4?token=abc&exp=123", wantName: "video.mp4"},
		{identifier: "https://cdn.example/a/my video (1).mp4", wantName: "my_video__1_.mp4"},
		{identifier: "https://cdn.example/a/клип.webm", wantName: "клип.webm"},
		{identifier: "movie.mkv", wantName: "movie.mkv"},
	} {
		t.Run(tt.identifier, func(t *testing.T) {
			key := ResolveKey(tt.identifier)
			r := require.New(t)
			r.Equal(tt.wantName, key.Name())
			r.False(key.IsSynthetic())

			// Resolution must be deterministic for identifiers with an extension.
			r.Equal(key, ResolveKey(tt.identifier))
		})
	}
}

func TestResolveKey_SyntheticFallback(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	key := ResolveKey("https://cdn.example/stream/abc123")
	r.True(key.IsSynthetic())
	r.Regexp(`^video_\d+$`, key.Name())

	// Extensionless identifiers intentionally never resolve to the same
	// key twice, so they can't observe cache hits.
	other := ResolveKey("https://cdn.example/stream/abc123?x=1")
	r.True(other.IsSynthetic())
}
