package vidcache

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// syntheticKeyPrefix is used for identifiers without a file extension,
// see [ResolveKey].
const syntheticKeyPrefix = "video_"

// CacheKey is a filesystem-safe filename derived from a remote identifier.
type CacheKey struct {
	name      string
	synthetic bool
}

// Name returns the filename this key maps to inside the cache directory.
func (k CacheKey) Name() string {
	return k.name
}

// IsSynthetic reports whether the key was generated by the time-based
// fallback strategy instead of being derived from the identifier.
func (k CacheKey) IsSynthetic() bool {
	return k.synthetic
}

func (k CacheKey) String() string {
	return k.name
}

// ResolveKey derives a [CacheKey] from a remote identifier: it takes the
// final path segment, strips the query string and sanitizes the result.
// Resolution is deterministic for identifiers with a file extension.
//
// Identifiers without an extension fall back to a synthetic, time-derived
// name that is different on every call. Such identifiers can never observe
// a cache hit - callers can detect this case via [CacheKey.IsSynthetic].
func ResolveKey(identifier string) CacheKey {
	segment := identifier
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.Index(segment, "?"); i >= 0 {
		segment = segment[:i]
	}

	if !strings.Contains(segment, ".") {
		return CacheKey{
			name:      fmt.Sprintf("%s%d", syntheticKeyPrefix, time.Now().UnixMilli()),
			synthetic: true,
		}
	}

	return CacheKey{
		name: sanitizeFilename(segment),
	}
}

// sanitizeFilename normalizes a filename to NFC and replaces all runes
// that can be unsafe in a filepath.
func sanitizeFilename(name string) string {
	var res []rune
	for _, r := range norm.NFC.String(name) {
		switch {
		case unicode.IsLetter(r):
			r = unicode.ToLower(r)
		case unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			// Ok
		default:
			r = '_'
		}
		res = append(res, r)
	}
	return string(res)
}
