// Package keys builds cache keys from source descriptions.
package keys

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key derives a cache key from a source kind ("stations", "shapefile", ...)
// and its identifying parts (paths, layer names). The human-readable prefix
// is sanitized for use as a filename; the xxhash suffix keeps distinct
// sources from colliding after sanitization truncates or folds characters.
func Key(kind string, parts ...string) string {
	joined := strings.Join(parts, "|")
	name := sanitize(kind)
	if len(parts) > 0 {
		base := parts[len(parts)-1]
		if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
			base = base[i+1:]
		}
		name += "-" + sanitize(base)
	}
	const maxNameLen = 80
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return fmt.Sprintf("%s-%016x", name, xxhash.Sum64String(kind+"|"+joined))
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range strings.ToLower(s) {
		out := r
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.', r == '_':
		default:
			out = '-'
		}
		if out == '-' && prev == '-' {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return strings.Trim(b.String(), "-")
}
