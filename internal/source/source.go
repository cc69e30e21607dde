// Package source loads tabular and vector geometry sources into collections.
package source

import "errors"

// ErrUnavailable reports that an authoritative source could not be read and
// no cache entry exists. Fatal to the requesting workflow only; nothing is
// written to the cache on the way out.
var ErrUnavailable = errors.New("source: unavailable")
