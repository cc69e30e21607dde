// Package workflow composes the pipeline stages into the three worked
// analyses: station mapping, proximity search, and alpine coverage. Each is
// a pure function over explicit inputs so the analyses can run and be tested
// independently, in any order.
package workflow

import (
	"github.com/headwaterlabs/catchcover/internal/cache"
)

// Source pairs a cache key with the loader that materializes the collection
// on a miss. Workflows only ever read sources through the collection cache.
type Source struct {
	Key  string
	Load cache.LoadFunc
}
