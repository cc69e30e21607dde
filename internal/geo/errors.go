package geo

import (
	"errors"
	"fmt"
)

// Precondition errors for geometry operations. Each stage checks its own
// preconditions and fails before computing a geometrically meaningless
// result, such as an area in a geographic CRS.
var (
	ErrUnsupportedCRS = errors.New("geo: unsupported coordinate reference system")
	ErrNonMetricCRS   = errors.New("geo: operation requires a projected metric CRS")
	ErrCRSMismatch    = errors.New("geo: collections are in different coordinate reference systems")
)

// SchemaError reports an attribute table that does not match its declared
// schema. It is never coerced away: a missing or mistyped column is fatal to
// the load that produced it.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("geo: schema mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("geo: schema mismatch on %q: %s", e.Field, e.Reason)
}
