package catalog

import "errors"

// Errores del catálogo. Los de tier se degradan a miss dentro del resolver;
// sólo ErrSourceUnreachable cruza hacia el caller.
var (
	ErrTierUnavailable   = errors.New("catalog: tier unavailable")
	ErrMalformedPayload  = errors.New("catalog: malformed payload")
	ErrCleared           = errors.New("catalog: payload cleared")
	ErrSourceUnreachable = errors.New("catalog: source unreachable")
)
