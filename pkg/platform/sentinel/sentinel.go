package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into coded domain errors:
// - ErrNotFound: the keyed entity does not exist
// - ErrConflict: the key is already taken
// - ErrUnavailable: the backing resource cannot serve the request
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
