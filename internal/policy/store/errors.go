// Package store persists policy records. Batch operations are atomic.
package store

import (
	"errors"
	"fmt"

	"molecule/pkg/domain"
)

// KeyError names the record a batch failed on. It unwraps to a sentinel.
type KeyError struct {
	ID  domain.PolicyID
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("policy %s: %v", e.ID, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// FailedID returns the id carried by a KeyError anywhere in err's chain.
func FailedID(err error) (domain.PolicyID, bool) {
	var ke *KeyError
	if errors.As(err, &ke) {
		return ke.ID, true
	}
	return 0, false
}
