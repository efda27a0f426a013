package services

import (
	"errors"
	"fmt"

	"ecoecho-core/store"
)

// ErrUnknownAchievement is returned for ids missing from the catalog.
var ErrUnknownAchievement = errors.New("unknown achievement")

// NetworkError reports a collaborator that was unreachable or answered non-2xx.
type NetworkError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s unreachable: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err came from the local store.
func IsStorageError(err error) bool {
	var se *store.StorageError
	return errors.As(err, &se)
}

// IsNetworkError reports whether err came from a collaborator call.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
