package utils

import (
	"net/http"
	"time"
)

// DefaultCollaboratorTimeout bounds every call to the backend and classifier.
const DefaultCollaboratorTimeout = 10 * time.Second

// NewHTTPClient returns a client for collaborator calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &http.Client{Timeout: timeout}
}
