// Package store persists per-namespace documents on the device.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Base keys shared with the legacy mobile client.
const (
	KeyScanHistory  = "eco_echo_scan_history"
	KeyUserStats    = "eco_echo_user_stats"
	KeyUserProgress = "eco_echo_user_progress"
	KeyPoints       = "eco_echo_points"
	KeyProfileStats = "eco_echo_profile_stats"
)

// AnonymousPrefix starts every key in the pre-login namespace.
const AnonymousPrefix = "anonymous_"

// BaseKeys lists every document kept per namespace.
var BaseKeys = []string{KeyScanHistory, KeyUserStats, KeyUserProgress, KeyPoints, KeyProfileStats}

// Store is a flat key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// Namespace scopes keys to one user, or to the anonymous pre-login state.
type Namespace struct {
	UserID string
}

// Anonymous is the pre-login namespace.
var Anonymous = Namespace{}

// ForUser returns the namespace of userID; an empty id is anonymous.
func ForUser(userID string) Namespace {
	return Namespace{UserID: strings.TrimSpace(userID)}
}

// IsAnonymous reports whether ns is the pre-login namespace.
func (ns Namespace) IsAnonymous() bool {
	return ns.UserID == ""
}

// Key builds "<baseKey>_<userId>" or "anonymous_<baseKey>".
func (ns Namespace) Key(baseKey string) string {
	if ns.IsAnonymous() {
		return AnonymousPrefix + baseKey
	}
	return baseKey + "_" + ns.UserID
}

// Owns reports whether key belongs to ns.
func (ns Namespace) Owns(key string) bool {
	for _, base := range BaseKeys {
		if key == ns.Key(base) {
			return true
		}
	}
	return false
}

// CacheKey identifies ns in locks and caches. Unlike String it cannot
// collide with a user literally named "anonymous".
func (ns Namespace) CacheKey() string {
	if ns.IsAnonymous() {
		return AnonymousPrefix
	}
	return "user:" + ns.UserID
}

func (ns Namespace) String() string {
	if ns.IsAnonymous() {
		return "anonymous"
	}
	return ns.UserID
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
