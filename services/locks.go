package services

import (
	"sync"

	"ecoecho-core/store"
)

// NamespaceLocks serializes read-modify-write cycles per namespace.
type NamespaceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewNamespaceLocks() *NamespaceLocks {
	return &NamespaceLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until ns is free and returns the unlock func.
func (l *NamespaceLocks) Lock(ns store.Namespace) func() {
	l.mu.Lock()
	m, ok := l.locks[ns.CacheKey()]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ns.CacheKey()] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
