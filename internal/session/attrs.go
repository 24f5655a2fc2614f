// File: internal/session/attrs.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe attribute store bound to one session.

package session

import (
	"sync"
	"time"
)

type entry struct {
	val    any
	expiry time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}

// Attrs holds business attributes of a session.
type Attrs struct {
	mu    sync.RWMutex
	store map[string]entry
}

// NewAttrs creates an empty store.
func NewAttrs() *Attrs {
	return &Attrs{store: make(map[string]entry)}
}

// Set stores value under key, clearing any expiration.
func (a *Attrs) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store[key] = entry{val: value}
}

// Get retrieves a live value.
func (a *Attrs) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.store[key]
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.val, true
}

// Delete removes a key.
func (a *Attrs) Delete(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.store, key)
}

// Expire makes key invisible after ttl.
func (a *Attrs) Expire(key string, ttl time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.store[key]; ok {
		e.expiry = time.Now().Add(ttl)
		a.store[key] = e
	}
}

// Keys returns all live keys.
func (a *Attrs) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0, len(a.store))
	for k, e := range a.store {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Clear drops every attribute.
func (a *Attrs) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.store)
}
