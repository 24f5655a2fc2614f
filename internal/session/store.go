// File: internal/session/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sharded, thread-safe registry of live sessions.

package session

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
)

// Store maps session ids to sessions. Ids are sequential serials, so the low
// bits pick the shard directly.
type Store struct {
	shards []*shard
	mask   uint32
	count  atomic.Int64
}

type shard struct {
	mu       sync.RWMutex
	sessions map[uint32]api.Session
}

// NewStore constructs a store with shardCount shards rounded up to a power of two.
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard, m)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[uint32]api.Session)}
	}
	return &Store{shards: shards, mask: m - 1}
}

func (st *Store) shard(id uint32) *shard {
	return st.shards[id&st.mask]
}

// Add registers s; false if the id is taken.
func (st *Store) Add(s api.Session) bool {
	sh := st.shard(s.ID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[s.ID()]; ok {
		return false
	}
	sh.sessions[s.ID()] = s
	st.count.Add(1)
	return true
}

// Get fetches a session if present.
func (st *Store) Get(id uint32) (api.Session, bool) {
	sh := st.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Delete removes id and reports whether it was present.
func (st *Store) Delete(id uint32) bool {
	sh := st.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; !ok {
		return false
	}
	delete(sh.sessions, id)
	st.count.Add(-1)
	return true
}

// Len returns the number of registered sessions.
func (st *Store) Len() int { return int(st.count.Load()) }

// Snapshot copies the current sessions out so callers can act on them
// without holding shard locks (closing a session deletes it from the store).
func (st *Store) Snapshot() []api.Session {
	out := make([]api.Session, 0, st.Len())
	for _, sh := range st.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			out = append(out, s)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Range applies fn to every session until fn returns false. fn runs under a
// shard read lock and must not call back into the store.
func (st *Store) Range(fn func(api.Session) bool) {
	for _, sh := range st.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			if !fn(s) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
