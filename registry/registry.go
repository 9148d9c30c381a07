/*
 * MIT License
 *
 * Copyright (c) 2026 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package registry

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Handle is whatever the caller wants to look up by id. wsserver stores
// *session.Session values here; the registry itself never inspects them.
type Handle interface{}

// Registry is the server-side session table plus the {1..N} free-id pool.
// All operations are protected by a single mutex.
type Registry struct {
	mu   sync.Mutex
	max  uint64
	free *bitset.BitSet
	live map[uint64]Handle
}

// New builds a Registry whose free-id pool is initialized to {1..n}.
func New(n int) *Registry {
	r := &Registry{
		max:  uint64(n),
		free: bitset.New(uint(n) + 1),
		live: make(map[uint64]Handle, n),
	}
	for i := uint64(1); i <= r.max; i++ {
		r.free.Set(uint(i))
	}
	return r
}

// Allocate returns the smallest free id and removes it from the pool. The
// second return is false if the pool is exhausted (at capacity).
func (r *Registry) Allocate() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.free.NextSet(1)
	if !ok {
		return 0, false
	}

	r.free.Clear(idx)
	return uint64(idx), true
}

// Release returns id to the free pool. Releasing an id that is already
// free, or out of range, is a no-op — reachable when a peer close and a
// local stop race each other.
func (r *Registry) Release(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 1 || id > r.max {
		return
	}
	r.free.Set(uint(id))
}

// Insert records id -> h as live. Callers allocate the id first via
// Allocate, then Insert once the Handle exists.
func (r *Registry) Insert(id uint64, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[id] = h
}

// Remove deletes id from the live table without touching the free pool;
// callers that want the id made available again call Release separately
// (Terminate does both).
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// Terminate removes id from the live table and returns it to the free
// pool in one locked section — the single call a Session makes to report
// its own end, instead of a remove and a release as two separate calls
// that could interleave with a concurrent Allocate.
func (r *Registry) Terminate(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.live, id)
	if id >= 1 && id <= r.max {
		r.free.Set(uint(id))
	}
}

// Lookup returns the Handle registered for id, if live.
func (r *Registry) Lookup(id uint64) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[id]
	return h, ok
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Reset clears the live table and reinitializes the free pool to {1..N},
// used by (*wsserver.Server).Stop so the server can be restarted.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.live = make(map[uint64]Handle, r.max)
	r.free = bitset.New(uint(r.max) + 1)
	for i := uint64(1); i <= r.max; i++ {
		r.free.Set(uint(i))
	}
}

// Each calls fn for every live (id, Handle) pair. fn must not call back
// into the Registry — Each holds the lock for its duration.
func (r *Registry) Each(fn func(id uint64, h Handle)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, h := range r.live {
		fn(id, h)
	}
}
