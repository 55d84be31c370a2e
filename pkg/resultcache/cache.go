// Package resultcache implements the fingerprint-keyed, at-most-once
// result cache described by the engine's evaluation contract: concurrent
// GetResult calls for operators sharing a CacheKey join a single in-flight
// build rather than each recomputing it, and the cache evicts least-
// recently-used entries once it exceeds a configured byte budget.
//
// The bookkeeping is a container/list LRU list plus a map, guarded by one
// mutex, with hit/miss/eviction counters routed through qmetrics since the
// whole engine shares one Prometheus registry. The at-most-once build
// lease borrows the shape of a sync.Once scoped to a single key, with a
// google/uuid token identifying which caller is on the hook to build.
package resultcache

import (
	"container/list"
	"sync"

	"github.com/google/uuid"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qerrors"
	"tripleengine/pkg/qmetrics"
	"tripleengine/pkg/qresult"
)

// entry is either an in-flight build (result is nil, done is open) or a
// completed one (result is set, lruElem placed in the LRU list). An entry
// never transitions back from completed to in-flight; a fresh build for
// the same key that runs after eviction gets a brand new entry.
type entry struct {
	key     string
	leaseID uuid.UUID
	done    chan struct{}
	result  *qresult.Result
	err     error
	bytes   uint64
	lruElem *list.Element
}

// Cache is a size-bounded, concurrency-safe cache of materialized Results
// keyed by Operator.CacheKey(). The zero value is not usable; construct
// with New.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	lru      *list.List
	maxBytes uint64
	curBytes uint64
}

// New creates a Cache that evicts least-recently-used completed entries
// once the sum of their EstimatedBytes exceeds maxBytes. maxBytes of 0
// means unbounded.
func New(maxBytes uint64) *Cache {
	return &Cache{
		entries:  make(map[string]*entry),
		lru:      list.New(),
		maxBytes: maxBytes,
	}
}

// GetResult returns op's cached Result, building it at most once even
// under concurrent calls for the same CacheKey. A caller that arrives
// while another goroutine's build is in flight blocks on that build's
// completion instead of starting its own (the at-most-once concurrent
// build guarantee); it does not call op.GetResult itself and so cannot
// double-count op's side effects.
func (c *Cache) GetResult(op operator.Operator, handle *cancel.Handle) (*qresult.Result, error) {
	key := op.CacheKey()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		// A failed build deletes its own entry before closing done (see
		// below), so any entry still present here either already
		// completed successfully or is still in flight.
		if e.result != nil {
			c.touch(e)
			c.mu.Unlock()
			qmetrics.CacheHits.Inc()
			return e.result, nil
		}
		// A build for this key is already in flight; join it.
		c.mu.Unlock()
		qmetrics.CacheJoinedBuilds.Inc()
		<-e.done
		if e.err != nil {
			return nil, e.err
		}
		return e.result, nil
	}

	e := &entry{key: key, leaseID: uuid.New(), done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	qmetrics.CacheMisses.Inc()
	result, err := op.GetResult(handle)

	c.mu.Lock()
	if err != nil {
		e.err = err
		delete(c.entries, key)
	} else {
		e.result = result
		e.bytes = result.EstimatedBytes()
		e.lruElem = c.lru.PushFront(e)
		c.curBytes += e.bytes
		c.evictLocked()
	}
	c.mu.Unlock()
	close(e.done)

	return result, err
}

// touch marks e as most recently used. Must be called with mu held; a
// no-op for entries not yet inserted into the LRU list (still building or
// failed).
func (c *Cache) touch(e *entry) {
	if e.lruElem != nil {
		c.lru.MoveToFront(e.lruElem)
	}
}

// evictLocked drops least-recently-used completed entries until curBytes
// fits within maxBytes. Must be called with mu held. In-flight builds are
// never in the LRU list and so are never evicted out from under a caller
// waiting on their done channel.
func (c *Cache) evictLocked() {
	if c.maxBytes == 0 {
		return
	}
	for c.curBytes > c.maxBytes {
		back := c.lru.Back()
		if back == nil {
			return
		}
		victim := back.Value.(*entry)
		c.lru.Remove(back)
		delete(c.entries, victim.key)
		c.curBytes -= victim.bytes
		qmetrics.CacheEvictions.Inc()
	}
}

// Invalidate drops op's cached entry, if any, forcing the next GetResult
// call to rebuild it. It refuses to drop an entry whose build is still in
// flight, returning an error, since that build's waiters must still
// observe a consistent outcome for the lease they joined.
func (c *Cache) Invalidate(op operator.Operator) error {
	key := op.CacheKey()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if e.result == nil && e.err == nil {
		return qerrors.New(qerrors.Internal, "resultcache: cannot invalidate build "+e.leaseID.String()+" in flight for key "+key)
	}
	if e.lruElem != nil {
		c.lru.Remove(e.lruElem)
		c.curBytes -= e.bytes
	}
	delete(c.entries, key)
	return nil
}

// Clear drops every completed entry. Builds in flight keep their entries
// and are cached as usual when they finish.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.result != nil || e.err != nil {
			delete(c.entries, key)
		}
	}
	c.lru.Init()
	c.curBytes = 0
}

// Len returns the number of completed entries currently retained.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
