package infrastructure

import (
	"sync"
	"time"

	"github.com/Agurato/cinefin/internal/model"
)

type queryEntry struct {
	status  model.QueryStatus
	data    []byte
	err     error
	expires time.Time
}

// QueryCache keeps remote payloads keyed by endpoint and arguments for a fixed lifetime.
// Failed queries are remembered for their status only, their payload is never served.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*queryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewQueryCache creates a cache whose fulfilled entries live for ttl
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: make(map[string]*queryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the payload of a fulfilled query that has not expired yet
func (qc *QueryCache) Get(key string) ([]byte, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.entries[key]
	if !ok || entry.status != model.QueryFulfilled {
		return nil, false
	}
	if qc.now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

// Status returns the status of a query. Expired entries read as uninitialized.
func (qc *QueryCache) Status(key string) (model.QueryStatus, error) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.entries[key]
	if !ok {
		return model.QueryUninitialized, nil
	}
	if entry.status == model.QueryFulfilled && qc.now().After(entry.expires) {
		return model.QueryUninitialized, nil
	}
	return entry.status, entry.err
}

// MarkPending flags a query as being fetched. A previous payload is kept until the fetch settles.
func (qc *QueryCache) MarkPending(key string) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	entry, ok := qc.entries[key]
	if !ok {
		entry = &queryEntry{}
		qc.entries[key] = entry
	}
	entry.status = model.QueryPending
	entry.err = nil
}

// Fulfill stores the payload of a successful query
func (qc *QueryCache) Fulfill(key string, data []byte) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.entries[key] = &queryEntry{
		status:  model.QueryFulfilled,
		data:    data,
		expires: qc.now().Add(qc.ttl),
	}
}

// Reject records the failure of a query and drops its payload
func (qc *QueryCache) Reject(key string, err error) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.entries[key] = &queryEntry{
		status: model.QueryRejected,
		err:    err,
	}
}

// Sweep removes expired and failed entries, and returns how many were removed
func (qc *QueryCache) Sweep() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	removed := 0
	now := qc.now()
	for key, entry := range qc.entries {
		switch entry.status {
		case model.QueryFulfilled:
			if now.After(entry.expires) {
				delete(qc.entries, key)
				removed++
			}
		case model.QueryRejected:
			delete(qc.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, whatever their status
func (qc *QueryCache) Len() int {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return len(qc.entries)
}
