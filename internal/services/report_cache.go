package services

import (
	"container/list"
	"sync"

	"github.com/google/uuid"
)

type cacheKey struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

// ReportStatusCache memoises whether a user has reported an event. It is
// never authoritative; a miss falls through to the store.
type ReportStatusCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]bool
}

func NewReportStatusCache() *ReportStatusCache {
	return &ReportStatusCache{entries: make(map[cacheKey]bool)}
}

func (c *ReportStatusCache) Get(userID, eventID uuid.UUID) (reported, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reported, ok = c.entries[cacheKey{userID, eventID}]
	return reported, ok
}

func (c *ReportStatusCache) Set(userID, eventID uuid.UUID, reported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{userID, eventID}] = reported
}

func (c *ReportStatusCache) Invalidate(userID, eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{userID, eventID})
}

// InvalidateEvent forgets every entry for an event, for any user.
func (c *ReportStatusCache) InvalidateEvent(eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.eventID == eventID {
			delete(c.entries, k)
		}
	}
}

func (c *ReportStatusCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]bool)
}

func (c *ReportStatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type sessionEntry struct {
	id    string
	cache *ReportStatusCache
}

// ReportCacheRegistry owns one ReportStatusCache per session. The least
// recently used session is evicted once capacity is exceeded.
type ReportCacheRegistry struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	sessions map[string]*list.Element
}

func NewReportCacheRegistry(capacity int) *ReportCacheRegistry {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ReportCacheRegistry{
		capacity: capacity,
		order:    list.New(),
		sessions: make(map[string]*list.Element),
	}
}

// ForSession returns the session's cache, creating it on first use.
func (r *ReportCacheRegistry) ForSession(sessionID string) *ReportStatusCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.sessions[sessionID]; ok {
		r.order.MoveToFront(el)
		return el.Value.(*sessionEntry).cache
	}

	entry := &sessionEntry{id: sessionID, cache: NewReportStatusCache()}
	r.sessions[sessionID] = r.order.PushFront(entry)
	for r.order.Len() > r.capacity {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.sessions, oldest.Value.(*sessionEntry).id)
	}
	return entry.cache
}

// Drop discards a session's cache, typically on logout.
func (r *ReportCacheRegistry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.sessions[sessionID]; ok {
		r.order.Remove(el)
		delete(r.sessions, sessionID)
	}
}

// InvalidateEvent clears an event from every live session, used when the
// event's reports are deleted.
func (r *ReportCacheRegistry) InvalidateEvent(eventID uuid.UUID) {
	r.mu.Lock()
	caches := make([]*ReportStatusCache, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		caches = append(caches, el.Value.(*sessionEntry).cache)
	}
	r.mu.Unlock()

	for _, c := range caches {
		c.InvalidateEvent(eventID)
	}
}

func (r *ReportCacheRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
