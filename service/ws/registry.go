package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"AMProject/logger"
)

// Registry maps user IDs to their open connections for one endpoint
// namespace. A user key exists iff its connection set is non-empty, and
// a connection lives in at most one set at a time. The reverse index
// byConn keeps Unregister O(1) instead of scanning every user's set.
type Registry struct {
	name string

	mu     sync.RWMutex
	byUser map[int64]map[string]*Client // userID -> connID -> client
	byConn map[string]int64             // connID -> owning userID
}

func NewRegistry(name string) *Registry {
	return &Registry{
		name:   name,
		byUser: make(map[int64]map[string]*Client),
		byConn: make(map[string]int64),
	}
}

func (r *Registry) Name() string { return r.name }

// Register adds c to the user's set, creating the set if absent.
// Idempotent per distinct connection.
func (r *Registry) Register(userID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[userID] = m
	}
	m[c.ConnID()] = c
	r.byConn[c.ConnID()] = userID
}

// Unregister removes c from whichever set holds it and reports whether
// that was the user's last open connection. A second call for the same
// connection is a no-op (double-close on the transport is normal).
func (r *Registry) Unregister(c *Client) (userOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c.ConnID()]
	if !ok {
		return false
	}
	delete(r.byConn, c.ConnID())

	m := r.byUser[userID]
	if m != nil {
		delete(m, c.ConnID())
		if len(m) == 0 {
			delete(r.byUser, userID)
			return true
		}
	}
	return false
}

// Snapshot returns a point-in-time copy of the user's connections.
// Callers iterate and send on the copy; the lock is never held across
// network I/O.
func (r *Registry) Snapshot(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// IsOpenForUser re-validates at send time that c is still registered
// under userID. Guards against the connection closing or being
// reassigned between Snapshot and the actual write.
func (r *Registry) IsOpenForUser(c *Client, userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.byConn[c.ConnID()]
	return ok && owner == userID
}

// All returns a copy of every registered connection. Used by the
// keepalive sweep.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, m := range r.byUser {
		for _, c := range m {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Close drops every connection and empties both indexes. Sockets are
// closed after the lock is released.
func (r *Registry) Close() {
	r.mu.Lock()
	var all []*Client
	for _, m := range r.byUser {
		for _, c := range m {
			all = append(all, c)
		}
	}
	r.byUser = make(map[int64]map[string]*Client)
	r.byConn = make(map[string]int64)
	r.mu.Unlock()

	for _, c := range all {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
	logger.Infof("[registry:%s] closed %d connections", r.name, len(all))
}
