// Package registry tracks live worker and manager sockets. It is the only
// shared mutable structure in the relay; all other state lives in the store
// or on the bus.
package registry

import (
	"log/slog"
	"sync"
)

// Role distinguishes the two sides of a chat session.
type Role string

const (
	RoleWorker  Role = "worker"
	RoleManager Role = "manager"
)

// Conn is the minimal socket surface the registry needs. The relay wraps
// websocket connections; tests use fakes.
type Conn interface {
	WriteJSON(v any) error
	WriteText(s string) error
	Close() error
}

type key struct {
	role Role
	id   int64
}

// Registry maps (role, identity) to the single live connection for that
// identity. A later Register for the same key displaces the earlier entry.
type Registry struct {
	mu    sync.RWMutex
	conns map[key]Conn
}

func New() *Registry {
	return &Registry{conns: make(map[key]Conn)}
}

// Register stores c for (role, id) and returns the displaced connection, if
// any, so the caller can close it.
func (r *Registry) Register(role Role, id int64, c Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{role, id}
	prev := r.conns[k]
	r.conns[k] = c
	return prev
}

// Unregister removes the entry for (role, id) if it still holds c. Passing
// nil removes whatever is registered. Absent keys are a no-op, so a stale
// disconnect arriving after a reconnect never evicts the new connection.
func (r *Registry) Unregister(role Role, id int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{role, id}
	if c == nil || r.conns[k] == c {
		delete(r.conns, k)
	}
}

// Lookup returns the live connection for (role, id), if any.
func (r *Registry) Lookup(role Role, id int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[key{role, id}]
	return c, ok
}

// Send writes v as a JSON frame to the connection for (role, id). It returns
// false when no connection exists or the write fails; "recipient offline" is
// a normal outcome, not an error.
func (r *Registry) Send(role Role, id int64, v any) bool {
	c, ok := r.Lookup(role, id)
	if !ok {
		return false
	}
	if err := c.WriteJSON(v); err != nil {
		slog.Debug("registry send failed", "role", role, "id", id, "error", err)
		return false
	}
	return true
}

// SendText writes a plain text frame, with the same delivery semantics as Send.
func (r *Registry) SendText(role Role, id int64, s string) bool {
	c, ok := r.Lookup(role, id)
	if !ok {
		return false
	}
	if err := c.WriteText(s); err != nil {
		slog.Debug("registry send failed", "role", role, "id", id, "error", err)
		return false
	}
	return true
}

// Len reports the number of live connections (health endpoint).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
