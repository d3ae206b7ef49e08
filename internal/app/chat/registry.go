package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/metrics"
)

// PresenceEntry records that an identity currently has a live connection.
type PresenceEntry struct {
	Identity    user.Identity
	Client      *Client
	ConnectedAt time.Time
}

// View returns the wire form of e.
func (e PresenceEntry) View() OnlineUser {
	return OnlineUser{
		ID:           e.Identity.ID,
		Username:     e.Identity.Username,
		Profile:      e.Identity.Profile,
		Verification: e.Identity.Verification,
		ConnectionID: e.Client.ID,
		ConnectedAt:  e.ConnectedAt,
	}
}

// Registry maps identities to their live connection and tracks every admitted
// connection. An entry exists only while its connection is admitted.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]PresenceEntry
	conns   map[*Client]struct{}

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]PresenceEntry),
		conns:   make(map[*Client]struct{}),
		logger:  logx.Component("presence"),
	}
}

// Register inserts the entry for c's identity. An existing entry for the same identity
// is overwritten and its connection returned as replaced; the new entry moves to the
// end of the order.
func (r *Registry) Register(c *Client) (entry PresenceEntry, replaced *Client) {
	id := c.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[id.ID]; ok {
		if prev.Client != c {
			replaced = prev.Client
		}
		r.removeOrder(id.ID)
	}

	entry = PresenceEntry{Identity: id, Client: c, ConnectedAt: c.connectedAt}
	r.entries[id.ID] = entry
	r.order = append(r.order, id.ID)
	r.conns[c] = struct{}{}

	r.observe()
	r.logger.Debug().
		Str("user_id", id.ID).
		Str("conn_id", c.ID).
		Bool("replaced", replaced != nil).
		Int("online", len(r.entries)).
		Msg("presence registered")

	return entry, replaced
}

// Deregister forgets connection c and removes identityID's entry if c still owns it.
// It reports whether an entry was removed and is a no-op for unknown identities.
func (r *Registry) Deregister(identityID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, c)

	entry, ok := r.entries[identityID]
	if !ok || entry.Client != c {
		r.observe()
		if ok {
			r.logger.Debug().Str("user_id", identityID).Str("conn_id", c.ID).Msg("ignoring deregister for stale connection")
		}
		return false
	}

	delete(r.entries, identityID)
	r.removeOrder(identityID)
	r.observe()

	r.logger.Debug().Str("user_id", identityID).Int("online", len(r.entries)).Msg("presence removed")
	return true
}

// Owns reports whether c is the connection currently registered for identityID.
func (r *Registry) Owns(identityID string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[identityID]
	return ok && entry.Client == c
}

// List returns a snapshot of all entries in insertion order.
func (r *Registry) List() []PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PresenceEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// Lookup returns the entry for identityID.
func (r *Registry) Lookup(identityID string) (PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[identityID]
	return entry, ok
}

// Connections returns a snapshot of every admitted connection.
func (r *Registry) Connections() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ConnectionCount is the number of admitted connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Len is the number of presence entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) removeOrder(identityID string) {
	for i, id := range r.order {
		if id == identityID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// observe must be called with mu held.
func (r *Registry) observe() {
	metrics.Connections.Set(float64(len(r.conns)))
	metrics.PresenceEntries.Set(float64(len(r.entries)))
}
