package main

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis set mirroring which users currently hold at least one live
// connection. Advisory only: the consumer reads it for diagnostics, nothing
// treats it as a delivery guarantee.
const onlineSetKey = "online_users"

// Registry maps a user id to the set of that user's live connections (a
// "room"). It is the only shared mutable state in the gateway; every read
// and mutation goes through its mutex, so no caller can observe a
// half-updated membership set.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	redis *redis.Client // nil disables the online-set mirror
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]bool),
		redis: rdb,
	}
}

// Join inserts the connection into the room named by its identity, creating
// the room on first join. Called exactly once per authenticated connection.
func (r *Registry) Join(c *Client) {
	r.mu.Lock()
	if r.rooms[c.identity.ID] == nil {
		r.rooms[c.identity.ID] = make(map[*Client]bool)
	}
	r.rooms[c.identity.ID][c] = true
	r.mu.Unlock()

	if r.redis != nil {
		if err := r.redis.SAdd(context.Background(), onlineSetKey, c.identity.ID).Err(); err != nil {
			log.Printf("Failed to mirror presence for %s: %v", c.identity.ID, err)
		}
	}
	log.Printf("Client joined: %s (%s)", c.identity.ID, c.identity.Name)
}

// Leave removes the connection from its room and closes its send channel.
// Idempotent, and safe to call on a connection that never completed Join.
// It performs no network I/O beyond the advisory Redis mirror.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	room, ok := r.rooms[c.identity.ID]
	if !ok || !room[c] {
		r.mu.Unlock()
		return
	}
	delete(room, c)
	close(c.send)
	empty := len(room) == 0
	if empty {
		delete(r.rooms, c.identity.ID)
	}
	r.mu.Unlock()

	if empty && r.redis != nil {
		if err := r.redis.SRem(context.Background(), onlineSetKey, c.identity.ID).Err(); err != nil {
			log.Printf("Failed to clear presence for %s: %v", c.identity.ID, err)
		}
	}
	log.Printf("Client left: %s", c.identity.ID)
}

// MembersOf returns a snapshot of the room's current connections.
func (r *Registry) MembersOf(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[userID]
	members := make([]*Client, 0, len(room))
	for c := range room {
		members = append(members, c)
	}
	return members
}

// IsPresent reports whether the user has any live connection. Advisory: the
// user can disconnect between this check and a send.
func (r *Registry) IsPresent(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID]) > 0
}

// Deliver enqueues payload on every connection in the room and reports how
// many accepted it. Connections whose send buffer is full are dropped rather
// than allowed to stall the fanout.
func (r *Registry) Deliver(roomID string, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}

	delivered := 0
	for c := range room {
		select {
		case c.send <- payload:
			delivered++
		default:
			close(c.send)
			delete(room, c)
		}
	}
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	return delivered
}
