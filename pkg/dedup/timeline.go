// Package dedup reconciles the two delivery paths of a conversation: the
// real-time push stream and the durable history fetch. The two paths produce
// structurally different records for the same logical message (only the
// persisted one has a store-assigned id), so equality is approximated by the
// (createdAt, sender, message) tuple.
package dedup

import (
	"sync"

	"github.com/mahaj/baatcheet/pkg/model"
)

// Timeline is the locally held ordered view of one conversation.
type Timeline struct {
	mu      sync.Mutex
	entries []model.LiveMessage
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func sameLogicalMessage(a, b model.LiveMessage) bool {
	return a.CreatedAt.Equal(b.CreatedAt) && a.Sender == b.Sender && a.Body == b.Body
}

// Merge appends msg unless an entry for the same logical message is already
// present. It reports whether the message was appended.
func (t *Timeline) Merge(msg model.LiveMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if sameLogicalMessage(e, msg) {
			return false
		}
	}
	t.entries = append(t.entries, msg)
	return true
}

// Reset replaces the timeline wholesale with a freshly fetched history.
// History fetches are authoritative and supersede any transient entries
// accumulated since the previous fetch.
func (t *Timeline) Reset(history []model.Message) {
	entries := make([]model.LiveMessage, 0, len(history))
	for _, m := range history {
		entries = append(entries, m.Live())
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}

// Snapshot returns a copy of the current ordered view.
func (t *Timeline) Snapshot() []model.LiveMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.LiveMessage, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the number of entries currently held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
