package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahaj/baatcheet/pkg/model"
)

func liveMsg(sender, body string, at time.Time) model.LiveMessage {
	return model.LiveMessage{
		Type:       model.EventReceiveMessage,
		Sender:     sender,
		SenderName: sender,
		Receiver:   "u2",
		Body:       body,
		CreatedAt:  at,
	}
}

func TestTimeline_MergeIsIdempotent(t *testing.T) {
	tl := NewTimeline()
	msg := liveMsg("u1", "hi", time.Now().UTC())

	assert.True(t, tl.Merge(msg))
	assert.False(t, tl.Merge(msg))
	assert.False(t, tl.Merge(msg))
	assert.Equal(t, 1, tl.Len())
}

func TestTimeline_DistinctMessagesAllKept(t *testing.T) {
	tl := NewTimeline()
	base := time.Now().UTC()

	// Same body, different timestamps: two logical messages.
	assert.True(t, tl.Merge(liveMsg("u1", "hi", base)))
	assert.True(t, tl.Merge(liveMsg("u1", "hi", base.Add(time.Second))))
	// Same timestamp, different senders.
	assert.True(t, tl.Merge(liveMsg("u2", "hi", base)))
	assert.Equal(t, 3, tl.Len())
}

func TestTimeline_HistoryResetSupersedes(t *testing.T) {
	tl := NewTimeline()
	base := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	// Transient entries accumulated from the push stream.
	tl.Merge(liveMsg("u1", "one", base))
	tl.Merge(liveMsg("u2", "two", base.Add(time.Second)))

	history := []model.Message{
		{ID: 1, Sender: "u1", Receiver: "u2", Body: "one", CreatedAt: base},
		{ID: 2, Sender: "u2", Receiver: "u1", Body: "two", CreatedAt: base.Add(time.Second)},
		{ID: 3, Sender: "u1", Receiver: "u2", Body: "three", CreatedAt: base.Add(2 * time.Second)},
	}
	tl.Reset(history)

	snapshot := tl.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "one", snapshot[0].Body)
	assert.Equal(t, "three", snapshot[2].Body)
}

func TestTimeline_PushThenHistoryNoDuplicates(t *testing.T) {
	tl := NewTimeline()
	base := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	var history []model.Message
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		msg := liveMsg("u1", "msg", at)
		// Each push delivered twice (receiver copy + sender echo).
		tl.Merge(msg)
		tl.Merge(msg)
		history = append(history, model.Message{ID: int64(i), Sender: "u1", Receiver: "u2", Body: "msg", CreatedAt: at})
	}
	require.Equal(t, 5, tl.Len())

	// The authoritative fetch lands afterwards.
	tl.Reset(history)
	assert.Equal(t, 5, tl.Len())

	// Re-pushing already fetched messages changes nothing.
	for _, m := range history {
		assert.False(t, tl.Merge(m.Live()))
	}
	assert.Equal(t, 5, tl.Len())
}

func TestTimeline_SnapshotIsACopy(t *testing.T) {
	tl := NewTimeline()
	tl.Merge(liveMsg("u1", "hi", time.Now().UTC()))

	snapshot := tl.Snapshot()
	snapshot[0].Body = "mutated"

	assert.Equal(t, "hi", tl.Snapshot()[0].Body)
}
