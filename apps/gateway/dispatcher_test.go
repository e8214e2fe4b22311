package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahaj/baatcheet/pkg/model"
)

func sendEvent(t *testing.T, payload string) *model.SendEvent {
	t.Helper()
	var ev model.SendEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	return &ev
}

func drain(c *Client) []model.LiveMessage {
	var out []model.LiveMessage
	for {
		select {
		case raw := <-c.send:
			var msg model.LiveMessage
			if json.Unmarshal(raw, &msg) == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func TestDispatch_FanoutCompleteness(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	// Sender with K=2 connections, receiver with M=3.
	senders := []*Client{testClient("u1"), testClient("u1")}
	receivers := []*Client{testClient("u2"), testClient("u2"), testClient("u2")}
	for _, c := range append(append([]*Client{}, senders...), receivers...) {
		reg.Join(c)
	}

	d.Dispatch(senders[0], sendEvent(t, `{"type":"sendMessage","receiver":"u2","message":"hi"}`))

	// Exactly M+K deliveries, one per connected endpoint.
	for _, c := range append(append([]*Client{}, senders...), receivers...) {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, "receiveMessage", msgs[0].Type)
		assert.Equal(t, "u1", msgs[0].Sender)
		assert.Equal(t, "name-u1", msgs[0].SenderName)
		assert.Equal(t, "u2", msgs[0].Receiver)
		assert.Equal(t, "hi", msgs[0].Body)
		assert.False(t, msgs[0].CreatedAt.IsZero())
	}
}

func TestDispatch_OfflineReceiverIsSilentNoop(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	sender := testClient("u1")
	reg.Join(sender)

	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":"offline","message":"hi"}`))

	// The sender's own echo still arrives; the offline room produced zero
	// deliveries and no error.
	assert.Len(t, drain(sender), 1)
}

func TestDispatch_NobodyConnected(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	// A sender whose own room is empty (disconnected mid-flight).
	sender := testClient("u1")
	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":"u2","message":"hi"}`))
	assert.Empty(t, drain(sender))
}

func TestDispatch_MalformedReceiverDropped(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	sender := testClient("u1")
	receiver := testClient("u2")
	reg.Join(sender)
	reg.Join(receiver)

	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":{},"message":"hi"}`))

	assert.Empty(t, drain(sender))
	assert.Empty(t, drain(receiver))
}

func TestDispatch_EmptyContentDropped(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	sender := testClient("u1")
	reg.Join(sender)

	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":"u2"}`))
	assert.Empty(t, drain(sender))
}

func TestDispatch_EmbeddedReceiverObject(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	sender := testClient("u1")
	receiver := testClient("u2")
	reg.Join(sender)
	reg.Join(receiver)

	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":{"_id":"u2"},"message":"hi"}`))

	msgs := drain(receiver)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u2", msgs[0].Receiver)
}

func TestDispatch_SelfMessageDeliveredOncePerConnection(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	a := testClient("u1")
	b := testClient("u1")
	reg.Join(a)
	reg.Join(b)

	d.Dispatch(a, sendEvent(t, `{"type":"sendMessage","receiver":"u1","message":"note to self"}`))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestDispatch_ImageOnlyMessage(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	sender := testClient("u1")
	receiver := testClient("u2")
	reg.Join(sender)
	reg.Join(receiver)

	d.Dispatch(sender, sendEvent(t, `{"type":"sendMessage","receiver":"u2","image":"http://blob/pic.png"}`))

	msgs := drain(receiver)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Body)
	assert.Equal(t, "http://blob/pic.png", msgs[0].Image)
}

// The end-to-end walkthrough: A and B connect, A sends to B, both see the
// message; B disconnects, A sends again, only A's echo is delivered.
func TestDispatch_TwoUserScenario(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg)

	a := testClient("u1")
	b := testClient("u2")
	reg.Join(a)
	reg.Join(b)

	before := time.Now()
	d.Dispatch(a, sendEvent(t, `{"type":"sendMessage","receiver":"u2","message":"hi"}`))

	for _, c := range []*Client{a, b} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, "u1", msgs[0].Sender)
		assert.Equal(t, "name-u1", msgs[0].SenderName)
		assert.Equal(t, "u2", msgs[0].Receiver)
		assert.Equal(t, "hi", msgs[0].Body)
		assert.False(t, msgs[0].CreatedAt.Before(before.Add(-time.Second)))
	}

	reg.Leave(b)
	d.Dispatch(a, sendEvent(t, `{"type":"sendMessage","receiver":"u2","message":"still there?"}`))

	assert.Len(t, drain(a), 1)
	assert.Empty(t, reg.MembersOf("u2"))
}
