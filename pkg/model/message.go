package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event names carried in the "type" field of every websocket frame.
const (
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
)

var ErrNoReceiver = errors.New("receiver id missing")

// Identity is the authenticated owner of a connection, decoded from the
// session token at handshake time and immutable afterwards.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReceiverRef accepts the two receiver shapes clients send: a plain id
// string, or an embedded user object carrying the id under "_id" or "id"
// (the older spelling wins when both are present). It is resolved to a
// canonical id exactly once, at the protocol boundary.
type ReceiverRef struct {
	id string
}

func NewReceiverRef(id string) ReceiverRef { return ReceiverRef{id: id} }

func (r *ReceiverRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.id = s
		return nil
	}
	var embedded struct {
		LegacyID string `json:"_id"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(data, &embedded); err != nil {
		return fmt.Errorf("receiver must be a string or an object with an id: %w", err)
	}
	if embedded.LegacyID != "" {
		r.id = embedded.LegacyID
	} else {
		r.id = embedded.ID
	}
	return nil
}

func (r ReceiverRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

// ID returns the canonical receiver id, or ErrNoReceiver if the reference
// never resolved to one.
func (r ReceiverRef) ID() (string, error) {
	if r.id == "" {
		return "", ErrNoReceiver
	}
	return r.id, nil
}

// SendEvent is the client-to-server frame asking for a real-time fanout.
type SendEvent struct {
	Type     string      `json:"type"`
	Receiver ReceiverRef `json:"receiver"`
	Body     string      `json:"message,omitempty"`
	Image    string      `json:"image,omitempty"`
}

// HasContent reports whether the event carries at least a text body or an
// image reference. Events with neither are dropped.
func (e *SendEvent) HasContent() bool {
	return e.Body != "" || e.Image != ""
}

// LiveMessage is the transient broadcast payload pushed to every connection
// in the receiver's and sender's rooms. It carries no store-assigned id; the
// persisted record for the same logical message travels the Kafka path
// independently.
type LiveMessage struct {
	Type       string    `json:"type"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Receiver   string    `json:"receiver"`
	Body       string    `json:"message,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Message is the persisted record as written to ScyllaDB and returned by the
// history endpoint. The JSON shape mirrors LiveMessage so clients can merge
// both views of the same conversation.
type Message struct {
	ID         int64     `json:"id"`
	PairKey    string    `json:"-"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Receiver   string    `json:"receiver"`
	Body       string    `json:"message,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Live converts a persisted record into the broadcast shape, for merging a
// history fetch into the same timeline as the push stream.
func (m Message) Live() LiveMessage {
	return LiveMessage{
		Type:       EventReceiveMessage,
		Sender:     m.Sender,
		SenderName: m.SenderName,
		Receiver:   m.Receiver,
		Body:       m.Body,
		Image:      m.Image,
		CreatedAt:  m.CreatedAt,
	}
}

// PairKey names the conversation partition for two user ids. The ids are
// sorted so both directions land on the same partition.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}
