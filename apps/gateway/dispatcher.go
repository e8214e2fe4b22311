package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/mahaj/baatcheet/pkg/model"
)

// Dispatcher turns an inbound sendMessage event into receiveMessage pushes
// for the receiver's room and the sender's own room (multi-device echo).
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch is best-effort. Malformed events are logged and dropped, and no
// delivery result is ever reported back over this channel; durability is the
// store path's job. A failure here never affects other connections.
func (d *Dispatcher) Dispatch(sender *Client, ev *model.SendEvent) {
	receiverID, err := ev.Receiver.ID()
	if err != nil {
		log.Printf("Dropping send from %s: %v", sender.identity.ID, err)
		return
	}
	if !ev.HasContent() {
		log.Printf("Dropping empty send from %s to %s", sender.identity.ID, receiverID)
		return
	}

	msg := model.LiveMessage{
		Type:       model.EventReceiveMessage,
		Sender:     sender.identity.ID,
		SenderName: sender.identity.Name,
		Receiver:   receiverID,
		Body:       ev.Body,
		Image:      ev.Image,
		CreatedAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal live message: %v", err)
		return
	}

	// Receiver's room first, then the sender's own devices. A self-message
	// has a single room and is delivered once per connection.
	delivered := d.registry.Deliver(receiverID, payload)
	if receiverID != sender.identity.ID {
		delivered += d.registry.Deliver(sender.identity.ID, payload)
	}
	if delivered == 0 {
		log.Printf("No live sessions for %s -> %s; message is visible via history only", sender.identity.ID, receiverID)
	}
}
