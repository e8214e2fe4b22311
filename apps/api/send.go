package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/baatcheet/pkg/auth"
	"github.com/mahaj/baatcheet/pkg/model"
	"github.com/mahaj/baatcheet/pkg/snowflake"
)

// producer is the slice of kafka.Writer the send path needs.
type producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type SendRequest struct {
	Receiver model.ReceiverRef `json:"receiver"`
	Body     string            `json:"message,omitempty"`
	Image    string            `json:"image,omitempty"`
}

// SendHandler is the durable write path: it stamps the store-assigned id and
// timestamp, produces the record to Kafka and returns it. Persistence by the
// consumer is asynchronous, and deliberately unsequenced relative to the
// real-time push the client issues on its own.
type SendHandler struct {
	producer producer
	ids      *snowflake.Node
}

func NewSendHandler(p producer, ids *snowflake.Node) *SendHandler {
	return &SendHandler{producer: p, ids: ids}
}

func (h *SendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	sender := claims.Identity()

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receiverID, err := req.Receiver.ID()
	if err != nil {
		http.Error(w, "receiver is required", http.StatusBadRequest)
		return
	}
	if req.Body == "" && req.Image == "" {
		http.Error(w, "Message or image is required", http.StatusBadRequest)
		return
	}

	msg := model.Message{
		ID:         h.ids.Generate(),
		PairKey:    model.PairKey(sender.ID, receiverID),
		Sender:     sender.ID,
		SenderName: sender.Name,
		Receiver:   receiverID,
		Body:       req.Body,
		Image:      req.Image,
		CreatedAt:  time.Now().UTC(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		http.Error(w, "Failed to encode message", http.StatusInternalServerError)
		return
	}

	err = h.producer.WriteMessages(r.Context(), kafka.Message{
		Key:   []byte(msg.PairKey),
		Value: value,
		Time:  msg.CreatedAt,
	})
	if err != nil {
		log.Printf("Failed to produce message %d: %v", msg.ID, err)
		http.Error(w, "Failed to persist message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}
