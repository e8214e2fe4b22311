package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/mahaj/baatcheet/pkg/db"
	"github.com/mahaj/baatcheet/pkg/model"
)

type Consumer struct {
	reader *kafka.Reader
	db     *db.Session
	redis  *redis.Client
}

func NewConsumer(brokers []string, topic string, groupID string, session *db.Session, rdb *redis.Client) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: r, db: session, redis: rdb}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			log.Printf("Error reading message: %v. Retrying in 1s...", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			continue
		}
		msg.PairKey = model.PairKey(msg.Sender, msg.Receiver)

		c.persist(&msg)
	}
}

func (c *Consumer) persist(msg *model.Message) {
	query := `INSERT INTO dm_messages (pair_key, id, sender_id, sender_name, receiver_id, body, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	err := c.db.Query(query, msg.PairKey, msg.ID, msg.Sender, msg.SenderName, msg.Receiver,
		msg.Body, msg.Image, msg.CreatedAt).Exec()
	if err != nil {
		log.Printf("Failed to save message %d to ScyllaDB: %v", msg.ID, err)
		return
	}

	// Both participants see the conversation bump; only the recipient's
	// unread counter grows.
	upsert := `INSERT INTO user_conversations (user_id, peer_id, last_updated) VALUES (?, ?, ?)`
	if err := c.db.Query(upsert, msg.Sender, msg.Receiver, msg.CreatedAt).Exec(); err != nil {
		log.Printf("Failed to update conversation for %s: %v", msg.Sender, err)
	}
	if err := c.db.Query(upsert, msg.Receiver, msg.Sender, msg.CreatedAt).Exec(); err != nil {
		log.Printf("Failed to update conversation for %s: %v", msg.Receiver, err)
	}

	counter := `UPDATE conversation_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND peer_id = ?`
	if err := c.db.Query(counter, msg.Receiver, msg.Sender).Exec(); err != nil {
		log.Printf("Failed to increment unread count for %s: %v", msg.Receiver, err)
	}

	// Advisory: note when the recipient had no live session at persist time,
	// meaning this message will only surface on their next history fetch.
	if c.redis != nil {
		online, err := c.redis.SIsMember(context.Background(), "online_users", msg.Receiver).Result()
		if err == nil && !online {
			log.Printf("Message %d persisted for offline recipient %s", msg.ID, msg.Receiver)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
