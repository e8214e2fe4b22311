package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/baatcheet/pkg/db"
)

func main() {
	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokersStr == "" {
		kafkaBrokersStr = "localhost:19092"
	}
	brokers := strings.Split(kafkaBrokersStr, ",")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	topic := "chat-messages"
	groupID := "messaging-service-group"
	keyspace := "chat"

	// Schema bootstrap. In production this belongs to a migration tool; for
	// now the consumer owns it since it is the only writer.
	sysSession, err := db.NewSession(db.HostsFromEnv(), "system")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB system keyspace: %v", err)
	}

	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS chat WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}
	sysSession.Close()

	session, err := db.NewSession(db.HostsFromEnv(), keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB chat keyspace: %v", err)
	}
	defer session.Close()

	// One partition per DM pair, clustered ascending so history reads come
	// back in send order.
	err = session.Query(`CREATE TABLE IF NOT EXISTS dm_messages (
		pair_key text,
		id bigint,
		sender_id text,
		sender_name text,
		receiver_id text,
		body text,
		image text,
		created_at timestamp,
		PRIMARY KEY (pair_key, id)
	) WITH CLUSTERING ORDER BY (id ASC)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create dm_messages table: %v", err)
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS user_conversations (
		user_id text,
		peer_id text,
		last_updated timestamp,
		PRIMARY KEY (user_id, peer_id)
	)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create user_conversations table: %v", err)
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS conversation_counters (
		user_id text,
		peer_id text,
		unread_count counter,
		PRIMARY KEY (user_id, peer_id)
	)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create conversation_counters table: %v", err)
	}

	consumer := NewConsumer(brokers, topic, groupID, session, rdb)
	defer consumer.Close()

	log.Println("Starting Kafka Consumer...")
	consumer.Consume(context.Background())
}
