package main

import (
	"log"

	"github.com/mahaj/baatcheet/pkg/db"
)

// Creates the chat schema out-of-band. The messaging service bootstraps the
// same tables on startup; this exists for setting up a cluster before any
// service runs.
func main() {
	sysSession, err := db.NewSession(db.HostsFromEnv(), "system")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS chat WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	sysSession.Close()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}

	session, err := db.NewSession(db.HostsFromEnv(), "chat")
	if err != nil {
		log.Fatalf("Failed to connect to chat keyspace: %v", err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS dm_messages (
			pair_key text,
			id bigint,
			sender_id text,
			sender_name text,
			receiver_id text,
			body text,
			image text,
			created_at timestamp,
			PRIMARY KEY (pair_key, id)
		) WITH CLUSTERING ORDER BY (id ASC)`,
		`CREATE TABLE IF NOT EXISTS user_conversations (
			user_id text,
			peer_id text,
			last_updated timestamp,
			PRIMARY KEY (user_id, peer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_counters (
			user_id text,
			peer_id text,
			unread_count counter,
			PRIMARY KEY (user_id, peer_id)
		)`,
	}

	for _, cql := range tables {
		if err := session.Query(cql).Exec(); err != nil {
			log.Fatal(err)
		}
	}

	log.Println("Tables created successfully")
}
