package main

import (
	"log"

	"github.com/mahaj/baatcheet/pkg/db"
)

func main() {
	keyspace := "chat"

	session, err := db.NewSession(db.HostsFromEnv(), keyspace)
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	for _, table := range []string{"dm_messages", "user_conversations", "conversation_counters"} {
		log.Printf("Dropping table %s...", table)
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			log.Fatalf("Failed to drop table %s: %v", table, err)
		}
	}
	log.Println("Tables dropped successfully.")
}
