package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/baatcheet/pkg/blob"
	"github.com/mahaj/baatcheet/pkg/db"
	"github.com/mahaj/baatcheet/pkg/snowflake"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Allow all for dev, or specific origin
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	session, err := db.NewSession(db.HostsFromEnv(), "chat")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokersStr == "" {
		kafkaBrokersStr = "localhost:19092"
	}
	producer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(kafkaBrokersStr, ",")...),
		Topic:    "chat-messages",
		Balancer: &kafka.LeastBytes{},
	}
	defer producer.Close()

	ids, err := snowflake.NodeFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize snowflake node: %v", err)
	}

	store, err := blob.StoreFromEnv()
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	log.Println("API Service Starting on :8081...")

	// Public endpoint
	http.Handle("/login", CORSMiddleware(http.HandlerFunc(LoginHandler)))

	// Protected endpoints
	http.Handle("/history", CORSMiddleware(AuthMiddleware(NewHistoryHandler(session))))
	http.Handle("/messages", CORSMiddleware(AuthMiddleware(NewSendHandler(producer, ids))))
	http.Handle("/upload", CORSMiddleware(AuthMiddleware(NewUploadHandler(store))))
	http.Handle("/conversations", CORSMiddleware(AuthMiddleware(ConversationsHandler(session))))
	http.Handle("/conversations/read", CORSMiddleware(AuthMiddleware(ReadHandler(session))))

	if err := http.ListenAndServe(":8081", nil); err != nil {
		log.Fatal(err)
	}
}
