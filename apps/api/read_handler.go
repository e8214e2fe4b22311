package main

import (
	"encoding/json"
	"net/http"

	"github.com/mahaj/baatcheet/pkg/auth"
	"github.com/mahaj/baatcheet/pkg/db"
)

type ReadRequest struct {
	PeerID string `json:"peer_id"`
}

// ReadHandler marks a conversation as read by resetting its unread counter.
func ReadHandler(session *db.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req ReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.PeerID == "" {
			http.Error(w, "peer_id is required", http.StatusBadRequest)
			return
		}

		// Deleting the row is how a ScyllaDB counter resets to zero.
		query := `DELETE FROM conversation_counters WHERE user_id = ? AND peer_id = ?`
		if err := session.Query(query, claims.Identity().ID, req.PeerID).Exec(); err != nil {
			http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
