package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mahaj/baatcheet/pkg/auth"
	"github.com/mahaj/baatcheet/pkg/db"
)

type Conversation struct {
	PeerID      string    `json:"peer_id"`
	LastUpdated time.Time `json:"last_updated"`
	UnreadCount int64     `json:"unread_count"`
}

// ConversationsHandler lists the authenticated user's DM partners with the
// time of the latest message and the unread counter for each.
func ConversationsHandler(session *db.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userID := claims.Identity().ID

		iter := session.Query(`SELECT peer_id, last_updated FROM user_conversations WHERE user_id = ?`, userID).Iter()

		conversations := []Conversation{}
		var c Conversation
		for iter.Scan(&c.PeerID, &c.LastUpdated) {
			var count int64
			if err := session.Query(`SELECT unread_count FROM conversation_counters WHERE user_id = ? AND peer_id = ?`,
				userID, c.PeerID).Scan(&count); err == nil {
				c.UnreadCount = count
			} else {
				c.UnreadCount = 0
			}
			conversations = append(conversations, c)
		}

		if err := iter.Close(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conversations)
	}
}
