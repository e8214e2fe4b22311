package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/mahaj/baatcheet/pkg/auth"
	"github.com/mahaj/baatcheet/pkg/db"
	"github.com/mahaj/baatcheet/pkg/model"
)

type LoginRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// LoginHandler is the stand-in identity issuer: it signs a session token for
// the given user id and display name. Real registration lives elsewhere.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = req.UserID
	}

	token, err := auth.GenerateToken(req.UserID, req.Name)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// AuthMiddleware validates the bearer token and stores the claims on the
// request context for the handlers behind it.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), auth.UserKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type HistoryHandler struct {
	db *db.Session
}

func NewHistoryHandler(session *db.Session) *HistoryHandler {
	return &HistoryHandler{db: session}
}

// ServeHTTP returns the full ordered history between the authenticated user
// and the peer named by ?with=. Both directions share one partition, already
// clustered in send order.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	peerID := r.URL.Query().Get("with")
	if peerID == "" {
		http.Error(w, "with parameter is required", http.StatusBadRequest)
		return
	}

	pairKey := model.PairKey(claims.Identity().ID, peerID)

	messages := []model.Message{}
	iter := h.db.Query(`SELECT id, sender_id, sender_name, receiver_id, body, image, created_at
		FROM dm_messages WHERE pair_key = ?`, pairKey).Iter()

	var m model.Message
	var createdAt time.Time
	for iter.Scan(&m.ID, &m.Sender, &m.SenderName, &m.Receiver, &m.Body, &m.Image, &createdAt) {
		m.PairKey = pairKey
		m.CreatedAt = createdAt.UTC()
		messages = append(messages, m)
	}

	if err := iter.Close(); err != nil {
		log.Printf("Failed to iterate messages for %s: %v", pairKey, err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
