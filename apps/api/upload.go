package main

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mahaj/baatcheet/pkg/blob"
)

const maxUploadBytes = 10 << 20 // 10MB

type UploadResponse struct {
	URL string `json:"url"`
}

// UploadHandler stores an image in the blob bucket and returns a retrievable
// URL. Clients put the URL in the image field of a send; the message records
// themselves never carry image bytes.
type UploadHandler struct {
	store *blob.Store
}

func NewUploadHandler(store *blob.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	objectName := uuid.NewString() + filepath.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")

	if err := h.store.Put(r.Context(), objectName, contentType, file, header.Size); err != nil {
		log.Printf("Failed to store upload %s: %v", objectName, err)
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	url, err := h.store.PresignedURL(r.Context(), objectName, 24*time.Hour)
	if err != nil {
		log.Printf("Failed to presign %s: %v", objectName, err)
		http.Error(w, "Failed to build file URL", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UploadResponse{URL: url})
}
