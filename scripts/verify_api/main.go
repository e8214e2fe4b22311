package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func main() {
	apiAddr := "http://localhost:8081"

	// 1. Login
	reqBody, _ := json.Marshal(map[string]string{"user_id": "test_user", "name": "Test User"})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Token: %s...\n", loginResp.Token[:10])

	// 2. Send a message through the durable path
	sendBody, _ := json.Marshal(map[string]string{"receiver": "test_peer", "message": "verify"})
	req, _ := http.NewRequest("POST", apiAddr+"/messages", bytes.NewBuffer(sendBody))
	req.Header.Add("Authorization", "Bearer "+loginResp.Token)
	req.Header.Add("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("Send request failed:", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	log.Printf("Send (%d): %s", resp.StatusCode, string(body))

	// 3. Fetch history with the peer
	log.Println("Fetching history with test_peer...")
	req, _ = http.NewRequest("GET", apiAddr+"/history?with=test_peer", nil)
	req.Header.Add("Authorization", "Bearer "+loginResp.Token)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("History request failed:", err)
	}
	defer resp.Body.Close()

	body, _ = io.ReadAll(resp.Body)
	log.Printf("History: %s", string(body))
}
