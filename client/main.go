package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/baatcheet/pkg/dedup"
	"github.com/mahaj/baatcheet/pkg/model"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID, name string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID, "name": name})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}

	return loginResp.Token, nil
}

func fetchHistory(apiAddr, token, peerID string) ([]model.Message, error) {
	req, err := http.NewRequest(http.MethodGet, apiAddr+"/history?with="+url.QueryEscape(peerID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history fetch failed: %s", string(body))
	}

	var messages []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// persistMessage writes the message through the durable store path. It is
// issued alongside the websocket emit; neither waits for the other, the
// timeline reconciles whichever lands first.
func persistMessage(apiAddr, token, peerID, body, image string) error {
	reqBody, _ := json.Marshal(map[string]string{
		"receiver": peerID,
		"message":  body,
		"image":    image,
	})
	req, err := http.NewRequest(http.MethodPost, apiAddr+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send failed: %s", string(respBody))
	}
	return nil
}

func uploadImage(apiAddr, token, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, apiAddr+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed: %s", string(respBody))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func printMessage(userID string, msg model.LiveMessage) {
	who := msg.SenderName
	if msg.Sender == userID {
		who = "you"
	}
	if msg.Image != "" {
		fmt.Printf("\r%s: [image] %s\n> ", who, msg.Image)
		return
	}
	fmt.Printf("\r%s: %s\n> ", who, msg.Body)
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "user1", "user id")
	name := flag.String("name", "", "display name (defaults to user id)")
	peerID := flag.String("peer", "user2", "user id to chat with")
	refetch := flag.Duration("refetch", 30*time.Second, "history reconcile interval")
	flag.Parse()

	if *name == "" {
		*name = *userID
	}

	// 1. Login to get token
	log.Printf("Logging in as %s...", *userID)
	token, err := login(*apiAddr, *userID, *name)
	if err != nil {
		log.Fatal("Login failed:", err)
	}

	// 2. Seed the timeline from the durable store
	timeline := dedup.NewTimeline()
	if history, err := fetchHistory(*apiAddr, token, *peerID); err != nil {
		log.Printf("History fetch failed: %v", err)
	} else {
		timeline.Reset(history)
	}
	for _, msg := range timeline.Snapshot() {
		printMessage(*userID, msg)
	}

	// 3. Connect to the gateway with the token
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	pairKey := model.PairKey(*userID, *peerID)
	done := make(chan struct{})

	// 4. Merge pushed messages into the timeline, printing only new ones
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Text != "" {
					log.Printf("connection closed: %s", closeErr.Text)
				} else {
					log.Println("read:", err)
				}
				return
			}

			var msg model.LiveMessage
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != model.EventReceiveMessage {
				continue
			}
			if model.PairKey(msg.Sender, msg.Receiver) != pairKey {
				continue
			}

			if timeline.Merge(msg) {
				printMessage(*userID, msg)
			}
		}
	}()

	// 5. Periodically reconcile against the durable store
	go func() {
		ticker := time.NewTicker(*refetch)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				history, err := fetchHistory(*apiAddr, token, *peerID)
				if err != nil {
					log.Printf("History reconcile failed: %v", err)
					continue
				}
				timeline.Reset(history)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 6. Read from stdin, writing each message through both paths
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			body, image := text, ""
			if path, ok := strings.CutPrefix(text, "/image "); ok {
				imageURL, err := uploadImage(*apiAddr, token, strings.TrimSpace(path))
				if err != nil {
					log.Println("upload:", err)
					fmt.Print("> ")
					continue
				}
				body, image = "", imageURL
			}

			if err := persistMessage(*apiAddr, token, *peerID, body, image); err != nil {
				log.Println("persist:", err)
			}

			ev := model.SendEvent{
				Type:     model.EventSendMessage,
				Receiver: model.NewReceiverRef(*peerID),
				Body:     body,
				Image:    image,
			}
			frame, _ := json.Marshal(ev)
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
