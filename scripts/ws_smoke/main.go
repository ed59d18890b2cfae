// Command ws_smoke exercises the full realtime path against a running server:
// register, connect, join a room, send a message, and print what comes back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiAddr := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsAddr := flag.String("ws", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "smoketester", "display name to register with")
	room := flag.String("room", "smoke-room", "room name to create and join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	email := fmt.Sprintf("%s-%d@smoke.local", *name, time.Now().UnixNano())
	token, err := register(ctx, *apiAddr, *name, email)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, *wsAddr+"?token="+token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	roomID, err := createRoom(ctx, *apiAddr, token, *room)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if err := post(ctx, *apiAddr+"/api/rooms/"+roomID+"/join", token, nil); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	if err := post(ctx, *apiAddr+"/api/messages", token, map[string]string{
		"room_id": roomID,
		"content": *text,
	}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var event struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fmt.Printf("event type=%s payload=%s\n", event.Type, event.Payload)
		if event.Type == "NEW_MESSAGE" {
			fmt.Println("round trip complete")
			return nil
		}
	}
}

func register(ctx context.Context, apiAddr, name, email string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"name": name, "email": email, "password": "smokepass123",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiAddr+"/api/auth/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.AccessToken, nil
}

func createRoom(ctx context.Context, apiAddr, token, name string) (string, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiAddr+"/api/rooms", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.ID, nil
}

func post(ctx context.Context, url, token string, payload any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
