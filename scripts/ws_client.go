// Package main runs a demo WebSocket client for catalog events.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/catalog/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	if err := c.WriteJSON(wsMessage{Type: "ping"}); err != nil {
		log.Fatal(err)
	}

	// Trigger a catalog.reloaded (or reload_failed) event by re-reading the configured feed
	time.Sleep(500 * time.Millisecond)
	resp, err := http.Post(base+"/v1/admin/catalog/reload", "application/json", nil)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("reload -> %s", resp.Status)
	_ = resp.Body.Close()

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
