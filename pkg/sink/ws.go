/*
 * Copyright 2025 Aztell Solucoes em Telefonia IP.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aztell/callwatch/pkg/logger"
	"github.com/aztell/callwatch/pkg/models"
)

const (
	writeWait        = 10 * time.Second
	clientSendBuffer = 64
)

// Hub implements Sink over a set of WebSocket subscribers. Each new
// subscriber receives a hello message and a full snapshot before any
// incremental updates, so it never has to reconstruct state from diffs.
type Hub struct {
	logger   logger.Logger
	upgrader websocket.Upgrader
	snapshot func() *models.Snapshot

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. snapshot provides the state pushed to newly
// connected subscribers; nil disables the initial push.
func NewHub(snapshot func() *models.Snapshot, log logger.Logger) *Hub {
	return &Hub{
		logger:   log,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS upgrades an HTTP request and registers the connection as a
// subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("WebSocket subscriber connected")

	h.greet(client)

	go h.writePump(client)
	go h.readPump(client)
}

// greet queues the hello message and the initial snapshot.
func (h *Hub) greet(client *wsClient) {
	hello, err := json.Marshal(models.ChangeEvent{
		Event:     models.EventHello,
		Data:      "callwatch connected",
		Timestamp: time.Now(),
	})
	if err == nil {
		client.queue(hello)
	}

	if h.snapshot == nil {
		return
	}

	payload, err := json.Marshal(models.ChangeEvent{
		Event:     models.EventSnapshot,
		Data:      h.snapshot(),
		Timestamp: time.Now(),
	})
	if err == nil {
		client.queue(payload)
	}
}

// Publish implements Sink by broadcasting the event to all subscribers.
func (h *Hub) Publish(_ context.Context, event *models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.broadcast(payload)

	return nil
}

// PublishSnapshot implements Sink.
func (h *Hub) PublishSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	payload, err := json.Marshal(models.ChangeEvent{
		Event:     models.EventSnapshot,
		Data:      snapshot,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	h.broadcast(payload)

	return nil
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.queue(payload) {
			// Slow subscriber: drop the message rather than block the
			// event path. The next inventory-complete event resyncs it.
			h.logger.Warn().Msg("Dropping message for slow WebSocket subscriber")
		}
	}
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if ok {
		_ = client.conn.Close()
		h.logger.Info().Msg("WebSocket subscriber disconnected")
	}
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(client *wsClient) {
	defer h.unregister(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket read error")
			}

			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	for payload := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.unregister(client)
			return
		}
	}
}

// queue attempts a non-blocking enqueue; false means the buffer is full.
func (c *wsClient) queue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}
