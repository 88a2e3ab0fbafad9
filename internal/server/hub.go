package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SVG stream carries no credentials; cross-origin viewers are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the websocket envelope in both directions.
type Message struct {
	Type      string  `json:"type"`
	Slug      string  `json:"slug,omitempty"`
	ID        string  `json:"id,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Consumers int     `json:"consumers,omitempty"`
	Data      any     `json:"data,omitempty"`
}

// Client is one websocket connection with a buffered outbound queue.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans rendered frames and scene events out to connected clients and
// routes inbound commands to the director.
type Hub struct {
	logger   *zap.Logger
	director *Director

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub builds a hub over the given director.
func NewHub(director *Director, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		director:   director,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
	}
}

// Run owns the client set and the frame loop until ctx is done. Scene
// events from the bus are bridged onto the broadcast channel for as long
// as Run is active.
func (h *Hub) Run(ctx context.Context, frameInterval time.Duration) {
	unsubscribe := h.bridgeBus()
	defer unsubscribe()

	if frameInterval <= 0 {
		frameInterval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			clientsConnected.Set(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			clientsConnected.Set(float64(len(h.clients)))
			h.logger.Info("client connected", zap.String("client_id", client.id))
			h.greet(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientsConnected.Set(float64(len(h.clients)))
				h.logger.Info("client disconnected", zap.String("client_id", client.id))
			}

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-ticker.C:
			if len(h.clients) == 0 || !h.director.Playing() {
				continue
			}
			h.fanOut(marshal(Message{Type: "frame", Data: h.director.Frame()}))
			framesSent.Inc()
		}
	}
}

// fanOut delivers one message to every client, dropping clients whose
// outbound queue is full.
func (h *Hub) fanOut(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			clientsConnected.Set(float64(len(h.clients)))
			h.logger.Warn("client dropped, send queue full", zap.String("client_id", client.id))
		}
	}
}

// greet sends a new client the catalog, the transport state and one frame.
func (h *Hub) greet(client *Client) {
	msgs := [][]byte{
		marshal(Message{Type: "catalog", Data: catalogSummary(h.director.Catalog())}),
		marshal(Message{Type: "state", Data: h.stateSnapshot()}),
		marshal(Message{Type: "frame", Data: h.director.Frame()}),
	}
	for _, m := range msgs {
		select {
		case client.send <- m:
		default:
			return
		}
	}
}

type stateSnapshot struct {
	Slug    string  `json:"slug"`
	Playing bool    `json:"playing"`
	Speed   float64 `json:"speed"`
}

func (h *Hub) stateSnapshot() stateSnapshot {
	return stateSnapshot{
		Slug:    h.director.CurrentSlug(),
		Playing: h.director.Playing(),
		Speed:   h.director.Speed(),
	}
}

// bridgeBus republishes scene events to every connected client and returns
// an unsubscribe for all of them.
func (h *Hub) bridgeBus() func() {
	b := h.director.bus
	unsubs := []func(){
		b.Subscribe(bus.TopicSceneReady, func(payload any) {
			h.broadcast <- marshal(Message{Type: "scene_ready", Data: payload})
		}),
		b.Subscribe(bus.TopicEntitySelected, func(payload any) {
			h.broadcast <- marshal(Message{Type: "entity_info", Data: payload})
		}),
		b.Subscribe(bus.TopicLessonChanged, func(payload any) {
			slug, _ := payload.(string)
			h.broadcast <- marshal(Message{Type: "lesson_changed", Slug: slug})
		}),
		b.Subscribe(bus.TopicPlayPauseToggled, func(payload any) {
			playing, _ := payload.(bool)
			h.broadcast <- marshal(Message{Type: "playing", Data: playing})
		}),
		b.Subscribe(bus.TopicSceneReset, func(any) {
			// The reset event fires while the director still holds its
			// lock; render the fresh frame once the transition finishes.
			go func() {
				h.broadcast <- marshal(Message{Type: "frame", Data: h.director.Frame()})
			}()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// handle dispatches one inbound client command.
func (h *Hub) handle(ctx context.Context, client *Client, msg Message) {
	commandsTotal.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case "select_lesson":
		if err := h.director.SelectLesson(ctx, msg.Slug); err != nil {
			h.logger.Warn("lesson selection failed",
				zap.String("client_id", client.id),
				zap.String("slug", msg.Slug),
				zap.Error(err),
			)
			h.send(client, Message{Type: "error", Data: err.Error()})
			return
		}
		h.send(client, Message{Type: "state", Data: h.stateSnapshot()})

	case "play":
		h.director.Play()
	case "pause":
		h.director.Pause()
	case "toggle":
		h.director.Toggle()
	case "reset":
		h.director.Reset()
		h.send(client, Message{Type: "frame", Data: h.director.Frame()})
	case "speed":
		h.director.SetSpeed(msg.Value)
	case "select_entity":
		h.director.SelectEntity(msg.ID)
	case "rebalance":
		go h.director.Rebalance(ctx, msg.Consumers)

	default:
		h.logger.Debug("unknown command",
			zap.String("client_id", client.id),
			zap.String("type", msg.Type),
		)
	}
}

func (h *Hub) send(client *Client, msg Message) {
	select {
	case client.send <- marshal(msg):
	default:
	}
}

func marshal(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"type":"error","data":"encode failure"}`)
	}
	return data
}

func catalogSummary(c *lesson.Catalog) []map[string]string {
	out := make([]map[string]string, 0)
	for _, d := range c.List() {
		out = append(out, map[string]string{
			"slug":        d.Slug,
			"title":       d.Title,
			"description": d.Description,
		})
	}
	return out
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(ctx, h)
}

func (c *Client) readPump(ctx context.Context, h *Hub) {
	defer func() {
		// After Run exits nobody receives on unregister; don't hang the
		// pump goroutine on shutdown.
		select {
		case h.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("bad client message", zap.String("client_id", c.id), zap.Error(err))
			continue
		}
		h.handle(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
