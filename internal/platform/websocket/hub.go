// Package websocket forwards store change notifications to connected UI
// clients. Clients subscribe to topics, one per store, and receive the
// store's full snapshot each time it changes.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/wardstate/internal/platform/notify"
)

const (
	EventSnapshot = "snapshot"
	EventChanged  = "changed"
)

// Event is a message sent to WebSocket clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Count     int             `json:"count"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound message from a WebSocket client.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is a single WebSocket connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// NewClient returns a client with a buffered send channel.
func NewClient(topics ...string) *Client {
	return &Client{ID: uuid.NewString(), Topics: newTopics(nil, topics), Send: make(chan []byte, 256)}
}

// Source is a store whose changes can be forwarded.
type Source[T any] interface {
	GetAll() []T
	Subscribe(l notify.Listener[T]) (unsubscribe func())
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> subscribers
	all     map[*Client]struct{}
	current map[string]func() (json.RawMessage, int, error)
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHub creates an empty Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		current: make(map[string]func() (json.RawMessage, int, error)),
		logger:  logger.With().Str("component", "websocket").Logger(),
		now:     time.Now,
	}
}

// Watch forwards every change of src to the subscribers of topic and lets
// new subscribers receive its current contents. The returned func stops
// forwarding.
func Watch[T any](h *Hub, topic string, src Source[T]) (stop func()) {
	h.mu.Lock()
	h.current[topic] = func() (json.RawMessage, int, error) {
		items := src.GetAll()
		data, err := json.Marshal(items)
		return data, len(items), err
	}
	h.mu.Unlock()

	unsubscribe := src.Subscribe(notify.ListenerFunc[T](func(snapshot []T) {
		data, err := json.Marshal(snapshot)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("marshal snapshot")
			return
		}
		h.Broadcast(Event{Type: EventChanged, Topic: topic, Count: len(snapshot), Timestamp: h.now(), Data: data})
	}))
	return func() {
		unsubscribe()
		h.mu.Lock()
		delete(h.current, topic)
		h.mu.Unlock()
	}
}

// Topics lists the watched topics.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := make([]string, 0, len(h.current))
	for t := range h.current {
		topics = append(topics, t)
	}
	return topics
}

// Register adds a client to the hub and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.add(topic, client)
	}
	h.mu.Unlock()

	h.sendCurrent(client, client.Topics)
}

// Unregister removes a client from the hub and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.remove(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds topics to a registered client and sends it the current
// contents of each. Topics the client already follows are skipped.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	added := newTopics(client.Topics, topics)
	for _, topic := range added {
		h.add(topic, client)
	}
	client.Topics = append(client.Topics, added...)
	h.mu.Unlock()

	h.sendCurrent(client, added)
}

// newTopics returns the topics not in have, without repeats, in order.
func newTopics(have, topics []string) []string {
	seen := make(map[string]bool, len(have)+len(topics))
	for _, t := range have {
		seen[t] = true
	}
	var out []string
	for _, t := range topics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	drop := make(map[string]bool, len(topics))
	for _, topic := range topics {
		drop[topic] = true
		h.remove(topic, client)
	}
	remaining := client.Topics[:0]
	for _, t := range client.Topics {
		if !drop[t] {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

func (h *Hub) add(topic string, client *Client) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) remove(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// ProcessMessage dispatches a ClientMessage to Subscribe or Unsubscribe.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

func (h *Hub) sendCurrent(client *Client, topics []string) {
	for _, topic := range topics {
		h.mu.RLock()
		current, ok := h.current[topic]
		_, registered := h.all[client]
		h.mu.RUnlock()
		if !ok || !registered {
			continue
		}
		data, count, err := current()
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("marshal snapshot")
			continue
		}
		h.deliver(client, Event{Type: EventSnapshot, Topic: topic, Count: count, Timestamp: h.now(), Data: data})
	}
}

func (h *Hub) deliver(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		h.logger.Warn().Str("client_id", client.ID).Msg("client buffer full, event dropped")
	}
}

// Broadcast sends an event to all clients subscribed to its topic. Slow
// clients whose buffer is full miss the event.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[event.Topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("topic", event.Topic).Msg("client buffer full, event dropped")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP connections to WebSocket clients of a Hub.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler creates a handler bound to hub. Connections are accepted from
// the given origins; "*" or an empty list accepts any origin.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint on g.
func (wsh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the connection, registers the client with the
// topics named in the "topic" query parameters and starts its pumps.
func (wsh *Handler) HandleConnect(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(c.QueryParams()["topic"]...)
	go wsh.writePump(client, ws)
	wsh.hub.Register(client)
	go wsh.readPump(client, ws)
	return nil
}

func (wsh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

func (wsh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}
