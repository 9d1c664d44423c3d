package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Topics emitted by the tracking pipeline. Observers receive every topic;
// filtering is the dashboard's job.
const (
	TopicLocationUpdate    = "location-update"
	TopicStatsUpdate       = "stats-update"
	TopicSessionStarted    = "session-started"
	TopicBreakStarted      = "break-started"
	TopicBreakEnded        = "break-ended"
	TopicSessionEnded      = "session-ended"
	TopicDeliveryCompleted = "delivery-completed"
)

const channelPattern = "events:*"

// Hub fans events out to every connected observer. Delivery is best-effort:
// a client whose send buffer is full loses the message rather than blocking
// the publisher. With redis configured, events are also relayed through
// pub/sub so observers on other instances receive them.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Send chan []byte
}

// envelope is the wire shape observers receive. Origin carries the hub
// instance that first published the event, so the redis loop can drop its
// own messages instead of delivering them twice.
type envelope struct {
	Event  string `json:"event"`
	Data   any    `json:"data"`
	Origin string `json:"origin,omitempty"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register() *Client {
	client := &Client{
		Send: make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// Publish delivers payload under the given topic to all current observers.
// Events published by the same goroutine reach each client's buffer in
// publish order.
func (h *Hub) Publish(topic string, payload any) {
	msg, err := json.Marshal(envelope{Event: topic, Data: payload, Origin: h.id})
	if err != nil {
		log.Printf("stream: marshal %s event: %v", topic, err)
		return
	}

	h.fanOut(msg)

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(topic), msg).Err(); err != nil {
			log.Printf("stream: redis publish error: %v", err)
		}
	}
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- msg:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	pubsub := h.redis.PSubscribe(context.Background(), channelPattern)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err == nil && env.Origin == h.id {
			// Our own publish already fanned out locally.
			continue
		}
		h.fanOut([]byte(msg.Payload))
	}
}

func redisChannel(topic string) string {
	return "events:" + topic
}
