package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second

	clientBufferSize = 100
)

// Event is a change notification for a topic. Listeners reload their snapshot
// on every event, so Data is informational only.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	Topic  string
	Events chan Event
	Done   chan struct{}
}

type topicState struct {
	clients map[*Client]bool
	cancel  context.CancelFunc
}

// Broker fans out topic events from a Transport to local clients. The upstream
// subscription for a topic lives as long as the topic has at least one client.
type Broker struct {
	transport Transport
	topics    map[string]*topicState
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	return NewBrokerWithTransport(NewRedisTransport(redisClient))
}

func NewBrokerWithTransport(transport Transport) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		transport: transport,
		topics:    make(map[string]*topicState),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (b *Broker) Subscribe(topic string) *Client {
	client := &Client{
		Topic:  topic,
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	state := b.topics[topic]
	if state == nil {
		topicCtx, cancel := context.WithCancel(b.ctx)
		state = &topicState{clients: make(map[*Client]bool), cancel: cancel}
		b.topics[topic] = state
		go b.listen(topicCtx, topic)
	}
	state.clients[client] = true
	clientCount := len(state.clients)
	b.mu.Unlock()

	log.Info().
		Str("topic", topic).
		Int("clientCount", clientCount).
		Msg("realtime client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.topics[client.Topic]
	if !ok || !state.clients[client] {
		return
	}

	delete(state.clients, client)
	close(client.Done)

	if len(state.clients) == 0 {
		state.cancel()
		delete(b.topics, client.Topic)
	}

	log.Info().
		Str("topic", client.Topic).
		Int("clientCount", len(state.clients)).
		Msg("realtime client unsubscribed")
}

func (b *Broker) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.transport.Publish(ctx, redisclient.TopicChannel(topic), data)
}

func (b *Broker) listen(ctx context.Context, topic string) {
	channel := redisclient.TopicChannel(topic)
	payloads, closeFn := b.transport.Subscribe(ctx, channel)
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
		}
	}()

	log.Debug().
		Str("topic", topic).
		Str("channel", channel).
		Msg("pubsub subscribed")

	for {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-payloads:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(topic, event)
		}
	}
}

func (b *Broker) broadcast(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := b.topics[topic]
	if state == nil {
		return
	}
	for client := range state.clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("topic", topic).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, state := range b.topics {
		for client := range state.clients {
			close(client.Done)
		}
	}
	b.topics = make(map[string]*topicState)
}

func (b *Broker) ClientCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if state := b.topics[topic]; state != nil {
		return len(state.clients)
	}
	return 0
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, state := range b.topics {
		total += len(state.clients)
	}
	return total
}
