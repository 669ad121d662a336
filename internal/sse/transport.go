package sse

import (
	"context"
	"sync"

	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
)

// Transport moves serialized events between processes.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers payloads until ctx ends or the returned close func runs.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error)
}

type redisTransport struct {
	client *redisclient.Client
}

func NewRedisTransport(client *redisclient.Client) Transport {
	return &redisTransport{client: client}
}

func (t *redisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

func (t *redisTransport) Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error) {
	pubsub := t.client.Subscribe(ctx, channel)
	out := make(chan []byte)

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close
}

// MemoryTransport delivers events inside a single process.
type MemoryTransport struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: make(map[string]map[chan []byte]struct{})}
}

func (t *MemoryTransport) Publish(_ context.Context, channel string, payload []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (t *MemoryTransport) Subscribe(_ context.Context, channel string) (<-chan []byte, func() error) {
	ch := make(chan []byte, clientBufferSize)

	t.mu.Lock()
	if t.subs[channel] == nil {
		t.subs[channel] = make(map[chan []byte]struct{})
	}
	t.subs[channel][ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() error {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs[channel], ch)
			if len(t.subs[channel]) == 0 {
				delete(t.subs, channel)
			}
			t.mu.Unlock()
		})
		return nil
	}
}

// Subscribers reports how many upstream subscriptions channel has.
func (t *MemoryTransport) Subscribers(channel string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[channel])
}
