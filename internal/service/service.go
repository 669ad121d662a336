package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/database"
	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/sse"
	"github.com/skillswap/exchange-server-go/internal/util"
)

// Transactor runs fn inside one database transaction. *database.DB satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event sse.Event) error
}

type EventSubscriber interface {
	Subscribe(topic string) *sse.Client
	Unsubscribe(client *sse.Client)
}

// EventBroker is satisfied by *sse.Broker.
type EventBroker interface {
	EventPublisher
	EventSubscriber
}

const EventChanged = "changed"

// notify publishes a change on topic. The write it reports has already landed,
// so a failed publish is logged and not returned.
func notify(ctx context.Context, publisher EventPublisher, topic string, data any) {
	if publisher == nil {
		return
	}
	event := sse.Event{Type: EventChanged}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			event.Data = raw
		}
	}
	if err := publisher.Publish(ctx, topic, event); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish change")
	}
}

// requireID turns malformed ids into NotFound before they reach postgres.
func requireID(id, resource string) error {
	if !util.IsValidUUID(id) {
		return apperrors.NotFound(resource)
	}
	return nil
}
