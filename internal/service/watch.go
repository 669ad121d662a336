package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/sse"
)

// watchTopic delivers a fresh snapshot from load right away and again after every
// event on topic. The returned func stops the watch; it is safe to call twice.
func watchTopic[T any](
	ctx context.Context,
	subscriber EventSubscriber,
	topic string,
	load func(context.Context) (T, error),
	onSnapshot func(T),
	onError func(error),
) func() {
	client := subscriber.Subscribe(topic)
	ctx, cancel := context.WithCancel(ctx)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			subscriber.Unsubscribe(client)
		})
	}

	deliver := func() {
		items, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", topic).Msg("failed to load snapshot")
			if onError != nil {
				if !apperrors.IsAppError(err) {
					err = apperrors.RemoteOperation("load snapshot", err)
				}
				onError(err)
			}
			return
		}
		onSnapshot(items)
	}

	go func() {
		defer stop()
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done:
				return
			case <-client.Events:
				drain(client.Events)
				if ctx.Err() != nil {
					return
				}
				deliver()
			}
		}
	}()

	return stop
}

// drain discards queued events; one reload covers all of them.
func drain(ch chan sse.Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
