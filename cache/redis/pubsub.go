package redis

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/communityhub/platform/cache"
)

// MessageHandler receives messages published on a subscribed channel.
type MessageHandler func(channel, payload string)

// Subscription is an active channel subscription on a dedicated connection.
type Subscription struct {
	pubsub *redis.PubSub
	client *redis.Client
	done   chan struct{}
	once   sync.Once
	err    error
}

// Subscribe listens on channels using a duplicate of the current client, so blocking
// reads never hold a pooled command connection. Messages are delivered to handler on a
// single goroutine in arrival order until the Subscription is closed.
func (c *Connection) Subscribe(ctx context.Context, handler MessageHandler, channels ...string) (*Subscription, error) {
	if len(channels) == 0 {
		return nil, cache.NewOperationError("subscribe", "", errors.New("at least one channel is required"))
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	opts := *client.Options()
	dup := redis.NewClient(&opts)
	pubsub := dup.Subscribe(ctx, channels...)

	// Wait for the subscription confirmation so published messages are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = dup.Close()
		return nil, cache.NewOperationError("subscribe", channels[0], c.observe(err))
	}

	sub := &Subscription{
		pubsub: pubsub,
		client: dup,
		done:   make(chan struct{}),
	}
	go sub.deliver(handler)

	c.log.Debug().Int("channels", len(channels)).Msg("Subscribed to cache channels")
	return sub, nil
}

func (s *Subscription) deliver(handler MessageHandler) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		handler(msg.Channel, msg.Payload)
	}
}

// Close unsubscribes and releases the dedicated connection. It waits for the handler
// goroutine to finish and is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		err := s.pubsub.Close()
		<-s.done
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
		s.err = err
	})
	return s.err
}
