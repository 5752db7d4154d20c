// File: internal/infra/redis/pubsub.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"interpretation-broker/internal/domain/ports/adapter"
)

var _ adapter.MessageBus = (*Bus)(nil)

// Bus implements the delivery-group publish/subscribe port on Redis
// channels. One Redis channel per group; payloads travel as JSON.
type Bus struct {
	client *Client
}

func NewBus(client *Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Publish(ctx context.Context, group string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.client.cli.Publish(ctx, group, payload).Err()
}

func (b *Bus) Subscribe(ctx context.Context, group string) (adapter.Subscription, error) {
	ps := b.client.cli.Subscribe(ctx, group)
	// Force the subscription to be established before reporting success so
	// a push cannot race past a connection that is still handshaking.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := newSubscription(ps)
	go sub.pump(ps.Channel())
	return sub, nil
}

type subscription struct {
	ps   *redis.PubSub
	out  chan []byte
	quit chan struct{}
	once sync.Once
}

func newSubscription(ps *redis.PubSub) *subscription {
	return &subscription{
		ps:   ps,
		out:  make(chan []byte, 16),
		quit: make(chan struct{}),
	}
}

// pump forwards bus messages until the source closes or the subscription is
// closed. A consumer that stops draining must not strand the pump, so the
// forwarding send races against quit.
func (s *subscription) pump(src <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.quit:
			return
		case msg, ok := <-src:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.quit:
				return
			}
		}
	}
}

func (s *subscription) Messages() <-chan []byte { return s.out }

func (s *subscription) Close() error {
	s.once.Do(func() { close(s.quit) })
	if s.ps == nil {
		return nil
	}
	return s.ps.Close()
}
