package adapter

import "context"

// Subscription is one live attachment to a delivery group. Messages yields
// each published payload as raw JSON; the channel closes when the
// subscription is closed or the underlying bus connection drops.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// MessageBus is the named-group publish/subscribe collaborator used to push
// job results to a user's live connections. Publish is fire-and-forget from
// the caller's point of view: a delivery must not fail because no subscriber
// is listening.
type MessageBus interface {
	Publish(ctx context.Context, group string, message any) error
	Subscribe(ctx context.Context, group string) (Subscription, error)
}
