package redis

import (
	"fmt"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

func TestSubscriptionForwardsPayloads(t *testing.T) {
	src := make(chan *goredis.Message)
	sub := newSubscription(nil)
	go sub.pump(src)
	defer sub.Close()

	src <- &goredis.Message{Channel: "user_u-1", Payload: `{"job_id":"j-1"}`}
	select {
	case got := <-sub.Messages():
		if string(got) != `{"job_id":"j-1"}` {
			t.Fatalf("forwarded payload = %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload never forwarded")
	}
}

func TestSubscriptionCloseUnblocksSaturatedPump(t *testing.T) {
	src := make(chan *goredis.Message)
	sub := newSubscription(nil)
	pumpDone := make(chan struct{})
	go func() {
		sub.pump(src)
		close(pumpDone)
	}()

	// Flood far past the output buffer without ever draining, parking the
	// pump mid-send the way a disconnected consumer would.
	go func() {
		for i := 0; ; i++ {
			select {
			case src <- &goredis.Message{Payload: fmt.Sprintf("m-%d", i)}:
			case <-pumpDone:
				return
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-pumpDone:
	case <-time.After(2 * time.Second):
		t.Fatal("pump still running after Close")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	sub := newSubscription(nil)
	go sub.pump(make(chan *goredis.Message))
	if err := sub.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
