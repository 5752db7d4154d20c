package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(newMemClient())
	key := UserRequestKey("u-1", "interpretations")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request #%d denied under the limit", i)
		}
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if ok {
		t.Fatal("request over the limit was allowed")
	}
}

func TestUserRequestKey(t *testing.T) {
	if got := UserRequestKey("u-9", "interpretations"); got != "rate_limit:u-9:interpretations" {
		t.Fatalf("UserRequestKey = %q", got)
	}
}
