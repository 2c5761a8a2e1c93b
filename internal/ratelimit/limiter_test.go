package ratelimit

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNew(t *testing.T) {
	l := New()

	if !l.Allow(APIYahoo) {
		t.Error("expected fresh yahoo limiter to allow a request")
	}
	if !l.Allow(APIFRED) {
		t.Error("expected fresh fred limiter to allow a request")
	}
}

func TestAllow_UnknownAPI(t *testing.T) {
	l := New()

	if !l.Allow(API("unknown")) {
		t.Error("expected unknown API to be allowed without limiting")
	}
}

func TestWait_UnknownAPI(t *testing.T) {
	l := New()

	if err := l.Wait(context.Background(), API("unknown")); err != nil {
		t.Errorf("expected no error for unknown API, got %v", err)
	}
}

func TestSet_Override(t *testing.T) {
	l := New()
	l.Set(APIYahoo, rate.Limit(1), 1)

	if !l.Allow(APIYahoo) {
		t.Error("expected first request within burst to be allowed")
	}
	if l.Allow(APIYahoo) {
		t.Error("expected second request to be throttled")
	}
}

func TestSet_Unlimited(t *testing.T) {
	l := New()
	l.Set(APIFRED, rate.Inf, 1)

	for i := 0; i < 100; i++ {
		if !l.Allow(APIFRED) {
			t.Fatalf("expected unlimited limiter to allow request %d", i)
		}
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	l := New()
	l.Set(APIYahoo, rate.Limit(0.001), 1)
	l.Allow(APIYahoo) // drain the burst

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, APIYahoo); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}
