package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestClaim_OnlyOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "acme:test")
	client.Del(ctx, requestKeyPrefix+"claim-key")

	ok, err := adapter.Claim(ctx, "claim-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first claim to succeed")
	}

	ok, err = adapter.Claim(ctx, "claim-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second claim to fail")
	}

	if err := adapter.Release(ctx, "claim-key"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	ok, _ = adapter.Claim(ctx, "claim-key")
	if !ok {
		t.Error("expected claim after release to succeed")
	}
}

func TestClaim_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "acme:test")
	client.Del(ctx, requestKeyPrefix+"concurrent-key")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.Claim(ctx, "concurrent-key")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}

func TestOrderPlaced_PublishesAndKeepsBacklog(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	adapter := NewRedisAdapter(client, "acme:test:orders")
	client.Del(ctx, eventBacklogKey)

	received := make(chan domain.OrderPlaced, 1)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	go adapter.Subscribe(subCtx, func(ev domain.OrderPlaced) { received <- ev }, func(payload string, err error) {
		t.Errorf("unexpected invalid payload %q: %v", payload, err)
	})
	time.Sleep(100 * time.Millisecond)

	ev := domain.NewOrderPlaced(domain.Order{
		ID:       7,
		Quantity: 2,
		Manager:  "m1",
		Customer: "c1",
		Escrowed: decimal.NewFromInt(1600),
	})
	if err := adapter.OrderPlaced(ctx, ev); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != ev.EventID || got.OrderID != 7 || got.Customer != "c1" {
			t.Errorf("unexpected event %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("event not received")
	}

	backlog, err := adapter.Backlog(ctx, 10)
	if err != nil {
		t.Fatalf("backlog failed: %v", err)
	}
	if len(backlog) != 1 || backlog[0].OrderID != 7 {
		t.Errorf("unexpected backlog %+v", backlog)
	}
}

func TestSubscribe_ReportsUndecodablePayloads(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	const channel = "acme:test:orders:invalid"
	adapter := NewRedisAdapter(client, channel)

	received := make(chan domain.OrderPlaced, 1)
	invalid := make(chan string, 1)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	go adapter.Subscribe(subCtx,
		func(ev domain.OrderPlaced) { received <- ev },
		func(payload string, err error) {
			if err == nil {
				t.Error("expected a decode error")
			}
			invalid <- payload
		})
	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(ctx, channel, "not json").Err(); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	select {
	case got := <-invalid:
		if got != "not json" {
			t.Errorf("unexpected invalid payload %q", got)
		}
	case <-ctx.Done():
		t.Fatal("invalid payload not reported")
	}

	// the subscription survives a bad payload
	if err := adapter.OrderPlaced(ctx, domain.NewOrderPlaced(domain.Order{ID: 3})); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	select {
	case got := <-received:
		if got.OrderID != 3 {
			t.Errorf("unexpected event %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("event not received")
	}
}
