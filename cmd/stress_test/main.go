package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/acme-warehouse/internal/adapter/notifier"
	"github.com/rl1809/acme-warehouse/internal/adapter/storage"
	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	admin         = domain.Address("0xadmin")
	manager       = domain.Address("0xmanager")
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	recorder := notifier.NewRecorder()
	queue := notifier.NewQueue(recorder, queueSize, log)
	queue.Start(4)

	opts := []service.Option{service.WithLogger(log)}

	// Redis is optional; with it every order is submitted twice under one request ID
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	guarded := rdb.Ping(ctx).Err() == nil
	if guarded {
		opts = append(opts, service.WithRequestGuard(storage.NewRedisAdapter(rdb, "acme:stress:placed")))
	} else {
		log.Warn("redis not available, running without duplicate submissions")
	}

	ledger := service.NewLedgerService(storage.NewMemoryAdapter(), queue, opts...)
	if _, err := ledger.Initialize(ctx, admin); err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	if err := ledger.AddManager(ctx, admin, manager); err != nil {
		log.Fatalf("failed to add manager: %v", err)
	}
	if err := ledger.SetBalance(ctx, manager, manager, domain.WidgetsItemID, initialStock); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}
	price, _ := ledger.GetPrice(ctx, domain.WidgetsItemID)

	// Phase 1: every customer orders one widget; stock is checked, not reserved
	var placed, duplicates atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			req := service.PlaceOrderRequest{
				Customer: domain.Address(fmt.Sprintf("0xcustomer-%d", userID)),
				ItemID:   domain.WidgetsItemID,
				Quantity: 1,
				Manager:  manager,
				Paid:     price,
			}
			attempts := 1
			if guarded {
				req.RequestID = uuid.NewString()
				attempts = 2
			}
			for a := 0; a < attempts; a++ {
				_, err := ledger.PlaceOrder(ctx, req)
				switch {
				case err == nil:
					placed.Add(1)
				case errors.Is(err, service.ErrDuplicateRequest):
					duplicates.Add(1)
				default:
					log.Errorf("place order for user %d: %v", userID, err)
				}
			}
		}(i)
	}
	wg.Wait()

	// Phase 2: ship everything at once; only the stock on hand can go out
	open, _ := ledger.GetOpenOrders(ctx, manager)
	var shipped, shortOfStock atomic.Int32
	for _, id := range open {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			err := ledger.ShipOpenOrder(ctx, manager, id)
			switch {
			case err == nil:
				shipped.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				shortOfStock.Add(1)
			default:
				log.Errorf("ship order %d: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	// Phase 3: reject what is left
	remaining, _ := ledger.GetOpenOrders(ctx, manager)
	var rejected atomic.Int32
	for _, id := range remaining {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if err := ledger.RejectOpenOrder(ctx, manager, id); err != nil {
				log.Errorf("reject order %d: %v", id, err)
				return
			}
			rejected.Add(1)
		}(id)
	}
	wg.Wait()
	elapsed := time.Since(start)

	queue.Close()

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Placed:           %d\n", placed.Load())
	fmt.Printf("Duplicates:       %d\n", duplicates.Load())
	fmt.Printf("Shipped:          %d\n", shipped.Load())
	fmt.Printf("Short of stock:   %d\n", shortOfStock.Load())
	fmt.Printf("Rejected:         %d\n", rejected.Load())
	fmt.Printf("Notifications:    %d\n", len(recorder.Events()))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	check(placed.Load() == totalRequests, "all %d orders placed exactly once", totalRequests)
	if guarded {
		check(duplicates.Load() == totalRequests, "every resubmission rejected as duplicate")
	}
	check(shipped.Load() == initialStock && rejected.Load() == totalRequests-initialStock,
		"exactly %d orders shipped, %d rejected", initialStock, totalRequests-initialStock)
	check(len(recorder.Events()) == totalRequests, "one notification per order")

	finalStock, _ := ledger.BalanceOf(ctx, manager, domain.WidgetsItemID)
	check(finalStock == 0, "manager stock depleted to 0 (got %d)", finalStock)

	held, _ := ledger.EscrowHeld(ctx)
	check(held.IsZero(), "escrow empty (got %s wei)", held)

	earned, _ := ledger.AccountBalance(ctx, manager)
	check(earned.Equal(price.Mul(decimal.NewFromInt(initialStock))),
		"manager paid for %d widgets (got %s ether)", initialStock, domain.FormatEther(earned))
}

func check(ok bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if ok {
		fmt.Println("PASS: " + msg)
	} else {
		fmt.Println("FAIL: " + msg)
	}
}
