package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
	"github.com/rl1809/shop-inventory/internal/port"
)

const (
	readers        = 20
	readsPerReader = 50
	priceUpdates   = 25
	buyers         = 10
	ordersPerBuyer = 5
	stressNS       = "stress"
)

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "shop-stress-*")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.OpenSQLite(ctx, filepath.Join(dir, "stress.db"))
	if err != nil {
		log.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	store := storage.NewSQLAdapter(db, storage.SQLite)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Redis is optional; without it the run still checks visibility.
	var cache port.CacheRepository
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb, stressNS)
	}

	products := service.NewProductService(store, cache, time.Minute)
	orders := service.NewOrderService(store)
	users := service.NewUserService(store)

	product, err := products.Create(ctx, domain.ProductInput{
		Name:  "Stress Widget",
		Price: decimal.NewFromInt(1),
		Stock: 1000,
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	// Readers hammer the cached listing while one writer keeps changing
	// the price.
	var (
		wg        sync.WaitGroup
		reads     atomic.Int64
		readFails atomic.Int64
	)
	start := time.Now()

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < readsPerReader; j++ {
				if _, err := products.List(ctx, domain.ProductFilter{InStockOnly: true}, domain.NewPageRequest(1, 0)); err != nil {
					readFails.Add(1)
					continue
				}
				reads.Add(1)
			}
		}()
	}

	finalPrice := decimal.NewFromInt(1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= priceUpdates; i++ {
			price := decimal.NewFromInt(int64(i + 1))
			if _, err := products.Update(ctx, product.ID, domain.ProductPatch{Price: &price}); err != nil {
				log.Printf("price update %d failed: %v", i, err)
				continue
			}
			finalPrice = price
		}
	}()

	wg.Wait()
	readElapsed := time.Since(start)

	// A reader racing the last write may have cached an older page; that is
	// tolerated until the next write.
	racedPrice := listedPrice(ctx, products, product.ID)

	// Readers are done, so one more write must leave no stale page behind.
	if _, err := products.Update(ctx, product.ID, domain.ProductPatch{Price: &finalPrice}); err != nil {
		log.Fatalf("settling price update failed: %v", err)
	}
	settledPrice := listedPrice(ctx, products, product.ID)

	// Buyers place orders concurrently; each must see only their own.
	accounts := make([]domain.User, buyers)
	for i := range accounts {
		u, _, err := users.Register(ctx, fmt.Sprintf("buyer-%d-%d", i, time.Now().UnixNano()), false)
		if err != nil {
			log.Fatalf("failed to register buyer: %v", err)
		}
		accounts[i] = u
	}

	var orderFails atomic.Int64
	for i := range accounts {
		wg.Add(1)
		go func(u domain.User) {
			defer wg.Done()
			for j := 0; j < ordersPerBuyer; j++ {
				_, err := orders.Create(ctx, &u, nil, []domain.OrderLine{{ProductID: product.ID, Quantity: j + 1}})
				if err != nil {
					orderFails.Add(1)
				}
			}
		}(accounts[i])
	}
	wg.Wait()

	leaks := 0
	for i := range accounts {
		u := accounts[i]
		list, err := orders.List(ctx, &u, domain.OrderFilter{})
		if err != nil {
			log.Fatalf("list orders for %s: %v", u.Username, err)
		}
		for _, o := range list {
			if !o.OwnedBy(u) {
				leaks++
			}
		}
		if len(list) != ordersPerBuyer {
			leaks++
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Cache:            %t\n", cache != nil)
	fmt.Printf("List Reads:       %d (%d failed)\n", reads.Load(), readFails.Load())
	fmt.Printf("Price Updates:    %d\n", priceUpdates)
	fmt.Printf("Read Phase:       %v\n", readElapsed)
	fmt.Printf("Orders Placed:    %d (%d failed)\n", buyers*ordersPerBuyer-int(orderFails.Load()), orderFails.Load())
	fmt.Println("==========================================")

	if !racedPrice.Equal(finalPrice) {
		fmt.Printf("INFO: listing raced to %s before the settling write\n", racedPrice.StringFixed(2))
	}
	if settledPrice.Equal(finalPrice) {
		fmt.Printf("PASS: listing shows latest price %s\n", finalPrice.StringFixed(2))
	} else {
		fmt.Printf("FAIL: listing shows %s, expected %s\n", settledPrice.StringFixed(2), finalPrice.StringFixed(2))
	}

	if leaks == 0 && orderFails.Load() == 0 {
		fmt.Println("PASS: every buyer sees exactly their own orders")
	} else {
		fmt.Printf("FAIL: %d visibility mismatches, %d failed orders\n", leaks, orderFails.Load())
	}
}

// listedPrice returns the price the first in-stock listing page shows for id.
func listedPrice(ctx context.Context, products *service.ProductService, id int64) decimal.Decimal {
	page, err := products.List(ctx, domain.ProductFilter{InStockOnly: true}, domain.NewPageRequest(1, 0))
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}
	for _, p := range page.Items {
		if p.ID == id {
			return p.Price
		}
	}
	return decimal.Zero
}
