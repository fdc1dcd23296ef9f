// Command delivery_race fires concurrent "delivered" updates at a single restock
// order and checks that the stock moved exactly once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/adapter/messaging"
	"github.com/rl1809/supply-ledger/internal/adapter/storage"
	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/core/service"
	"github.com/rl1809/supply-ledger/internal/metrics"
	"github.com/rl1809/supply-ledger/internal/port"
)

const (
	restockQuantity = 20
	totalRequests   = 50
)

func main() {
	dsn := flag.String("dsn", "", "MySQL DSN; the in-memory store is used when empty")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	ctx := context.Background()

	var store port.Store
	if *dsn == "" {
		store = storage.NewMemoryStore()
	} else {
		db, err := storage.OpenMySQL(ctx, *dsn, storage.PoolOptions{MaxOpenConns: 50, MaxIdleConns: 25, ConnMaxLifetime: 5 * time.Minute})
		if err != nil {
			log.Fatal("failed to connect mysql", zap.Error(err))
		}
		defer db.Close()
		if err := storage.Migrate(ctx, db.DB); err != nil {
			log.Fatal("failed to migrate", zap.Error(err))
		}
		store = storage.NewMySQLAdapter(db)
	}

	// Seed a supplier and an item; creating the item opens one restock order per supplier
	supplier := &domain.User{
		Name:         "Race Supplier",
		Email:        "race-" + uuid.NewString()[:8] + "@supply.local",
		PasswordHash: "-",
		Role:         domain.RoleSupplier,
	}
	if err := store.CreateUser(ctx, supplier); err != nil {
		log.Fatal("failed to create supplier", zap.Error(err))
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	inventory := service.NewInventoryService(store, log)
	ledger := service.NewLedgerService(store, messaging.NopPublisher{}, collector, log, false)

	stock := restockQuantity
	item, err := inventory.Add(ctx, service.AddInventoryInput{
		ProductName: "race-item-" + uuid.NewString()[:8],
		StockLevel:  &stock,
		Price:       ptr(decimal.NewFromInt(1)),
	})
	if err != nil {
		log.Fatal("failed to add item", zap.Error(err))
	}
	orders, err := ledger.SupplierOrders(ctx, *supplier)
	if err != nil {
		log.Fatal("failed to list orders", zap.Error(err))
	}
	var orderID int64
	for _, o := range orders {
		if o.InventoryID == item.ID {
			orderID = o.ID
		}
	}
	if orderID == 0 {
		log.Fatal("no restock order was created for the item")
	}

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.UpdateDeliveryStatus(ctx, *supplier, orderID, service.DeliveryStatusInput{Status: domain.StatusDelivered})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := store.GetInventory(ctx, item.ID)
	if err != nil {
		log.Fatal("failed to reload item", zap.Error(err))
	}

	fmt.Println("========== DELIVERY RACE RESULTS ==========")
	fmt.Printf("Restock Quantity: %d\n", restockQuantity)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Final Stock:      %d\n", final.StockLevel)
	fmt.Println("============================================")

	if final.StockLevel != restockQuantity {
		fmt.Printf("FAIL: expected stock %d, got %d\n", restockQuantity, final.StockLevel)
		os.Exit(1)
	}
	fmt.Println("PASS: stock incremented exactly once")
}

func ptr[T any](v T) *T { return &v }
