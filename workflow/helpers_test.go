package workflow_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/shopspring/decimal"
)

// stepClock ticks one second per call so movement order is deterministic.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestEngine(t *testing.T, policy workflow.ShortagePolicy) *workflow.Engine {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := config.ConnectSQLite("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	clock := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return workflow.NewEngine(db, config.NewLogger("error"), workflow.NewLocalLocker(), workflow.Options{
		ShortagePolicy: policy,
		Now:            clock.Now,
	})
}

func tenantCtx(businessId string) context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	return utils.SetUserIdInContext(ctx, 1)
}

func mustItem(t *testing.T, ctx context.Context, eng *workflow.Engine, name string) *models.Item {
	t.Helper()
	item, err := eng.RegisterItem(ctx, &models.NewItem{Name: name})
	if err != nil {
		t.Fatalf("RegisterItem %s: %v", name, err)
	}
	return item
}

func mustEntry(t *testing.T, ctx context.Context, eng *workflow.Engine, stage models.InventoryStage, itemId int, qty string, cost string) *models.StockMovement {
	t.Helper()
	row, err := eng.RecordMovement(ctx, models.NewMovement{
		Stage:    int(stage),
		ItemId:   itemId,
		Kind:     "ENTRY",
		Quantity: qty,
		UnitCost: cost,
	})
	if err != nil {
		t.Fatalf("RecordMovement: %v", err)
	}
	return row
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", label, got.String(), want)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
