package workflow_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestConsumeWalksLayersOldestFirst(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-fifo")

	flour := mustItem(t, ctx, eng, "Flour")
	t1 := mustEntry(t, ctx, eng, models.StageRawMaterial, flour.ID, "10", "1")
	t2 := mustEntry(t, ctx, eng, models.StageRawMaterial, flour.ID, "10", "2")
	t3 := mustEntry(t, ctx, eng, models.StageRawMaterial, flour.ID, "10", "3")

	res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: flour.ID, Quantity: dec("15"), Reference: "MO-1"})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "total cost", res.TotalCost, "20")
	assertDecimal(t, "consumed", res.ConsumedQty, "15")
	assertDecimal(t, "shortfall", res.Shortfall, "0")
	assertDecimal(t, "unit cost", res.UnitCost, "1.33333333")
	if len(res.Allocations) != 2 || res.Allocations[0].LayerId != t1.ID || res.Allocations[1].LayerId != t2.ID {
		t.Fatalf("unexpected allocations %+v", res.Allocations)
	}
	assertDecimal(t, "second allocation", res.Allocations[1].Qty, "5")

	rows, err := eng.ListMovements(ctx, models.MovementFilter{Stage: models.StageRawMaterial, ItemId: flour.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	remaining := map[int]decimal.Decimal{}
	var exits int
	for _, r := range rows {
		if r.Kind == models.MovementKindEntry {
			remaining[r.ID] = r.RemainingQty
			assertDecimal(t, "entry qty is immutable", r.Qty, "10")
		}
		if r.Kind == models.MovementKindExit {
			exits++
			if r.ID != res.ExitMovementId || r.Reference != "MO-1" {
				t.Fatalf("unexpected exit row %+v", r)
			}
			assertDecimal(t, "exit qty", r.Qty, "15")
		}
	}
	if exits != 1 {
		t.Fatalf("expected one exit row, got %d", exits)
	}
	assertDecimal(t, "T1 remaining", remaining[t1.ID], "0")
	assertDecimal(t, "T2 remaining", remaining[t2.ID], "5")
	assertDecimal(t, "T3 remaining", remaining[t3.ID], "10")
}

func TestConsumeShortageRejectRollsBack(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-short")

	salt := mustItem(t, ctx, eng, "Salt")
	entry := mustEntry(t, ctx, eng, models.StageRawMaterial, salt.ID, "5", "1")

	_, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: salt.ID, Quantity: dec("8")})
	var shortage *models.InsufficientStockError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("error does not unwrap to ErrInsufficientStock")
	}
	assertDecimal(t, "missing", shortage.Missing, "3")
	if shortage.ItemId != salt.ID || shortage.Stage != models.StageRawMaterial {
		t.Fatalf("unexpected shortage %+v", shortage)
	}

	rows, err := eng.ListMovements(ctx, models.MovementFilter{ItemId: salt.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != entry.ID {
		t.Fatalf("rejected consumption left rows behind: %+v", rows)
	}
	assertDecimal(t, "layer untouched", rows[0].RemainingQty, "5")
}

func TestConsumeShortagePartial(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortagePartial)
	ctx := tenantCtx("biz-partial")

	salt := mustItem(t, ctx, eng, "Salt")
	mustEntry(t, ctx, eng, models.StageRawMaterial, salt.ID, "5", "1.5")

	res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: salt.ID, Quantity: dec("8")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "consumed", res.ConsumedQty, "5")
	assertDecimal(t, "shortfall", res.Shortfall, "3")
	assertDecimal(t, "cost", res.TotalCost, "7.5")

	// nothing left: the whole request is short and nothing is recorded
	res, err = eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: salt.ID, Quantity: dec("2")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "shortfall", res.Shortfall, "2")
	if res.ExitMovementId != 0 {
		t.Fatalf("an empty consumption must not record an exit")
	}
}

func TestConsumeOpeningStockFirst(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-opening")

	sugar := mustItem(t, ctx, eng, "Sugar")
	mustEntry(t, ctx, eng, models.StageRawMaterial, sugar.ID, "10", "2")
	if _, err := eng.SetOpeningStock(ctx, workflow.NewOpeningStock{Stage: 1, ItemId: sugar.ID, Quantity: "4", UnitCost: "5"}); err != nil {
		t.Fatalf("SetOpeningStock: %v", err)
	}

	res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: sugar.ID, Quantity: dec("6")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if res.Allocations[0].Source != models.LayerSourceOpening {
		t.Fatalf("opening stock was not consumed first: %+v", res.Allocations)
	}
	assertDecimal(t, "cost", res.TotalCost, "24")

	_, err = eng.SetOpeningStock(ctx, workflow.NewOpeningStock{Stage: 1, ItemId: sugar.ID, Quantity: "9", UnitCost: "5"})
	if !errors.Is(err, workflow.ErrOpeningStockConsumed) {
		t.Fatalf("expected ErrOpeningStockConsumed, got %v", err)
	}
}

func TestConsumeValidatesInput(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-validate")
	item := mustItem(t, ctx, eng, "Yeast")

	cases := []workflow.ConsumeInput{
		{Stage: 4, ItemId: item.ID, Quantity: dec("1")},
		{Stage: models.StageRawMaterial, ItemId: 0, Quantity: dec("1")},
		{Stage: models.StageRawMaterial, ItemId: item.ID, Quantity: dec("0")},
		{Stage: models.StageRawMaterial, ItemId: item.ID, Quantity: dec("-1")},
		{Stage: models.StageRawMaterial, ItemId: item.ID, Quantity: dec("0.00001")},
	}
	for i, in := range cases {
		if _, err := eng.Consume(ctx, in); !errors.Is(err, models.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
	if _, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: 1, ItemId: 9999, Quantity: dec("1")}); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := eng.Consume(tenantCtx("biz-other"), workflow.ConsumeInput{Stage: 1, ItemId: item.ID, Quantity: dec("1")}); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("another business must not see the item, got %v", err)
	}
}

func TestConsumeConcurrentIsSerialized(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-concurrent")

	oil := mustItem(t, ctx, eng, "Oil")
	for i := 1; i <= 5; i++ {
		mustEntry(t, ctx, eng, models.StageRawMaterial, oil.ID, "10", decimal.NewFromInt(int64(i)).String())
	}

	const workers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		total    = decimal.Zero
		failures int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: oil.ID, Quantity: dec("5")})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, models.ErrInsufficientStock) {
					t.Errorf("Consume: %v", err)
				}
				failures++
				return
			}
			total = total.Add(res.TotalCost)
		}()
	}
	wg.Wait()

	// 50 units on hand, 12 requests of 5: exactly 10 succeed
	if failures != workers-10 {
		t.Fatalf("expected %d failures, got %d", workers-10, failures)
	}
	assertDecimal(t, "total cost", total, "150")

	balance, err := eng.CurrentBalance(ctx, models.StageRawMaterial, oil.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand", balance.OnHand, "0")
}

func TestConsumeAfterRecordedExitDoesNotReuseLayers(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-recorded-exit")

	rice := mustItem(t, ctx, eng, "Rice")
	mustEntry(t, ctx, eng, models.StageRawMaterial, rice.ID, "10", "1")
	if _, err := eng.RecordMovement(ctx, models.NewMovement{Stage: 1, ItemId: rice.ID, Kind: "exit", Quantity: "10"}); err != nil {
		t.Fatalf("RecordMovement exit: %v", err)
	}

	_, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: rice.ID, Quantity: dec("10")})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	balance, err := eng.CurrentBalance(ctx, models.StageRawMaterial, rice.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand", balance.OnHand, "0")
	assertDecimal(t, "valuation", balance.Valuation, "0")
}

func TestConsumeIsCappedAtOnHand(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-onhand-cap")

	beans := mustItem(t, ctx, eng, "Beans")
	mustEntry(t, ctx, eng, models.StageRawMaterial, beans.ID, "10", "2")
	// an exit row that never drew on the layers, as older ledgers may hold
	_, err := models.InsertMovement(ctx, eng.DB(), &models.ParsedMovement{
		Stage:  models.StageRawMaterial,
		ItemId: beans.ID,
		Kind:   models.MovementKindExit,
		Qty:    dec("4"),
	}, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("InsertMovement: %v", err)
	}

	_, err = eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: beans.ID, Quantity: dec("8")})
	var shortage *models.InsufficientStockError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	assertDecimal(t, "missing", shortage.Missing, "2")

	res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: beans.ID, Quantity: dec("6")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "cost", res.TotalCost, "12")
	balance, err := eng.CurrentBalance(ctx, models.StageRawMaterial, beans.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand", balance.OnHand, "0")
}
