package workflow_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/xuri/excelize/v2"
)

func TestCurrentBalanceValuesRemainingLayers(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-balance")

	cocoa := mustItem(t, ctx, eng, "Cocoa")
	mustEntry(t, ctx, eng, models.StageRawMaterial, cocoa.ID, "50", "2")
	mustEntry(t, ctx, eng, models.StageRawMaterial, cocoa.ID, "30", "3")
	res, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: cocoa.ID, Quantity: dec("60")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "consumption cost", res.TotalCost, "130")

	balance, err := eng.CurrentBalance(ctx, models.StageRawMaterial, cocoa.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand", balance.OnHand, "20")
	assertDecimal(t, "valuation", balance.Valuation, "60")

	other, err := eng.CurrentBalance(ctx, models.StageFinishedGood, cocoa.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "empty stage", other.OnHand, "0")
	assertDecimal(t, "empty valuation", other.Valuation, "0")
}

func TestCurrentBalanceIgnoresAuditRowsAndCostsRecordedExits(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-balance-kinds")

	milk := mustItem(t, ctx, eng, "Milk")
	entry := mustEntry(t, ctx, eng, models.StageRawMaterial, milk.ID, "10", "1")
	if _, err := eng.RecordMovement(ctx, models.NewMovement{Stage: 1, ItemId: milk.ID, Kind: "ADJUSTMENT", Quantity: "4"}); err != nil {
		t.Fatalf("RecordMovement adjustment: %v", err)
	}
	exit, err := eng.RecordMovement(ctx, models.NewMovement{Stage: 1, ItemId: milk.ID, Kind: "exit", Quantity: "4", UnitCost: "99"})
	if err != nil {
		t.Fatalf("RecordMovement exit: %v", err)
	}
	if exit.Kind != models.MovementKindExit {
		t.Fatalf("unexpected exit row %+v", exit)
	}
	assertDecimal(t, "exit cost comes from the layer", exit.UnitCost, "1")

	balance, err := eng.CurrentBalance(ctx, models.StageRawMaterial, milk.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand", balance.OnHand, "6")
	assertDecimal(t, "valuation", balance.Valuation, "6")

	rows, err := eng.ListMovements(ctx, models.MovementFilter{Stage: models.StageRawMaterial, ItemId: milk.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	for _, r := range rows {
		if r.ID == entry.ID {
			assertDecimal(t, "layer remaining", r.RemainingQty, "6")
		}
	}

	// an exit past what is on hand is refused and changes nothing
	_, err = eng.RecordMovement(ctx, models.NewMovement{Stage: 1, ItemId: milk.ID, Kind: "EXIT", Quantity: "8"})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	balance, err = eng.CurrentBalance(ctx, models.StageRawMaterial, milk.ID)
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	assertDecimal(t, "on hand after refused exit", balance.OnHand, "6")
}

func TestStageBalancesAndValuationExport(t *testing.T) {
	eng := newTestEngine(t, workflow.ShortageReject)
	ctx := tenantCtx("biz-export")

	cocoa := mustItem(t, ctx, eng, "Cocoa")
	bar := mustItem(t, ctx, eng, "Chocolate Bar")
	mustEntry(t, ctx, eng, models.StageRawMaterial, cocoa.ID, "50", "2")
	mustEntry(t, ctx, eng, models.StageRawMaterial, cocoa.ID, "30", "3")
	if _, err := eng.Consume(ctx, workflow.ConsumeInput{Stage: models.StageRawMaterial, ItemId: cocoa.ID, Quantity: dec("60")}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	mustEntry(t, ctx, eng, models.StageFinishedGood, bar.ID, "4", "2.5")

	balances, err := eng.StageBalances(ctx, 0)
	if err != nil {
		t.Fatalf("StageBalances: %v", err)
	}
	if len(balances) != 2 || balances[0].Stage != models.StageRawMaterial || balances[1].Stage != models.StageFinishedGood {
		t.Fatalf("unexpected balances %+v", balances)
	}
	raw, err := eng.StageBalances(ctx, models.StageRawMaterial)
	if err != nil || len(raw) != 1 {
		t.Fatalf("StageBalances(raw) = %d, %v", len(raw), err)
	}

	var buf bytes.Buffer
	if err := eng.ExportStockValuation(ctx, &buf); err != nil {
		t.Fatalf("ExportStockValuation: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 3 || sheets[0] != "Raw Material" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	expect := map[string]string{"B2": "Cocoa", "C2": "20", "D2": "60", "B3": "Total", "D3": "60"}
	for cell, want := range expect {
		got, err := f.GetCellValue("Raw Material", cell)
		if err != nil {
			t.Fatalf("GetCellValue %s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("Raw Material!%s = %q, want %q", cell, got, want)
		}
	}
	if got, _ := f.GetCellValue("Finished Good", "D2"); got != "10" {
		t.Fatalf("Finished Good!D2 = %q, want 10", got)
	}
	if got, _ := f.GetCellValue("In Process", "B2"); got != "Total" {
		t.Fatalf("In Process!B2 = %q, want Total", got)
	}
}
