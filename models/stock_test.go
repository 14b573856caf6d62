package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/shopspring/decimal"
)

func TestNewMovementParse(t *testing.T) {
	ok := models.NewMovement{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "2.5", UnitCost: "0.12345678", Reference: " PO-1 "}
	m, err := ok.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Kind != models.MovementKindEntry || m.Stage != models.StageRawMaterial || m.Reference != "PO-1" {
		t.Fatalf("unexpected parse %+v", m)
	}
	if !m.Qty.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("qty = %s", m.Qty)
	}

	bad := []models.NewMovement{
		{Stage: 4, ItemId: 3, Kind: "entry", Quantity: "1"},
		{Stage: 1, ItemId: 0, Kind: "entry", Quantity: "1"},
		{Stage: 1, ItemId: 3, Kind: "transfer", Quantity: "1"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "ten"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "0"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "-3"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "1.00001"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "1", UnitCost: "abc"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "1", UnitCost: "-0.5"},
		{Stage: 1, ItemId: 3, Kind: "entry", Quantity: "1", UnitCost: "0.123456789"},
	}
	for i, in := range bad {
		if _, err := in.Parse(); !errors.Is(err, models.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestLoadOpenLayersOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-layers")

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	insert := func(kind models.MovementKind, qty int64, cost int64, at time.Time) *models.StockMovement {
		row, err := models.InsertMovement(ctx, db, &models.ParsedMovement{
			Stage: models.StageRawMaterial, ItemId: 1, Kind: kind,
			Qty: decimal.NewFromInt(qty), UnitCost: decimal.NewFromInt(cost),
		}, at)
		if err != nil {
			t.Fatalf("InsertMovement: %v", err)
		}
		return row
	}
	late := insert(models.MovementKindEntry, 5, 3, base.Add(2*time.Hour))
	early := insert(models.MovementKindEntry, 5, 1, base)
	tie := insert(models.MovementKindEntry, 5, 2, base)
	insert(models.MovementKindExit, 4, 0, base.Add(time.Hour))
	insert(models.MovementKindAdjustment, 1, 0, base.Add(time.Hour))

	opening := models.OpeningStock{
		BusinessId: "biz-layers", Stage: models.StageRawMaterial, ItemId: 1,
		Qty: decimal.NewFromInt(2), RemainingQty: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(9),
		AsOf: base.Add(5 * time.Hour),
	}
	if err := db.WithContext(ctx).Create(&opening).Error; err != nil {
		t.Fatalf("create opening: %v", err)
	}

	layers, err := models.LoadOpenLayers(ctx, db, models.StageRawMaterial, 1, true)
	if err != nil {
		t.Fatalf("LoadOpenLayers: %v", err)
	}
	if len(layers) != 4 {
		t.Fatalf("expected 4 layers, got %d", len(layers))
	}
	if layers[0].Source != models.LayerSourceOpening {
		t.Fatalf("opening stock must be consumed first")
	}
	wantIds := []int{early.ID, tie.ID, late.ID}
	for i, id := range wantIds {
		if layers[i+1].Id != id {
			t.Fatalf("layer %d id=%d want %d", i+1, layers[i+1].Id, id)
		}
	}
}

func TestListMovementsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-list")

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := models.InsertMovement(ctx, db, &models.ParsedMovement{
			Stage: models.StageFinishedGood, ItemId: 2, Kind: models.MovementKindEntry,
			Qty: decimal.NewFromInt(int64(i + 1)), UnitCost: decimal.NewFromInt(1),
		}, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("InsertMovement: %v", err)
		}
	}
	rows, err := models.ListMovements(ctx, db, models.MovementFilter{Stage: models.StageFinishedGood, ItemId: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(rows) != 2 || !rows[0].Qty.Equal(decimal.NewFromInt(3)) || !rows[1].Qty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected order %+v", rows)
	}
	if rows[0].CreatedBy != 1 {
		t.Fatalf("actor not recorded")
	}
}

func TestDeleteItemInUse(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-item")

	used, err := models.CreateItem(ctx, db, &models.NewItem{Name: "Sugar"}, 1, 2)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !used.NetContent.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("default net content = %s", used.NetContent)
	}
	unused, err := models.CreateItem(ctx, db, &models.NewItem{Name: "Salt", NetContent: "0.5"}, 1, 3)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	_, err = models.InsertMovement(ctx, db, &models.ParsedMovement{
		Stage: models.StageRawMaterial, ItemId: used.ID, Kind: models.MovementKindEntry,
		Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(1),
	}, time.Now())
	if err != nil {
		t.Fatalf("InsertMovement: %v", err)
	}

	if err := models.DeleteItem(ctx, db, used.ID); !errors.Is(err, models.ErrItemInUse) {
		t.Fatalf("expected ErrItemInUse, got %v", err)
	}
	if err := models.DeleteItem(ctx, db, unused.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := models.GetItem(ctx, db, unused.ID); !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("deleted item still readable: %v", err)
	}

	if _, err := models.CreateItem(ctx, db, &models.NewItem{Name: "  "}, 1, 2); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
