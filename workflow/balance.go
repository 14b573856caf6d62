package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockBalance struct {
	Stage     models.InventoryStage `json:"stage"`
	ItemId    int                   `json:"item_id"`
	OnHand    decimal.Decimal       `json:"on_hand"`
	Valuation decimal.Decimal       `json:"valuation"`
}

// CurrentBalance reports the on-hand quantity of an item in a stage and its value.
func (e *Engine) CurrentBalance(ctx context.Context, stage models.InventoryStage, itemId int) (*StockBalance, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: stage %d is not 1, 2 or 3", models.ErrInvalidArgument, stage)
	}
	if _, err := models.GetItem(ctx, e.db, itemId); err != nil {
		return nil, err
	}
	return balanceTx(ctx, e.db, stage, itemId)
}

// StageBalances reports every item with stock history in stage, or in all stages if
// stage is 0, ordered by stage then item.
func (e *Engine) StageBalances(ctx context.Context, stage models.InventoryStage) ([]*StockBalance, error) {
	if stage != 0 && !stage.IsValid() {
		return nil, fmt.Errorf("%w: stage %d is not 1, 2 or 3", models.ErrInvalidArgument, stage)
	}
	keys, err := models.ListStockKeys(ctx, e.db, stage)
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Stage != keys[j].Stage {
			return keys[i].Stage < keys[j].Stage
		}
		return keys[i].ItemId < keys[j].ItemId
	})
	balances := make([]*StockBalance, 0, len(keys))
	for _, k := range keys {
		b, err := balanceTx(ctx, e.db, k.Stage, k.ItemId)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// onHandTx is opening + entries - exits. ADJUSTMENT rows are audit records and do
// not count.
func onHandTx(ctx context.Context, tx *gorm.DB, stage models.InventoryStage, itemId int) (decimal.Decimal, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	opening, err := models.GetOpeningStock(ctx, tx, stage, itemId)
	if err != nil {
		return decimal.Zero, err
	}
	onHand := decimal.Zero
	if opening != nil {
		onHand = opening.Qty
	}

	var totals []struct {
		Kind models.MovementKind
		Qty  decimal.Decimal
	}
	err = tx.WithContext(ctx).Model(&models.StockMovement{}).
		Select("kind, qty").
		Where("business_id = ? AND stage = ? AND item_id = ? AND kind IN ?",
			businessId, stage, itemId, []models.MovementKind{models.MovementKindEntry, models.MovementKindExit}).
		Scan(&totals).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum stock movements: %w", err)
	}
	for _, row := range totals {
		if row.Kind == models.MovementKindEntry {
			onHand = onHand.Add(row.Qty)
		} else {
			onHand = onHand.Sub(row.Qty)
		}
	}
	return onHand, nil
}

// balanceTx prices on hand at the newest open layers first. Valuation is zero when
// nothing is on hand.
func balanceTx(ctx context.Context, tx *gorm.DB, stage models.InventoryStage, itemId int) (*StockBalance, error) {
	onHand, err := onHandTx(ctx, tx, stage, itemId)
	if err != nil {
		return nil, err
	}

	balance := &StockBalance{Stage: stage, ItemId: itemId, OnHand: onHand, Valuation: decimal.Zero}
	if !onHand.IsPositive() {
		return balance, nil
	}

	layers, err := models.LoadOpenLayers(ctx, tx, stage, itemId, false)
	if err != nil {
		return nil, err
	}
	left := onHand
	for i := len(layers) - 1; i >= 0 && left.IsPositive(); i-- {
		take := decimal.Min(left, layers[i].RemainingQty)
		balance.Valuation = balance.Valuation.Add(take.Mul(layers[i].UnitCost))
		left = left.Sub(take)
	}
	balance.Valuation = balance.Valuation.Round(4)
	return balance, nil
}
