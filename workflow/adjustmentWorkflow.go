package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewAdjustment struct {
	Stage  int
	ItemId int
	// Delta is signed: positive adds a layer, negative consumes FIFO.
	Delta string
	// UnitCost prices a positive delta and is ignored otherwise.
	UnitCost string
	Reason   string
}

type AdjustmentResult struct {
	Audit       *models.StockMovement `json:"audit"`
	Entry       *models.StockMovement `json:"entry,omitempty"`
	Consumption *ConsumeResult        `json:"consumption,omitempty"`
	Posting     *models.Posting       `json:"posting,omitempty"`
}

// AdjustStock corrects a counted difference. The ADJUSTMENT row records the count
// change for audit; the stock itself moves through an ENTRY or a FIFO EXIT, posted
// against the inventory adjustment account.
func (e *Engine) AdjustStock(ctx context.Context, input NewAdjustment) (*AdjustmentResult, error) {
	stage, err := models.ParseInventoryStage(input.Stage)
	if err != nil {
		return nil, err
	}
	if input.ItemId <= 0 {
		return nil, fmt.Errorf("%w: item id is required", models.ErrInvalidArgument)
	}
	delta, err := utils.ParseDecimal(input.Delta)
	if err != nil {
		return nil, fmt.Errorf("%w: delta: %v", models.ErrInvalidArgument, err)
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: delta cannot be zero", models.ErrInvalidArgument)
	}
	qty, err := models.ParseQuantity(delta.Abs().String())
	if err != nil {
		return nil, err
	}
	cost := decimal.Zero
	if delta.IsPositive() && strings.TrimSpace(input.UnitCost) != "" {
		if cost, err = models.ParseUnitCost(input.UnitCost); err != nil {
			return nil, err
		}
	}
	reason := strings.TrimSpace(input.Reason)
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}

	release, err := e.locker.Obtain(ctx, stockLockKey(businessId, int(stage), input.ItemId))
	if err != nil {
		return nil, err
	}
	defer release()

	result := &AdjustmentResult{}
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		item, err := models.GetItem(ctx, tx, input.ItemId)
		if err != nil {
			return err
		}
		sys, err := models.GetSystemAccounts(ctx, tx)
		if err != nil {
			return err
		}
		now := e.now()

		result.Audit, err = models.InsertMovement(ctx, tx, &models.ParsedMovement{
			Stage:     stage,
			ItemId:    item.ID,
			Kind:      models.MovementKindAdjustment,
			Qty:       qty,
			UnitCost:  cost,
			Reference: reason,
		}, now)
		if err != nil {
			return err
		}

		j := newJournal()
		stockAccount := inventoryAccountFor(stage, item, sys)
		adjustmentAccount := sys[models.AccountCodeInventoryAdjustment]
		if delta.IsPositive() {
			result.Entry, err = models.InsertMovement(ctx, tx, &models.ParsedMovement{
				Stage:     stage,
				ItemId:    item.ID,
				Kind:      models.MovementKindEntry,
				Qty:       qty,
				UnitCost:  cost,
				Reference: reason,
			}, now)
			if err != nil {
				return err
			}
			value := qty.Mul(cost)
			j.debit(stockAccount, value)
			j.credit(adjustmentAccount, value)
		} else {
			result.Consumption, err = e.ConsumeTx(ctx, tx, ConsumeInput{
				Stage:     stage,
				ItemId:    item.ID,
				Quantity:  qty,
				Reference: reason,
			})
			if err != nil {
				return err
			}
			j.debit(adjustmentAccount, result.Consumption.TotalCost)
			j.credit(stockAccount, result.Consumption.TotalCost)
		}
		result.Posting, err = j.post(ctx, tx, "Stock adjustment "+reason, models.PostingReferenceAdjustment, result.Audit.ID)
		return err
	})
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "AdjustmentWorkflow.go", "AdjustStock", "adjust stock", input, err)
		}
		return nil, err
	}
	return result, nil
}
