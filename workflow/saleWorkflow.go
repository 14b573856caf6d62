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

type NewSale struct {
	ItemId    int
	Quantity  string
	UnitPrice string
	Reference string
}

type SaleResult struct {
	Consumption *ConsumeResult  `json:"consumption"`
	Revenue     decimal.Decimal `json:"revenue"`
	Posting     *models.Posting `json:"posting,omitempty"`
}

// RegisterSale ships finished goods: FIFO consumption, then Dr receivable / Cr sales
// at the selling price and Dr cost of goods sold / Cr inventory at the FIFO cost.
func (e *Engine) RegisterSale(ctx context.Context, input NewSale) (*SaleResult, error) {
	if input.ItemId <= 0 {
		return nil, fmt.Errorf("%w: item id is required", models.ErrInvalidArgument)
	}
	qty, err := models.ParseQuantity(input.Quantity)
	if err != nil {
		return nil, err
	}
	price := decimal.Zero
	if strings.TrimSpace(input.UnitPrice) != "" {
		if price, err = models.ParseUnitCost(input.UnitPrice); err != nil {
			return nil, fmt.Errorf("unit price: %w", err)
		}
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "workflow.RegisterSale")
	defer span.End()

	release, err := e.locker.Obtain(ctx, stockLockKey(businessId, int(models.StageFinishedGood), input.ItemId))
	if err != nil {
		return nil, err
	}
	defer release()

	result := &SaleResult{}
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		item, err := models.GetItem(ctx, tx, input.ItemId)
		if err != nil {
			return err
		}
		sys, err := models.GetSystemAccounts(ctx, tx)
		if err != nil {
			return err
		}
		consumed, err := e.ConsumeTx(ctx, tx, ConsumeInput{
			Stage:     models.StageFinishedGood,
			ItemId:    item.ID,
			Quantity:  qty,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		result.Consumption = consumed
		// under the partial policy only what shipped is billed
		result.Revenue = consumed.ConsumedQty.Mul(price).Round(4)

		j := newJournal()
		j.debit(sys[models.AccountCodeAccountsReceivable], result.Revenue)
		j.credit(sys[models.AccountCodeSales], result.Revenue)
		j.debit(sys[models.AccountCodeCostOfGoodsSold], consumed.TotalCost)
		j.credit(inventoryAccountFor(models.StageFinishedGood, item, sys), consumed.TotalCost)
		result.Posting, err = j.post(ctx, tx, "Sale "+input.Reference, models.PostingReferenceSale, consumed.ExitMovementId)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if !isClientError(err) {
			config.LogError(e.logger, "SaleWorkflow.go", "RegisterSale", "register sale", input, err)
		}
		return nil, err
	}
	return result, nil
}
