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

type NewProductionStart struct {
	ItemId    int
	Quantity  string
	Reference string
}

type ProductionInput struct {
	ItemId   int
	Quantity string
}

type NewProductionClose struct {
	Inputs         []ProductionInput
	OutputItemId   int
	OutputQuantity string
	Reference      string
}

type ProductionResult struct {
	Consumptions []*ConsumeResult      `json:"consumptions"`
	Entry        *models.StockMovement `json:"entry,omitempty"`
	TotalCost    decimal.Decimal       `json:"total_cost"`
	Posting      *models.Posting       `json:"posting,omitempty"`
}

// StartProduction moves raw material into process at its FIFO cost:
// EXIT from stage 1, ENTRY into stage 2, Dr work in process / Cr the item's account.
func (e *Engine) StartProduction(ctx context.Context, input NewProductionStart) (*ProductionResult, error) {
	if input.ItemId <= 0 {
		return nil, fmt.Errorf("%w: item id is required", models.ErrInvalidArgument)
	}
	qty, err := models.ParseQuantity(input.Quantity)
	if err != nil {
		return nil, err
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "workflow.StartProduction")
	defer span.End()

	release, err := obtainAll(ctx, e.locker, []string{
		stockLockKey(businessId, int(models.StageRawMaterial), input.ItemId),
		stockLockKey(businessId, int(models.StageInProcess), input.ItemId),
	})
	if err != nil {
		return nil, err
	}
	defer release()

	result := &ProductionResult{}
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
			Stage:     models.StageRawMaterial,
			ItemId:    item.ID,
			Quantity:  qty,
			Reference: input.Reference,
		})
		if err != nil {
			return err
		}
		result.Consumptions = []*ConsumeResult{consumed}
		result.TotalCost = consumed.TotalCost
		if consumed.ConsumedQty.IsZero() {
			return nil
		}

		result.Entry, err = models.InsertMovement(ctx, tx, &models.ParsedMovement{
			Stage:     models.StageInProcess,
			ItemId:    item.ID,
			Kind:      models.MovementKindEntry,
			Qty:       consumed.ConsumedQty,
			UnitCost:  consumed.UnitCost,
			Reference: strings.TrimSpace(input.Reference),
		}, e.now())
		if err != nil {
			return err
		}

		j := newJournal()
		j.debit(inventoryAccountFor(models.StageInProcess, item, sys), consumed.TotalCost)
		j.credit(inventoryAccountFor(models.StageRawMaterial, item, sys), consumed.TotalCost)
		result.Posting, err = j.post(ctx, tx, "Production start "+input.Reference, models.PostingReferenceProductionStart, result.Entry.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if !isClientError(err) {
			config.LogError(e.logger, "ProductionWorkflow.go", "StartProduction", "start production", input, err)
		}
		return nil, err
	}
	return result, nil
}

// CloseProduction consumes the in-process inputs and receives the output as finished
// goods valued at the sum of the input costs: Dr output item / Cr work in process.
func (e *Engine) CloseProduction(ctx context.Context, input NewProductionClose) (*ProductionResult, error) {
	if len(input.Inputs) == 0 {
		return nil, fmt.Errorf("%w: production needs at least one input", models.ErrInvalidArgument)
	}
	if input.OutputItemId <= 0 {
		return nil, fmt.Errorf("%w: output item id is required", models.ErrInvalidArgument)
	}
	outputQty, err := models.ParseQuantity(input.OutputQuantity)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	quantities := make([]decimal.Decimal, len(input.Inputs))
	for i, in := range input.Inputs {
		if in.ItemId <= 0 {
			return nil, fmt.Errorf("%w: input %d: item id is required", models.ErrInvalidArgument, i+1)
		}
		if quantities[i], err = models.ParseQuantity(in.Quantity); err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "workflow.CloseProduction")
	defer span.End()

	keys := []string{stockLockKey(businessId, int(models.StageFinishedGood), input.OutputItemId)}
	for _, in := range input.Inputs {
		keys = append(keys, stockLockKey(businessId, int(models.StageInProcess), in.ItemId))
	}
	release, err := obtainAll(ctx, e.locker, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &ProductionResult{TotalCost: decimal.Zero}
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		output, err := models.GetItem(ctx, tx, input.OutputItemId)
		if err != nil {
			return err
		}
		sys, err := models.GetSystemAccounts(ctx, tx)
		if err != nil {
			return err
		}
		for i, in := range input.Inputs {
			if _, err := models.GetItem(ctx, tx, in.ItemId); err != nil {
				return fmt.Errorf("input %d: %w", i+1, err)
			}
			consumed, err := e.ConsumeTx(ctx, tx, ConsumeInput{
				Stage:     models.StageInProcess,
				ItemId:    in.ItemId,
				Quantity:  quantities[i],
				Reference: input.Reference,
			})
			if err != nil {
				return err
			}
			result.Consumptions = append(result.Consumptions, consumed)
			result.TotalCost = result.TotalCost.Add(consumed.TotalCost)
		}

		result.Entry, err = models.InsertMovement(ctx, tx, &models.ParsedMovement{
			Stage:     models.StageFinishedGood,
			ItemId:    output.ID,
			Kind:      models.MovementKindEntry,
			Qty:       outputQty,
			UnitCost:  models.RoundUnitCost(result.TotalCost.Div(outputQty)),
			Reference: strings.TrimSpace(input.Reference),
		}, e.now())
		if err != nil {
			return err
		}

		j := newJournal()
		j.debit(inventoryAccountFor(models.StageFinishedGood, output, sys), result.TotalCost)
		j.credit(sys[models.AccountCodeWorkInProcess], result.TotalCost)
		result.Posting, err = j.post(ctx, tx, "Production close "+input.Reference, models.PostingReferenceProductionClose, result.Entry.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if !isClientError(err) {
			config.LogError(e.logger, "ProductionWorkflow.go", "CloseProduction", "close production", input, err)
		}
		return nil, err
	}
	return result, nil
}
