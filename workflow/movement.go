package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrOpeningStockConsumed = errors.New("opening stock has already been consumed")

// RecordMovement appends one validated row to the ledger. An EXIT is drawn from the
// cost layers in FIFO order like Consume, and is refused when the stock is short;
// its unit cost is the blended layer cost, any supplied cost is ignored.
func (e *Engine) RecordMovement(ctx context.Context, input models.NewMovement) (*models.StockMovement, error) {
	parsed, err := input.Parse()
	if err != nil {
		return nil, err
	}
	if parsed.Kind == models.MovementKindExit {
		businessId, err := utils.RequireBusinessId(ctx)
		if err != nil {
			return nil, err
		}
		release, err := e.locker.Obtain(ctx, stockLockKey(businessId, int(parsed.Stage), parsed.ItemId))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var row *models.StockMovement
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := models.GetItem(ctx, tx, parsed.ItemId); err != nil {
			return err
		}
		var err error
		if parsed.Kind == models.MovementKindExit {
			_, row, err = e.consumeTx(ctx, tx, ConsumeInput{
				Stage:     parsed.Stage,
				ItemId:    parsed.ItemId,
				Quantity:  parsed.Qty,
				Reference: parsed.Reference,
			}, ShortageReject)
			return err
		}
		row, err = models.InsertMovement(ctx, tx, parsed, e.now())
		return err
	})
	if err != nil {
		var shortage *models.InsufficientStockError
		if !errors.Is(err, models.ErrRecordNotFound) && !errors.As(err, &shortage) {
			config.LogError(e.logger, "WorkflowMovement", "RecordMovement", "append movement", input, err)
		}
		return nil, err
	}
	return row, nil
}

func (e *Engine) ListMovements(ctx context.Context, filter models.MovementFilter) ([]*models.StockMovement, error) {
	if filter.Stage != 0 && !filter.Stage.IsValid() {
		return nil, fmt.Errorf("%w: stage %d is not 1, 2 or 3", models.ErrInvalidArgument, filter.Stage)
	}
	return models.ListMovements(ctx, e.db, filter)
}

type NewOpeningStock struct {
	Stage    int
	ItemId   int
	Quantity string
	UnitCost string
	AsOf     time.Time
}

// SetOpeningStock creates or replaces the opening balance of an item in a stage.
// Replacing is refused once any of it has been consumed.
func (e *Engine) SetOpeningStock(ctx context.Context, input NewOpeningStock) (*models.OpeningStock, error) {
	stage, err := models.ParseInventoryStage(input.Stage)
	if err != nil {
		return nil, err
	}
	qty, err := models.ParseQuantity(input.Quantity)
	if err != nil {
		return nil, err
	}
	cost := decimal.Zero
	if input.UnitCost != "" {
		if cost, err = models.ParseUnitCost(input.UnitCost); err != nil {
			return nil, err
		}
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = e.now()
	}

	release, err := e.locker.Obtain(ctx, stockLockKey(businessId, int(stage), input.ItemId))
	if err != nil {
		return nil, err
	}
	defer release()

	var opening *models.OpeningStock
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := models.GetItem(ctx, tx, input.ItemId); err != nil {
			return err
		}
		existing, err := models.GetOpeningStock(ctx, tx, stage, input.ItemId)
		if err != nil {
			return err
		}
		if existing == nil {
			opening = &models.OpeningStock{
				BusinessId:   businessId,
				Stage:        stage,
				ItemId:       input.ItemId,
				Qty:          qty,
				RemainingQty: qty,
				UnitCost:     cost,
				AsOf:         asOf.UTC(),
				CreatedBy:    utils.GetActorFromContext(ctx),
			}
			if err := tx.WithContext(ctx).Create(opening).Error; err != nil {
				return fmt.Errorf("create opening stock: %w", err)
			}
			return nil
		}
		if !existing.RemainingQty.Equal(existing.Qty) {
			return fmt.Errorf("%w: stage=%d item_id=%d", ErrOpeningStockConsumed, stage, input.ItemId)
		}
		existing.Qty = qty
		existing.RemainingQty = qty
		existing.UnitCost = cost
		existing.AsOf = asOf.UTC()
		if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
			return fmt.Errorf("update opening stock: %w", err)
		}
		opening = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return opening, nil
}
