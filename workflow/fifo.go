package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type ConsumeInput struct {
	Stage     models.InventoryStage
	ItemId    int
	Quantity  decimal.Decimal
	Reference string
}

// LayerAllocation is the part of one cost layer a consumption used.
type LayerAllocation struct {
	Source   models.LayerSource `json:"source"`
	LayerId  int                `json:"layer_id"`
	Qty      decimal.Decimal    `json:"qty"`
	UnitCost decimal.Decimal    `json:"unit_cost"`
	Cost     decimal.Decimal    `json:"cost"`
}

type ConsumeResult struct {
	TotalCost   decimal.Decimal `json:"total_cost"`
	ConsumedQty decimal.Decimal `json:"consumed_qty"`
	// Shortfall is only non-zero under the partial shortage policy.
	Shortfall      decimal.Decimal   `json:"shortfall"`
	UnitCost       decimal.Decimal   `json:"unit_cost"`
	ExitMovementId int               `json:"exit_movement_id"`
	Allocations    []LayerAllocation `json:"allocations"`
}

func (input *ConsumeInput) validate() error {
	if !input.Stage.IsValid() {
		return fmt.Errorf("%w: stage %d is not 1, 2 or 3", models.ErrInvalidArgument, input.Stage)
	}
	if input.ItemId <= 0 {
		return fmt.Errorf("%w: item id is required", models.ErrInvalidArgument)
	}
	if !input.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero", models.ErrInvalidArgument)
	}
	if !input.Quantity.Equal(input.Quantity.Round(4)) {
		return fmt.Errorf("%w: quantity %s has more than 4 decimal places", models.ErrInvalidArgument, input.Quantity)
	}
	return nil
}

// Consume draws quantity out of the item's cost layers in FIFO order, records the
// EXIT movement at the blended cost and returns what it cost. Concurrent consumptions
// of the same (stage, item) are serialized.
func (e *Engine) Consume(ctx context.Context, input ConsumeInput) (*ConsumeResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "workflow.Consume", trace.WithAttributes(
		attribute.String("business_id", businessId),
		attribute.Int("stage", int(input.Stage)),
		attribute.Int("item_id", input.ItemId),
		attribute.String("quantity", input.Quantity.String()),
	))
	defer span.End()

	release, err := e.locker.Obtain(ctx, stockLockKey(businessId, int(input.Stage), input.ItemId))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer release()

	var result *ConsumeResult
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := models.GetItem(ctx, tx, input.ItemId); err != nil {
			return err
		}
		var err error
		result, err = e.ConsumeTx(ctx, tx, input)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logConsumeError(input, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("total_cost", result.TotalCost.String()))
	return result, nil
}

// ConsumeTx runs the FIFO walk inside a caller's transaction. The caller must hold
// the stock lock for (stage, item).
func (e *Engine) ConsumeTx(ctx context.Context, tx *gorm.DB, input ConsumeInput) (*ConsumeResult, error) {
	result, _, err := e.consumeTx(ctx, tx, input, e.policy)
	return result, err
}

// consumeTx never draws more than is on hand, even when older ledger rows left
// layers open past it.
func (e *Engine) consumeTx(ctx context.Context, tx *gorm.DB, input ConsumeInput, policy ShortagePolicy) (*ConsumeResult, *models.StockMovement, error) {
	layers, err := models.LoadOpenLayers(ctx, tx, input.Stage, input.ItemId, true)
	if err != nil {
		return nil, nil, err
	}
	onHand, err := onHandTx(ctx, tx, input.Stage, input.ItemId)
	if err != nil {
		return nil, nil, err
	}

	available := decimal.Zero
	for _, layer := range layers {
		available = available.Add(layer.RemainingQty)
	}
	available = decimal.Max(decimal.Zero, decimal.Min(available, onHand))
	if available.LessThan(input.Quantity) && policy == ShortageReject {
		return nil, nil, &models.InsufficientStockError{
			ItemId:    input.ItemId,
			Stage:     input.Stage,
			Requested: input.Quantity,
			Missing:   input.Quantity.Sub(available),
		}
	}

	result := &ConsumeResult{
		TotalCost:   decimal.Zero,
		ConsumedQty: decimal.Zero,
		Shortfall:   decimal.Zero,
		UnitCost:    decimal.Zero,
	}
	needed := decimal.Min(input.Quantity, available)
	for _, layer := range layers {
		if !needed.IsPositive() {
			break
		}
		take := decimal.Min(needed, layer.RemainingQty)
		if err := models.SetLayerRemaining(ctx, tx, layer, take); err != nil {
			return nil, nil, err
		}
		cost := take.Mul(layer.UnitCost)
		result.Allocations = append(result.Allocations, LayerAllocation{
			Source:   layer.Source,
			LayerId:  layer.Id,
			Qty:      take,
			UnitCost: layer.UnitCost,
			Cost:     cost,
		})
		result.TotalCost = result.TotalCost.Add(cost)
		result.ConsumedQty = result.ConsumedQty.Add(take)
		needed = needed.Sub(take)
	}
	result.Shortfall = input.Quantity.Sub(result.ConsumedQty)

	if result.ConsumedQty.IsZero() {
		return result, nil, nil
	}
	result.UnitCost = models.RoundUnitCost(result.TotalCost.Div(result.ConsumedQty))

	exit, err := models.InsertMovement(ctx, tx, &models.ParsedMovement{
		Stage:     input.Stage,
		ItemId:    input.ItemId,
		Kind:      models.MovementKindExit,
		Qty:       result.ConsumedQty,
		UnitCost:  result.UnitCost,
		Reference: strings.TrimSpace(input.Reference),
	}, e.now())
	if err != nil {
		return nil, nil, err
	}
	result.ExitMovementId = exit.ID

	fields := logrus.Fields{
		"stage":        int(input.Stage),
		"item_id":      input.ItemId,
		"consumed_qty": result.ConsumedQty.String(),
		"total_cost":   result.TotalCost.String(),
	}
	if result.Shortfall.IsPositive() {
		fields["shortfall"] = result.Shortfall.String()
		e.logger.WithFields(fields).Warn("fifo consumption short of stock")
	} else {
		e.logger.WithFields(fields).Debug("fifo consumption")
	}
	return result, exit, nil
}

func (e *Engine) logConsumeError(input ConsumeInput, err error) {
	var shortage *models.InsufficientStockError
	if errors.As(err, &shortage) || errors.Is(err, models.ErrRecordNotFound) {
		e.logger.WithFields(logrus.Fields{
			"stage":   int(input.Stage),
			"item_id": input.ItemId,
		}).Warn(err.Error())
		return
	}
	config.LogError(e.logger, "WorkflowFifo", "Consume", "consume stock layers", input, err)
}
