package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	quantityPlaces = 4
	unitCostPlaces = 8
)

// StockMovement is one ledger row. Qty is the recorded quantity and never changes;
// RemainingQty is the open balance of an ENTRY layer and only FIFO consumption lowers it.
type StockMovement struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"size:64;not null;index:idx_stock_movements_layer,priority:1" json:"business_id"`
	Stage        InventoryStage  `gorm:"not null;index:idx_stock_movements_layer,priority:2" json:"stage"`
	ItemId       int             `gorm:"not null;index:idx_stock_movements_layer,priority:3" json:"item_id"`
	MovedAt      time.Time       `gorm:"not null;index:idx_stock_movements_layer,priority:4" json:"moved_at"`
	Kind         MovementKind    `gorm:"size:16;not null" json:"kind"`
	Qty          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	RemainingQty decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"remaining_qty"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"unit_cost"`
	Reference    string          `gorm:"size:255" json:"reference"`
	PurchaseId   *int            `gorm:"index" json:"purchase_id,omitempty"`
	CreatedBy    int             `gorm:"not null;default:0" json:"created_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// OpeningStock is the initial balance of an item in a stage. FIFO consumes it before
// any ENTRY movement.
type OpeningStock struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"size:64;not null;uniqueIndex:idx_opening_stocks_key,priority:1" json:"business_id"`
	Stage        InventoryStage  `gorm:"not null;uniqueIndex:idx_opening_stocks_key,priority:2" json:"stage"`
	ItemId       int             `gorm:"not null;uniqueIndex:idx_opening_stocks_key,priority:3" json:"item_id"`
	Qty          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	RemainingQty decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"remaining_qty"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"unit_cost"`
	AsOf         time.Time       `gorm:"not null" json:"as_of"`
	CreatedBy    int             `gorm:"not null;default:0" json:"created_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CostLayer is an open FIFO lot, either the opening stock or an ENTRY movement.
type CostLayer struct {
	Source       LayerSource
	Id           int
	MovedAt      time.Time
	RemainingQty decimal.Decimal
	UnitCost     decimal.Decimal
}

// NewMovement is the unparsed input of a ledger append.
type NewMovement struct {
	Stage      int
	ItemId     int
	Kind       string
	Quantity   string
	UnitCost   string
	Reference  string
	PurchaseId *int
}

type ParsedMovement struct {
	Stage      InventoryStage
	ItemId     int
	Kind       MovementKind
	Qty        decimal.Decimal
	UnitCost   decimal.Decimal
	Reference  string
	PurchaseId *int
}

func (input *NewMovement) Parse() (*ParsedMovement, error) {
	stage, err := ParseInventoryStage(input.Stage)
	if err != nil {
		return nil, err
	}
	if input.ItemId <= 0 {
		return nil, invalidArgument("item id is required")
	}
	kind, err := ParseMovementKind(input.Kind)
	if err != nil {
		return nil, err
	}
	qty, err := ParseQuantity(input.Quantity)
	if err != nil {
		return nil, err
	}
	cost := decimal.Zero
	if strings.TrimSpace(input.UnitCost) != "" {
		if cost, err = ParseUnitCost(input.UnitCost); err != nil {
			return nil, err
		}
	}
	return &ParsedMovement{
		Stage:      stage,
		ItemId:     input.ItemId,
		Kind:       kind,
		Qty:        qty,
		UnitCost:   cost,
		Reference:  strings.TrimSpace(input.Reference),
		PurchaseId: input.PurchaseId,
	}, nil
}

// ParseQuantity accepts positive decimals the ledger can store exactly.
func ParseQuantity(s string) (decimal.Decimal, error) {
	qty, err := utils.ParsePositiveDecimal("quantity", s)
	if err != nil {
		return decimal.Zero, invalidArgument("%v", err)
	}
	if !qty.Equal(qty.Round(quantityPlaces)) {
		return decimal.Zero, invalidArgument("quantity %s has more than %d decimal places", s, quantityPlaces)
	}
	return qty, nil
}

// ParseUnitCost accepts zero or positive decimals the ledger can store exactly.
func ParseUnitCost(s string) (decimal.Decimal, error) {
	cost, err := utils.ParseDecimal(s)
	if err != nil {
		return decimal.Zero, invalidArgument("unit cost: %v", err)
	}
	if cost.IsNegative() {
		return decimal.Zero, invalidArgument("unit cost cannot be negative")
	}
	if !cost.Equal(cost.Round(unitCostPlaces)) {
		return decimal.Zero, invalidArgument("unit cost %s has more than %d decimal places", s, unitCostPlaces)
	}
	return cost, nil
}

// RoundUnitCost rounds a computed cost to what the ledger stores.
func RoundUnitCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(unitCostPlaces)
}

// InsertMovement appends m to the ledger. ENTRY rows open a layer for their full quantity.
func InsertMovement(ctx context.Context, tx *gorm.DB, m *ParsedMovement, movedAt time.Time) (*StockMovement, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	remaining := decimal.Zero
	if m.Kind == MovementKindEntry {
		remaining = m.Qty
	}
	row := StockMovement{
		BusinessId:   businessId,
		Stage:        m.Stage,
		ItemId:       m.ItemId,
		MovedAt:      movedAt.UTC(),
		Kind:         m.Kind,
		Qty:          m.Qty,
		RemainingQty: remaining,
		UnitCost:     m.UnitCost,
		Reference:    m.Reference,
		PurchaseId:   m.PurchaseId,
		CreatedBy:    utils.GetActorFromContext(ctx),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert stock movement: %w", err)
	}
	return &row, nil
}

func GetOpeningStock(ctx context.Context, tx *gorm.DB, stage InventoryStage, itemId int) (*OpeningStock, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var opening OpeningStock
	err = tx.WithContext(ctx).
		Where("business_id = ? AND stage = ? AND item_id = ?", businessId, stage, itemId).
		Take(&opening).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load opening stock: %w", err)
	}
	return &opening, nil
}

// LoadOpenLayers returns the FIFO queue for (stage, item): opening stock first, then
// ENTRY movements by moved_at and id. forUpdate row-locks the layers where the
// dialect supports it.
func LoadOpenLayers(ctx context.Context, tx *gorm.DB, stage InventoryStage, itemId int, forUpdate bool) ([]CostLayer, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	q := func() *gorm.DB {
		db := tx.WithContext(ctx)
		if forUpdate {
			db = db.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return db
	}

	var layers []CostLayer

	var openings []OpeningStock
	err = q().Where("business_id = ? AND stage = ? AND item_id = ? AND remaining_qty > 0", businessId, stage, itemId).
		Find(&openings).Error
	if err != nil {
		return nil, fmt.Errorf("load opening layer: %w", err)
	}
	for _, o := range openings {
		layers = append(layers, CostLayer{
			Source:       LayerSourceOpening,
			Id:           o.ID,
			MovedAt:      o.AsOf,
			RemainingQty: o.RemainingQty,
			UnitCost:     o.UnitCost,
		})
	}

	var entries []StockMovement
	err = q().Where("business_id = ? AND stage = ? AND item_id = ? AND kind = ? AND remaining_qty > 0",
		businessId, stage, itemId, MovementKindEntry).
		Order("moved_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load entry layers: %w", err)
	}
	for _, e := range entries {
		layers = append(layers, CostLayer{
			Source:       LayerSourceMovement,
			Id:           e.ID,
			MovedAt:      e.MovedAt,
			RemainingQty: e.RemainingQty,
			UnitCost:     e.UnitCost,
		})
	}
	return layers, nil
}

// SetLayerRemaining persists a layer's new open balance. The update only applies while
// the stored balance still covers what was consumed.
func SetLayerRemaining(ctx context.Context, tx *gorm.DB, layer CostLayer, used decimal.Decimal) error {
	var model any = &StockMovement{}
	if layer.Source == LayerSourceOpening {
		model = &OpeningStock{}
	}
	res := tx.WithContext(ctx).Model(model).
		Where("id = ? AND remaining_qty >= ?", layer.Id, used).
		Update("remaining_qty", layer.RemainingQty.Sub(used))
	if res.Error != nil {
		return fmt.Errorf("decrement layer %s:%d: %w", layer.Source, layer.Id, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("decrement layer %s:%d: layer changed concurrently", layer.Source, layer.Id)
	}
	return nil
}

type MovementFilter struct {
	Stage  InventoryStage
	ItemId int
	Kind   MovementKind
	Limit  int
	Offset int
}

// ListMovements returns ledger rows newest first.
func ListMovements(ctx context.Context, tx *gorm.DB, filter MovementFilter) ([]*StockMovement, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	q := tx.WithContext(ctx).Where("business_id = ?", businessId)
	if filter.Stage != 0 {
		q = q.Where("stage = ?", filter.Stage)
	}
	if filter.ItemId > 0 {
		q = q.Where("item_id = ?", filter.ItemId)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var rows []*StockMovement
	if err := q.Order("moved_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return rows, nil
}

// StockKey is one (stage, item) partition of the ledger.
type StockKey struct {
	Stage  InventoryStage
	ItemId int
}

// ListStockKeys returns every (stage, item) with opening stock or movements.
func ListStockKeys(ctx context.Context, tx *gorm.DB, stage InventoryStage) ([]StockKey, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[StockKey]bool{}
	var keys []StockKey
	for _, model := range []any{&StockMovement{}, &OpeningStock{}} {
		var rows []StockKey
		q := tx.WithContext(ctx).Model(model).Distinct("stage", "item_id").Where("business_id = ?", businessId)
		if stage != 0 {
			q = q.Where("stage = ?", stage)
		}
		if err := q.Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("list stock keys: %w", err)
		}
		for _, k := range rows {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}
