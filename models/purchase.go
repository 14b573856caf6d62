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
)

// Purchase is the document header of a stock receipt. Its lines are the ENTRY
// movements that carry its id.
type Purchase struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"size:64;index;not null" json:"business_id"`
	SupplierName   string          `gorm:"size:100" json:"supplier_name"`
	DocumentNumber string          `gorm:"size:64;index" json:"document_number"`
	PurchaseDate   time.Time       `gorm:"not null" json:"purchase_date"`
	Stage          InventoryStage  `gorm:"not null" json:"stage"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_amount"`
	PostingId      int             `gorm:"not null;default:0" json:"posting_id"`
	CreatedBy      int             `gorm:"not null;default:0" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseLine struct {
	ItemId   int
	Quantity string
	UnitCost string
}

type NewPurchase struct {
	SupplierName   string
	DocumentNumber string
	Date           time.Time
	Stage          int
	Lines          []NewPurchaseLine
}

// Validate parses every line into ENTRY movements and returns them with the document total.
func (input *NewPurchase) Validate() ([]*ParsedMovement, decimal.Decimal, error) {
	if len(input.Lines) == 0 {
		return nil, decimal.Zero, invalidArgument("purchase needs at least one line")
	}
	reference := strings.TrimSpace(input.DocumentNumber)
	total := decimal.Zero
	parsed := make([]*ParsedMovement, 0, len(input.Lines))
	for i, line := range input.Lines {
		nm := NewMovement{
			Stage:     input.Stage,
			ItemId:    line.ItemId,
			Kind:      string(MovementKindEntry),
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
			Reference: reference,
		}
		m, err := nm.Parse()
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("line %d: %w", i+1, err)
		}
		total = total.Add(m.Qty.Mul(m.UnitCost))
		parsed = append(parsed, m)
	}
	return parsed, total.Round(quantityPlaces), nil
}

func CreatePurchaseHeader(ctx context.Context, tx *gorm.DB, input *NewPurchase, total decimal.Decimal) (*Purchase, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	purchase := Purchase{
		BusinessId:     businessId,
		SupplierName:   strings.TrimSpace(input.SupplierName),
		DocumentNumber: strings.TrimSpace(input.DocumentNumber),
		PurchaseDate:   date.UTC(),
		Stage:          InventoryStage(input.Stage),
		TotalAmount:    total,
		CreatedBy:      utils.GetActorFromContext(ctx),
	}
	if err := tx.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}
	return &purchase, nil
}

func GetPurchase(ctx context.Context, tx *gorm.DB, id int) (*Purchase, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var purchase Purchase
	err = tx.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).Take(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("purchase id=%d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	return &purchase, nil
}

func GetPurchaseMovements(ctx context.Context, tx *gorm.DB, purchaseId int) ([]*StockMovement, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*StockMovement
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND purchase_id = ?", businessId, purchaseId).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load purchase movements: %w", err)
	}
	return rows, nil
}

// DeletePurchaseCascade removes the header and its movements.
func DeletePurchaseCascade(ctx context.Context, tx *gorm.DB, purchase *Purchase) error {
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND purchase_id = ?", purchase.BusinessId, purchase.ID).
		Delete(&StockMovement{}).Error; err != nil {
		return fmt.Errorf("delete purchase movements: %w", err)
	}
	if err := tx.WithContext(ctx).Delete(purchase).Error; err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return nil
}
