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

type Item struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"size:64;index;not null" json:"business_id"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	NetContent decimal.Decimal `gorm:"type:decimal(20,4);not null;default:1" json:"net_content"`
	// tax flags are carried for the sales documents, the engine does not compute tax
	IsTaxable      *bool     `gorm:"not null;default:false" json:"is_taxable"`
	IsTaxInclusive *bool     `gorm:"not null;default:false" json:"is_tax_inclusive"`
	AccountId      int       `gorm:"index;not null" json:"account_id"`
	SubAccountId   int       `gorm:"index;not null" json:"sub_account_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name           string
	NetContent     string
	IsTaxable      bool
	IsTaxInclusive bool
	// ParentAccountId is the level 2 account the item's sub-account goes under, 0 for the default.
	ParentAccountId int
}

func (input *NewItem) Validate() (decimal.Decimal, error) {
	if strings.TrimSpace(input.Name) == "" {
		return decimal.Zero, invalidArgument("item name is required")
	}
	if strings.TrimSpace(input.NetContent) == "" {
		return decimal.NewFromInt(1), nil
	}
	netContent, err := utils.ParsePositiveDecimal("net_content", input.NetContent)
	if err != nil {
		return decimal.Zero, invalidArgument("%v", err)
	}
	return netContent, nil
}

// CreateItem stores the item against an already allocated sub-account.
func CreateItem(ctx context.Context, tx *gorm.DB, input *NewItem, accountId int, subAccountId int) (*Item, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	netContent, err := input.Validate()
	if err != nil {
		return nil, err
	}
	item := Item{
		BusinessId:     businessId,
		Name:           strings.TrimSpace(input.Name),
		NetContent:     netContent,
		IsTaxable:      &input.IsTaxable,
		IsTaxInclusive: &input.IsTaxInclusive,
		AccountId:      accountId,
		SubAccountId:   subAccountId,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

func GetItem(ctx context.Context, tx *gorm.DB, id int) (*Item, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var item Item
	err = tx.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item id=%d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	return &item, nil
}

func ListItems(ctx context.Context, tx *gorm.DB) ([]*Item, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var items []*Item
	if err := tx.WithContext(ctx).Where("business_id = ?", businessId).Order("name ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

type UpdateItemInput struct {
	Name           string
	NetContent     string
	IsTaxable      bool
	IsTaxInclusive bool
}

func UpdateItem(ctx context.Context, tx *gorm.DB, id int, input *UpdateItemInput) (*Item, error) {
	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	check := NewItem{Name: input.Name, NetContent: input.NetContent}
	netContent, err := check.Validate()
	if err != nil {
		return nil, err
	}
	err = tx.WithContext(ctx).Model(item).Updates(map[string]any{
		"name":             strings.TrimSpace(input.Name),
		"net_content":      netContent,
		"is_taxable":       input.IsTaxable,
		"is_tax_inclusive": input.IsTaxInclusive,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return GetItem(ctx, tx, id)
}

// DeleteItem removes an item nothing in the ledger points at.
func DeleteItem(ctx context.Context, tx *gorm.DB, id int) error {
	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return err
	}
	var movements, openings int64
	if err := tx.WithContext(ctx).Model(&StockMovement{}).
		Where("business_id = ? AND item_id = ?", item.BusinessId, item.ID).Count(&movements).Error; err != nil {
		return fmt.Errorf("count item movements: %w", err)
	}
	if err := tx.WithContext(ctx).Model(&OpeningStock{}).
		Where("business_id = ? AND item_id = ?", item.BusinessId, item.ID).Count(&openings).Error; err != nil {
		return fmt.Errorf("count item opening stock: %w", err)
	}
	if movements > 0 || openings > 0 {
		return fmt.Errorf("%w: item id=%d has %d movements", ErrItemInUse, item.ID, movements+openings)
	}
	if err := tx.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
