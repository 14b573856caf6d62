package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"gorm.io/gorm"
)

type SubaccountResult struct {
	AccountId int    `json:"account_id"`
	Code      string `json:"code"`
}

// AllocateItemSubaccount returns the item's sub-account under parentAccountId (0 for
// the default inventory parent), creating it when needed. Allocations under one
// parent are serialized so every new child gets the next free code.
func (e *Engine) AllocateItemSubaccount(ctx context.Context, itemName string, parentAccountId int) (*SubaccountResult, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var result SubaccountResult
	parentId, err := e.subaccountParent(ctx, parentAccountId)
	if err == nil {
		var release func()
		release, err = e.locker.Obtain(ctx, coaLockKey(businessId, parentId))
		if err != nil {
			return nil, err
		}
		defer release()
		err = e.transaction(ctx, func(tx *gorm.DB) error {
			var err error
			result.AccountId, result.Code, err = models.AllocateItemSubaccount(ctx, tx, itemName, parentId)
			return err
		})
	}
	if err != nil {
		if !isClientError(err) && !errors.Is(err, models.ErrAccountCodeExhausted) {
			config.LogError(e.logger, "WorkflowAccount", "AllocateItemSubaccount", "allocate item sub-account", itemName, err)
		}
		return nil, err
	}
	return &result, nil
}

// subaccountParent turns 0 into the id of the default inventory parent, creating it
// if the chart has none, so every caller locks the same parent key.
func (e *Engine) subaccountParent(ctx context.Context, parentAccountId int) (int, error) {
	if parentAccountId > 0 {
		return parentAccountId, nil
	}
	var id int
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		parent, err := models.ResolveSubaccountParent(ctx, tx, 0)
		if err != nil {
			return err
		}
		id = parent.ID
		return nil
	})
	return id, err
}

// EnsureAccount creates the account if its code is new and returns its id either way.
func (e *Engine) EnsureAccount(ctx context.Context, input models.EnsureAccountInput) (int, error) {
	var id int
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		id, err = models.EnsureAccount(ctx, tx, input)
		return err
	})
	return id, err
}

func (e *Engine) ValidateAccountEdit(ctx context.Context, edit models.AccountEdit) error {
	return models.ValidateAccountEdit(ctx, e.db, edit)
}

func (e *Engine) UpdateAccount(ctx context.Context, input models.UpdateAccountInput) (*models.Account, error) {
	var account *models.Account
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		account, err = models.UpdateAccount(ctx, tx, input)
		return err
	})
	return account, err
}

func (e *Engine) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	return models.GetAccount(ctx, e.db, id)
}

func (e *Engine) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	return models.ListAccounts(ctx, e.db, filter)
}

// SeedDefaultChart installs the default chart for the business in ctx.
func (e *Engine) SeedDefaultChart(ctx context.Context) (map[string]int, error) {
	var ids map[string]int
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		ids, err = models.SeedDefaultChart(ctx, tx)
		return err
	})
	if err != nil {
		config.LogError(e.logger, "WorkflowAccount", "SeedDefaultChart", "seed default chart", nil, err)
		return nil, err
	}
	return ids, nil
}
