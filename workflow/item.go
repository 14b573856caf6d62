package workflow

import (
	"context"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"gorm.io/gorm"
)

// RegisterItem creates the item together with its inventory sub-account.
func (e *Engine) RegisterItem(ctx context.Context, input *models.NewItem) (*models.Item, error) {
	if _, err := input.Validate(); err != nil {
		return nil, err
	}
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var item *models.Item
	parentId, err := e.subaccountParent(ctx, input.ParentAccountId)
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "WorkflowItem", "RegisterItem", "resolve sub-account parent", input.Name, err)
		}
		return nil, err
	}
	release, err := e.locker.Obtain(ctx, coaLockKey(businessId, parentId))
	if err != nil {
		return nil, err
	}
	defer release()

	err = e.transaction(ctx, func(tx *gorm.DB) error {
		subId, _, err := models.AllocateItemSubaccount(ctx, tx, input.Name, parentId)
		if err != nil {
			return err
		}
		sub, err := models.GetAccount(ctx, tx, subId)
		if err != nil {
			return err
		}
		item, err = models.CreateItem(ctx, tx, input, sub.ParentAccountId, sub.ID)
		return err
	})
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "WorkflowItem", "RegisterItem", "register item", input.Name, err)
		}
		return nil, err
	}
	e.logger.WithField("item_id", item.ID).Info("item registered")
	return item, nil
}

func (e *Engine) GetItem(ctx context.Context, id int) (*models.Item, error) {
	return models.GetItem(ctx, e.db, id)
}

func (e *Engine) ListItems(ctx context.Context) ([]*models.Item, error) {
	return models.ListItems(ctx, e.db)
}

func (e *Engine) UpdateItem(ctx context.Context, id int, input *models.UpdateItemInput) (*models.Item, error) {
	var item *models.Item
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = models.UpdateItem(ctx, tx, id, input)
		return err
	})
	return item, err
}

// DeleteItem removes an item with no stock history. Its sub-account stays in the chart.
func (e *Engine) DeleteItem(ctx context.Context, id int) error {
	return e.transaction(ctx, func(tx *gorm.DB) error {
		return models.DeleteItem(ctx, tx, id)
	})
}
