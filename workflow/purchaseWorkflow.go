package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"gorm.io/gorm"
)

type PurchaseResult struct {
	Purchase  *models.Purchase        `json:"purchase"`
	Movements []*models.StockMovement `json:"movements"`
	Posting   *models.Posting         `json:"posting,omitempty"`
}

// RegisterPurchase receives stock: one ENTRY layer per line, then
// Dr inventory / Cr accounts payable for the document total.
func (e *Engine) RegisterPurchase(ctx context.Context, input *models.NewPurchase) (*PurchaseResult, error) {
	parsed, total, err := input.Validate()
	if err != nil {
		return nil, err
	}
	movedAt := input.Date
	if movedAt.IsZero() {
		movedAt = e.now()
	}

	result := &PurchaseResult{}
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		sys, err := models.GetSystemAccounts(ctx, tx)
		if err != nil {
			return err
		}
		purchase, err := models.CreatePurchaseHeader(ctx, tx, input, total)
		if err != nil {
			return err
		}
		result.Purchase = purchase

		j := newJournal()
		for i, m := range parsed {
			item, err := models.GetItem(ctx, tx, m.ItemId)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			m.PurchaseId = &purchase.ID
			row, err := models.InsertMovement(ctx, tx, m, movedAt)
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, row)
			j.debit(inventoryAccountFor(m.Stage, item, sys), m.Qty.Mul(m.UnitCost))
		}
		// lines are rounded one by one, so the payable is their sum
		payable := j.totalDebit()
		j.credit(sys[models.AccountCodeAccountsPayable], payable)

		posting, err := j.post(ctx, tx, "Purchase "+purchase.DocumentNumber, models.PostingReferencePurchase, purchase.ID)
		if err != nil {
			return err
		}
		if posting != nil {
			result.Posting = posting
			purchase.PostingId = posting.ID
			purchase.TotalAmount = payable
			err := tx.WithContext(ctx).Model(purchase).Updates(map[string]any{
				"posting_id":   posting.ID,
				"total_amount": payable,
			}).Error
			if err != nil {
				return fmt.Errorf("link purchase posting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "PurchaseWorkflow.go", "RegisterPurchase", "register purchase", input.DocumentNumber, err)
		}
		return nil, err
	}
	return result, nil
}

func (e *Engine) GetPurchase(ctx context.Context, id int) (*PurchaseResult, error) {
	purchase, err := models.GetPurchase(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	movements, err := models.GetPurchaseMovements(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	result := &PurchaseResult{Purchase: purchase, Movements: movements}
	if purchase.PostingId > 0 {
		if result.Posting, err = models.GetPosting(ctx, e.db, purchase.PostingId); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DeletePurchase removes a purchase whose layers are untouched and posts the
// reversing entry. Once any of its stock has been consumed it is refused.
func (e *Engine) DeletePurchase(ctx context.Context, id int) (*models.Posting, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	purchase, err := models.GetPurchase(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	movements, err := models.GetPurchaseMovements(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(movements))
	for _, m := range movements {
		keys = append(keys, stockLockKey(businessId, int(m.Stage), m.ItemId))
	}
	release, err := obtainAll(ctx, e.locker, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	var reversal *models.Posting
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		// re-read under the locks
		movements, err := models.GetPurchaseMovements(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, m := range movements {
			if !m.RemainingQty.Equal(m.Qty) {
				return fmt.Errorf("%w: purchase id=%d item_id=%d has %s of %s left",
					models.ErrPurchaseConsumed, id, m.ItemId, m.RemainingQty, m.Qty)
			}
		}
		if purchase.PostingId > 0 {
			original, err := models.GetPosting(ctx, tx, purchase.PostingId)
			if err != nil {
				return err
			}
			reversal, err = models.CreatePosting(ctx, tx, &models.NewPosting{
				Concept:       "Reversal of purchase " + purchase.DocumentNumber,
				ReferenceType: models.PostingReferencePurchaseReverse,
				ReferenceId:   purchase.ID,
				Lines:         original.ReversalLines(),
			})
			if err != nil {
				return err
			}
		}
		return models.DeletePurchaseCascade(ctx, tx, purchase)
	})
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "PurchaseWorkflow.go", "DeletePurchase", "delete purchase", id, err)
		}
		return nil, err
	}
	return reversal, nil
}
