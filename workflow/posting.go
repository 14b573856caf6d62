package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Post records a manual balanced journal entry.
func (e *Engine) Post(ctx context.Context, input *models.NewPosting) (*models.Posting, error) {
	if input.ReferenceType == "" {
		input.ReferenceType = models.PostingReferenceManual
	}
	var posting *models.Posting
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		posting, err = models.CreatePosting(ctx, tx, input)
		return err
	})
	if err != nil {
		if !isClientError(err) {
			config.LogError(e.logger, "WorkflowPosting", "Post", "record posting", input.Concept, err)
		}
		return nil, err
	}
	return posting, nil
}

func (e *Engine) GetPosting(ctx context.Context, id int) (*models.Posting, error) {
	return models.GetPosting(ctx, e.db, id)
}

func (e *Engine) ListPostingsByReference(ctx context.Context, refType models.PostingReferenceType, refId int) ([]*models.Posting, error) {
	return models.ListPostingsByReference(ctx, e.db, refType, refId)
}

// journal collects posting lines, merging repeated sides of the same account and
// dropping zero amounts, so workflows can describe each leg independently.
type journal struct {
	lines []models.NewPostingLine
	index map[[2]int]int
}

func newJournal() *journal {
	return &journal{index: map[[2]int]int{}}
}

func (j *journal) debit(accountId int, amount decimal.Decimal) {
	j.add(accountId, amount.Round(4), 0)
}

func (j *journal) credit(accountId int, amount decimal.Decimal) {
	j.add(accountId, amount.Round(4), 1)
}

func (j *journal) add(accountId int, amount decimal.Decimal, side int) {
	if !amount.IsPositive() {
		return
	}
	key := [2]int{accountId, side}
	if i, ok := j.index[key]; ok {
		if side == 0 {
			j.lines[i].Debit = j.lines[i].Debit.Add(amount)
		} else {
			j.lines[i].Credit = j.lines[i].Credit.Add(amount)
		}
		return
	}
	line := models.NewPostingLine{AccountId: accountId, Debit: decimal.Zero, Credit: decimal.Zero}
	if side == 0 {
		line.Debit = amount
	} else {
		line.Credit = amount
	}
	j.index[key] = len(j.lines)
	j.lines = append(j.lines, line)
}

func (j *journal) totalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range j.lines {
		total = total.Add(l.Debit)
	}
	return total
}

// post writes the journal. An empty journal (every leg zero) writes nothing and
// returns nil.
func (j *journal) post(ctx context.Context, tx *gorm.DB, concept string, refType models.PostingReferenceType, refId int) (*models.Posting, error) {
	if len(j.lines) == 0 {
		return nil, nil
	}
	return models.CreatePosting(ctx, tx, &models.NewPosting{
		Concept:       strings.TrimSpace(concept),
		ReferenceType: refType,
		ReferenceId:   refId,
		Lines:         j.lines,
	})
}

// isClientError reports whether err comes from the caller's input rather than the system.
func isClientError(err error) bool {
	var shortage *models.InsufficientStockError
	return errors.Is(err, models.ErrInvalidArgument) ||
		errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrRecordNotFound) ||
		errors.Is(err, models.ErrBusinessRequired) ||
		errors.Is(err, models.ErrUnbalancedEntry) ||
		errors.Is(err, models.ErrTooFewLines) ||
		errors.Is(err, models.ErrOrphanParent) ||
		errors.Is(err, models.ErrParentDoesNotAllowChildren) ||
		errors.Is(err, models.ErrItemInUse) ||
		errors.Is(err, models.ErrPurchaseConsumed) ||
		errors.Is(err, ErrOpeningStockConsumed) ||
		errors.As(err, &shortage)
}
