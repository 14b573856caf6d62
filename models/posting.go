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

// Posting is a balanced journal entry. Postings are never updated; corrections are new
// postings with swapped sides.
type Posting struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	BusinessId    string               `gorm:"size:64;index;not null" json:"business_id"`
	Concept       string               `gorm:"size:255;not null" json:"concept"`
	PostingDate   time.Time            `gorm:"not null;index" json:"posting_date"`
	ReferenceType PostingReferenceType `gorm:"size:32;not null;default:'MANUAL';index:idx_postings_reference,priority:1" json:"reference_type"`
	ReferenceId   int                  `gorm:"not null;default:0;index:idx_postings_reference,priority:2" json:"reference_id"`
	TotalAmount   decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0" json:"total_amount"`
	CreatedBy     int                  `gorm:"not null;default:0" json:"created_by"`
	Lines         []PostingLine        `gorm:"foreignKey:PostingId" json:"lines"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type PostingLine struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"size:64;index;not null" json:"business_id"`
	PostingId  int             `gorm:"index;not null" json:"posting_id"`
	LineNo     int             `gorm:"not null" json:"line_no"`
	AccountId  int             `gorm:"index;not null" json:"account_id"`
	Debit      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
}

type NewPostingLine struct {
	AccountId int
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

type NewPosting struct {
	Concept       string
	Date          time.Time
	ReferenceType PostingReferenceType
	ReferenceId   int
	Lines         []NewPostingLine
}

// Validate checks the line shape and the balance, returning the common total.
func (input *NewPosting) Validate() (decimal.Decimal, error) {
	if strings.TrimSpace(input.Concept) == "" {
		return decimal.Zero, invalidArgument("posting concept is required")
	}
	if len(input.Lines) < 2 {
		return decimal.Zero, ErrTooFewLines
	}
	debits, credits := decimal.Zero, decimal.Zero
	for i, line := range input.Lines {
		if line.AccountId <= 0 {
			return decimal.Zero, invalidArgument("line %d: account is required", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, invalidArgument("line %d: amounts cannot be negative", i+1)
		}
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return decimal.Zero, invalidArgument("line %d: exactly one of debit or credit must be non-zero", i+1)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	if !debits.Equal(credits) {
		return decimal.Zero, fmt.Errorf("%w: debits=%s credits=%s", ErrUnbalancedEntry, debits.String(), credits.String())
	}
	return debits, nil
}

// CreatePosting writes the header and its lines on tx. Every account must belong to the business.
func CreatePosting(ctx context.Context, tx *gorm.DB, input *NewPosting) (*Posting, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	total, err := input.Validate()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.AccountId)
	}
	var found []int
	if err := tx.WithContext(ctx).Model(&Account{}).
		Where("business_id = ? AND id IN ?", businessId, ids).
		Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("check posting accounts: %w", err)
	}
	known := make(map[int]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("posting account id=%d: %w", id, ErrRecordNotFound)
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	refType := input.ReferenceType
	if refType == "" {
		refType = PostingReferenceManual
	}
	posting := Posting{
		BusinessId:    businessId,
		Concept:       strings.TrimSpace(input.Concept),
		PostingDate:   date.UTC(),
		ReferenceType: refType,
		ReferenceId:   input.ReferenceId,
		TotalAmount:   total,
		CreatedBy:     utils.GetActorFromContext(ctx),
	}
	for i, line := range input.Lines {
		posting.Lines = append(posting.Lines, PostingLine{
			BusinessId: businessId,
			LineNo:     i + 1,
			AccountId:  line.AccountId,
			Debit:      line.Debit,
			Credit:     line.Credit,
		})
	}
	if err := tx.WithContext(ctx).Create(&posting).Error; err != nil {
		return nil, fmt.Errorf("create posting: %w", err)
	}
	return &posting, nil
}

func GetPosting(ctx context.Context, tx *gorm.DB, id int) (*Posting, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var posting Posting
	err = tx.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("business_id = ? AND id = ?", businessId, id).
		Take(&posting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("posting id=%d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load posting: %w", err)
	}
	return &posting, nil
}

// ListPostingsByReference returns the postings a document produced, oldest first.
func ListPostingsByReference(ctx context.Context, tx *gorm.DB, refType PostingReferenceType, refId int) ([]*Posting, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var postings []*Posting
	err = tx.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, refType, refId).
		Order("id ASC").
		Find(&postings).Error
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	return postings, nil
}

// ReversalLines swaps debit and credit of every line.
func (p *Posting) ReversalLines() []NewPostingLine {
	lines := make([]NewPostingLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, NewPostingLine{AccountId: l.AccountId, Debit: l.Credit, Credit: l.Debit})
	}
	return lines
}
