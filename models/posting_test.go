package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/shopspring/decimal"
)

func TestCreatePostingRejectsUnbalancedLines(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-posting")

	a1 := mustEnsure(t, ctx, db, "110-000-000", "Current Assets", true)
	a2 := mustEnsure(t, ctx, db, "210-000-000", "Current Liabilities", true)

	_, err := models.CreatePosting(ctx, db, &models.NewPosting{
		Concept: "unbalanced",
		Lines: []models.NewPostingLine{
			{AccountId: a1, Debit: decimal.NewFromInt(100)},
			{AccountId: a2, Credit: decimal.NewFromInt(90)},
		},
	})
	if !errors.Is(err, models.ErrUnbalancedEntry) {
		t.Fatalf("expected ErrUnbalancedEntry, got %v", err)
	}

	var count int64
	db.WithContext(ctx).Model(&models.Posting{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected posting was written")
	}
}

func TestCreatePostingLineShape(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-posting-shape")

	a1 := mustEnsure(t, ctx, db, "110-000-000", "Current Assets", true)
	a2 := mustEnsure(t, ctx, db, "210-000-000", "Current Liabilities", true)
	hundred := decimal.NewFromInt(100)

	cases := []struct {
		name  string
		lines []models.NewPostingLine
		want  error
	}{
		{"single line", []models.NewPostingLine{{AccountId: a1, Debit: hundred}}, models.ErrTooFewLines},
		{"both sides", []models.NewPostingLine{{AccountId: a1, Debit: hundred, Credit: hundred}, {AccountId: a2, Credit: hundred}}, models.ErrInvalidArgument},
		{"zero line", []models.NewPostingLine{{AccountId: a1}, {AccountId: a2}}, models.ErrInvalidArgument},
		{"negative", []models.NewPostingLine{{AccountId: a1, Debit: hundred.Neg()}, {AccountId: a2, Credit: hundred.Neg()}}, models.ErrInvalidArgument},
		{"unknown account", []models.NewPostingLine{{AccountId: a1, Debit: hundred}, {AccountId: 424242, Credit: hundred}}, models.ErrRecordNotFound},
	}
	for _, tc := range cases {
		_, err := models.CreatePosting(ctx, db, &models.NewPosting{Concept: tc.name, Lines: tc.lines})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreatePostingWritesHeaderAndLines(t *testing.T) {
	db := newTestDB(t)
	ctx := tenantCtx("biz-posting-ok")

	a1 := mustEnsure(t, ctx, db, "110-000-000", "Current Assets", true)
	a2 := mustEnsure(t, ctx, db, "210-000-000", "Current Liabilities", true)

	posting, err := models.CreatePosting(ctx, db, &models.NewPosting{
		Concept:       "stock received",
		ReferenceType: models.PostingReferencePurchase,
		ReferenceId:   7,
		Lines: []models.NewPostingLine{
			{AccountId: a1, Debit: decimal.RequireFromString("150.25")},
			{AccountId: a2, Credit: decimal.RequireFromString("150.25")},
		},
	})
	if err != nil {
		t.Fatalf("CreatePosting: %v", err)
	}

	loaded, err := models.GetPosting(ctx, db, posting.ID)
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if len(loaded.Lines) != 2 || loaded.Lines[0].AccountId != a1 || loaded.Lines[1].AccountId != a2 {
		t.Fatalf("unexpected lines %+v", loaded.Lines)
	}
	if !loaded.TotalAmount.Equal(decimal.RequireFromString("150.25")) {
		t.Fatalf("total = %s", loaded.TotalAmount)
	}
	if loaded.CreatedBy != 1 {
		t.Fatalf("created_by = %d", loaded.CreatedBy)
	}

	byRef, err := models.ListPostingsByReference(ctx, db, models.PostingReferencePurchase, 7)
	if err != nil || len(byRef) != 1 {
		t.Fatalf("ListPostingsByReference = %d, %v", len(byRef), err)
	}
	reversal := byRef[0].ReversalLines()
	if !reversal[0].Credit.Equal(decimal.RequireFromString("150.25")) || !reversal[0].Debit.IsZero() {
		t.Fatalf("reversal did not swap sides: %+v", reversal[0])
	}
}
