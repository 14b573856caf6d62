package models

import (
	"errors"
	"fmt"

	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidArgument            = errors.New("invalid argument")
	ErrValidation                 = errors.New("validation error")
	ErrOrphanParent               = errors.New("parent account does not exist")
	ErrParentDoesNotAllowChildren = errors.New("parent account does not allow sub-accounts")
	ErrAccountCodeExhausted       = errors.New("no sub-account codes left under parent")
	ErrUnbalancedEntry            = errors.New("posting debits and credits do not balance")
	ErrTooFewLines                = errors.New("posting needs at least two lines")
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrItemInUse                  = errors.New("item is referenced by stock movements")
	ErrPurchaseConsumed           = errors.New("purchase stock has already been consumed")

	ErrRecordNotFound   = utils.ErrorRecordNotFound
	ErrBusinessRequired = utils.ErrBusinessRequired
)

// ValidationError reports the first chart-of-accounts rule an edit violates.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientStockError is returned when the open cost layers cannot cover a consumption.
type InsufficientStockError struct {
	ItemId    int
	Stage     InventoryStage
	Requested decimal.Decimal
	Missing   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient FIFO layers for item_id=%d stage=%d qty_requested=%s qty_missing=%s",
		e.ItemId, e.Stage, e.Requested.String(), e.Missing.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
