package models

import (
	"strings"
)

type InventoryStage int

const (
	StageRawMaterial  InventoryStage = 1
	StageInProcess    InventoryStage = 2
	StageFinishedGood InventoryStage = 3
)

func (s InventoryStage) IsValid() bool {
	return s == StageRawMaterial || s == StageInProcess || s == StageFinishedGood
}

func (s InventoryStage) String() string {
	switch s {
	case StageRawMaterial:
		return "Raw Material"
	case StageInProcess:
		return "In Process"
	case StageFinishedGood:
		return "Finished Good"
	default:
		return "Unknown"
	}
}

func ParseInventoryStage(v int) (InventoryStage, error) {
	s := InventoryStage(v)
	if !s.IsValid() {
		return 0, invalidArgument("stage must be 1, 2 or 3, got %d", v)
	}
	return s, nil
}

// AllStages in ledger order.
var AllStages = []InventoryStage{StageRawMaterial, StageInProcess, StageFinishedGood}

type MovementKind string

const (
	MovementKindEntry      MovementKind = "ENTRY"
	MovementKindExit       MovementKind = "EXIT"
	MovementKindAdjustment MovementKind = "ADJUSTMENT"
)

// ParseMovementKind accepts the kind in any letter case.
func ParseMovementKind(s string) (MovementKind, error) {
	switch MovementKind(strings.ToUpper(strings.TrimSpace(s))) {
	case MovementKindEntry:
		return MovementKindEntry, nil
	case MovementKindExit:
		return MovementKindExit, nil
	case MovementKindAdjustment:
		return MovementKindAdjustment, nil
	}
	return "", invalidArgument("unknown movement kind %q", s)
}

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

func (t AccountMainType) IsValid() bool {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeLiability, AccountMainTypeEquity, AccountMainTypeIncome, AccountMainTypeExpense:
		return true
	}
	return false
}

type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

func NormalBalanceFor(t AccountMainType) NormalBalance {
	if t == AccountMainTypeAsset || t == AccountMainTypeExpense {
		return NormalBalanceDebit
	}
	return NormalBalanceCredit
}

type PostingReferenceType string

const (
	PostingReferencePurchase        PostingReferenceType = "PURCHASE"
	PostingReferencePurchaseReverse PostingReferenceType = "PURCHASE_REVERSAL"
	PostingReferenceSale            PostingReferenceType = "SALE"
	PostingReferenceProductionStart PostingReferenceType = "PRODUCTION_START"
	PostingReferenceProductionClose PostingReferenceType = "PRODUCTION_CLOSE"
	PostingReferenceAdjustment      PostingReferenceType = "ADJUSTMENT"
	PostingReferenceManual          PostingReferenceType = "MANUAL"
)

// LayerSource tells where a FIFO allocation drew its quantity from.
type LayerSource string

const (
	LayerSourceOpening  LayerSource = "OPENING"
	LayerSourceMovement LayerSource = "MOVEMENT"
)
