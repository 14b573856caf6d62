package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Fixed posting accounts every inventory event resolves by code.
const (
	AccountCodeInventories         = "110-004-000"
	AccountCodeAccountsReceivable  = "110-002-001"
	AccountCodeWorkInProcess       = "110-005-001"
	AccountCodeAccountsPayable     = "210-001-001"
	AccountCodeSales               = "410-001-001"
	AccountCodeInventoryAdjustment = "510-001-001"
	AccountCodeCostOfGoodsSold     = "610-001-001"
)

// DefaultChart is seeded parent first. Only Inventories accepts generated item sub-accounts.
var DefaultChart = []EnsureAccountInput{
	{Code: "110-000-000", Name: "Current Assets", AllowChildren: true},
	{Code: "110-001-000", Name: "Cash and Banks"},
	{Code: "110-001-001", Name: "Cash"},
	{Code: "110-002-000", Name: "Accounts Receivable"},
	{Code: AccountCodeAccountsReceivable, Name: "Customers"},
	{Code: AccountCodeInventories, Name: "Inventories", AllowChildren: true},
	{Code: "110-005-000", Name: "Work In Process"},
	{Code: AccountCodeWorkInProcess, Name: "Production In Process"},
	{Code: "210-000-000", Name: "Current Liabilities", AllowChildren: true},
	{Code: "210-001-000", Name: "Accounts Payable"},
	{Code: AccountCodeAccountsPayable, Name: "Suppliers"},
	{Code: "310-000-000", Name: "Equity", AllowChildren: true},
	{Code: "310-001-000", Name: "Capital"},
	{Code: "310-001-001", Name: "Owner Capital"},
	{Code: "410-000-000", Name: "Revenue", AllowChildren: true},
	{Code: "410-001-000", Name: "Sales"},
	{Code: AccountCodeSales, Name: "Product Sales"},
	{Code: "510-000-000", Name: "Operating Expenses", AllowChildren: true},
	{Code: "510-001-000", Name: "Inventory Adjustments"},
	{Code: AccountCodeInventoryAdjustment, Name: "Inventory Shrinkage"},
	{Code: "610-000-000", Name: "Cost of Sales", AllowChildren: true},
	{Code: "610-001-000", Name: "Cost of Goods Sold"},
	{Code: AccountCodeCostOfGoodsSold, Name: "Cost of Goods Sold"},
}

// SeedDefaultChart ensures every DefaultChart account exists. Safe to re-run.
func SeedDefaultChart(ctx context.Context, tx *gorm.DB) (map[string]int, error) {
	ids := make(map[string]int, len(DefaultChart))
	for _, input := range DefaultChart {
		input.IsSystemDefault = true
		id, err := EnsureAccount(ctx, tx, input)
		if err != nil {
			return nil, fmt.Errorf("seed %s %s: %w", input.Code, input.Name, err)
		}
		ids[input.Code] = id
	}
	return ids, nil
}

var systemPostingCodes = []string{
	AccountCodeInventories,
	AccountCodeAccountsReceivable,
	AccountCodeWorkInProcess,
	AccountCodeAccountsPayable,
	AccountCodeSales,
	AccountCodeInventoryAdjustment,
	AccountCodeCostOfGoodsSold,
}

// IsSystemPostingCode reports whether workflows resolve code to post against.
func IsSystemPostingCode(code string) bool {
	for _, c := range systemPostingCodes {
		if c == code {
			return true
		}
	}
	return false
}

// GetSystemAccounts maps the posting account codes to ids. Missing default accounts
// are inserted; accounts already in the chart are left as the business edited them.
func GetSystemAccounts(ctx context.Context, tx *gorm.DB) (map[string]int, error) {
	ids := make(map[string]int, len(systemPostingCodes))
	// missing codes and their ancestors
	needed := map[string]bool{}
	for _, raw := range systemPostingCodes {
		code, _ := ParseAccountCode(raw)
		account, err := GetAccountByCode(ctx, tx, code)
		if errors.Is(err, ErrRecordNotFound) {
			for c, ok := code, true; ok; c, ok = c.ParentCode() {
				needed[c.String()] = true
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		ids[raw] = account.ID
	}
	if len(needed) == 0 {
		return ids, nil
	}

	for _, input := range DefaultChart {
		if !needed[input.Code] {
			continue
		}
		input.IsSystemDefault = true
		id, err := CreateAccountIfAbsent(ctx, tx, input)
		if err != nil {
			return nil, fmt.Errorf("create missing system account %s %s: %w", input.Code, input.Name, err)
		}
		if IsSystemPostingCode(input.Code) {
			ids[input.Code] = id
		}
	}
	return ids, nil
}
