package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/inventory_backend/utils"
	"gorm.io/gorm"
)

type Account struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"size:64;not null;uniqueIndex:idx_accounts_business_code,priority:1;uniqueIndex:idx_accounts_parent_name,priority:1" json:"business_id"`
	Code            string          `gorm:"size:11;not null;uniqueIndex:idx_accounts_business_code,priority:2" json:"code"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	NormalizedName  string          `gorm:"size:100;not null;uniqueIndex:idx_accounts_parent_name,priority:3" json:"-"`
	MainType        AccountMainType `gorm:"size:10;not null;index" json:"main_type"`
	NormalBalance   NormalBalance   `gorm:"size:16;not null;default:'DEBIT'" json:"normal_balance"`
	Level           int             `gorm:"not null" json:"level"`
	ParentAccountId int             `gorm:"not null;default:0;uniqueIndex:idx_accounts_parent_name,priority:2" json:"parent_account_id"`
	AllowChildren   *bool           `gorm:"not null;default:false" json:"allow_children"`
	IsSystemDefault *bool           `gorm:"not null;default:false" json:"is_system_default"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type EnsureAccountInput struct {
	Code          string
	Name          string
	AllowChildren bool
	// ParentCode overrides the parent derived from Code.
	ParentCode      string
	IsSystemDefault bool
}

type AccountEdit struct {
	Id              int
	Code            string
	MainType        AccountMainType
	ParentAccountId int
}

type UpdateAccountInput struct {
	AccountEdit
	Name          string
	AllowChildren bool
}

type AccountFilter struct {
	MainType        AccountMainType
	Level           int
	ParentAccountId *int
}

func GetAccount(ctx context.Context, tx *gorm.DB, id int) (*Account, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var account Account
	err = tx.WithContext(ctx).Where("business_id = ? AND id = ?", businessId, id).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account id=%d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

func GetAccountByCode(ctx context.Context, tx *gorm.DB, code AccountCode) (*Account, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var account Account
	err = tx.WithContext(ctx).Where("business_id = ? AND code = ?", businessId, code.String()).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account code=%s: %w", code, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

// ListAccounts returns the chart ordered by code.
func ListAccounts(ctx context.Context, tx *gorm.DB, filter AccountFilter) ([]*Account, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	q := tx.WithContext(ctx).Where("business_id = ?", businessId)
	if filter.MainType != "" {
		q = q.Where("main_type = ?", filter.MainType)
	}
	if filter.Level > 0 {
		q = q.Where("level = ?", filter.Level)
	}
	if filter.ParentAccountId != nil {
		q = q.Where("parent_account_id = ?", *filter.ParentAccountId)
	}
	var accounts []*Account
	if err := q.Order("code ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// EnsureAccount creates the account for input.Code or brings an existing one in line
// with the classification derived from its code. Names in the protected expense range
// are never overwritten.
func EnsureAccount(ctx context.Context, tx *gorm.DB, input EnsureAccountInput) (int, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return 0, err
	}
	code, err := ParseAccountCode(input.Code)
	if err != nil {
		return 0, err
	}
	class, err := DeriveClassification(code)
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, invalidArgument("account name is required")
	}

	parentId, err := resolveEnsureParent(ctx, tx, code, class, input.ParentCode)
	if err != nil {
		return 0, err
	}

	existing, err := GetAccountByCode(ctx, tx, code)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return 0, err
	}
	if existing != nil {
		updates := map[string]any{
			"main_type":         class.MainType,
			"normal_balance":    class.NormalBalance,
			"level":             class.Level,
			"parent_account_id": parentId,
			"allow_children":    input.AllowChildren,
		}
		if !code.IsProtectedName() {
			updates["name"] = name
			updates["normalized_name"] = utils.NormalizeName(name)
		}
		if err := tx.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, newValidationError("name", "an account named %q already exists under this parent", name)
			}
			return 0, fmt.Errorf("update account %s: %w", code, err)
		}
		return existing.ID, nil
	}

	account := Account{
		BusinessId:      businessId,
		Code:            code.String(),
		Name:            name,
		NormalizedName:  utils.NormalizeName(name),
		MainType:        class.MainType,
		NormalBalance:   class.NormalBalance,
		Level:           class.Level,
		ParentAccountId: parentId,
		AllowChildren:   &input.AllowChildren,
		IsSystemDefault: &input.IsSystemDefault,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("create account %s: %w", code, err)
		}
		// lost a race on the code: the other writer's row is the answer
		if raced, rerr := GetAccountByCode(ctx, tx, code); rerr == nil {
			return raced.ID, nil
		}
		return 0, newValidationError("name", "an account named %q already exists under this parent", name)
	}
	return account.ID, nil
}

// resolveEnsureParent finds the parent an ensured account hangs under and checks it
// fits the code the same way an edit is checked.
func resolveEnsureParent(ctx context.Context, tx *gorm.DB, code AccountCode, class Classification, override string) (int, error) {
	if class.Level == 1 {
		if override != "" {
			return 0, invalidArgument("level 1 account %s cannot have a parent", code)
		}
		return 0, nil
	}
	parentCode, _ := code.ParentCode()
	if override != "" {
		var err error
		if parentCode, err = ParseAccountCode(override); err != nil {
			return 0, err
		}
	}
	parent, err := GetAccountByCode(ctx, tx, parentCode)
	if errors.Is(err, ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s (required by %s)", ErrOrphanParent, parentCode, code)
	}
	if err != nil {
		return 0, err
	}
	if err := checkParentFit(code, class.Level, class.MainType, parent); err != nil {
		return 0, err
	}
	return parent.ID, nil
}

// checkParentFit holds the parent rules shared by ensure and edit: one level up,
// the same type, and the higher segments of the code taken from the parent.
func checkParentFit(code AccountCode, level int, mainType AccountMainType, parent *Account) error {
	if parent.Level != level-1 {
		return newValidationError("parent_account_id", "a level %d account needs a level %d parent, %s is level %d", level, level-1, parent.Code, parent.Level)
	}
	if parent.MainType != mainType {
		return newValidationError("main_type", "account type %s must match the parent type %s", mainType, parent.MainType)
	}
	parentCode, err := ParseAccountCode(parent.Code)
	if err != nil {
		return newValidationError("parent_account_id", "parent code %q is malformed", parent.Code)
	}
	if level == 2 && parentCode.A != code.A {
		return newValidationError("code", "segment AAA of %s must match the parent %s", code, parent.Code)
	}
	if level == 3 && (parentCode.A != code.A || parentCode.B != code.B) {
		return newValidationError("code", "segments AAA-BBB of %s must match the parent %s", code, parent.Code)
	}
	return nil
}

// CreateAccountIfAbsent inserts the account for input.Code when the chart has no
// account with that code. An existing account is returned untouched.
func CreateAccountIfAbsent(ctx context.Context, tx *gorm.DB, input EnsureAccountInput) (int, error) {
	code, err := ParseAccountCode(input.Code)
	if err != nil {
		return 0, err
	}
	existing, err := GetAccountByCode(ctx, tx, code)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return 0, err
	}
	return EnsureAccount(ctx, tx, input)
}

// Codes of the minimal chain created when a business has no inventory parent yet.
var subaccountBootstrapChain = []EnsureAccountInput{
	{Code: "110-000-000", Name: "Current Assets", AllowChildren: true, IsSystemDefault: true},
	{Code: "110-004-000", Name: "Inventories", AllowChildren: true, IsSystemDefault: true},
}

// ResolveSubaccountParent returns parentAccountId's account, or the default inventory
// parent when parentAccountId is 0 (bootstrapping it if the chart has none).
func ResolveSubaccountParent(ctx context.Context, tx *gorm.DB, parentAccountId int) (*Account, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if parentAccountId > 0 {
		parent, err := GetAccount(ctx, tx, parentAccountId)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account id=%d", ErrOrphanParent, parentAccountId)
		}
		return parent, err
	}

	var parent Account
	err = tx.WithContext(ctx).
		Where("business_id = ? AND level = ? AND main_type = ? AND allow_children = ? AND code LIKE ?",
			businessId, 2, AccountMainTypeAsset, true, "1__-___-000").
		Order("code ASC").
		Take(&parent).Error
	if err == nil {
		return &parent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find default sub-account parent: %w", err)
	}

	var id int
	for _, link := range subaccountBootstrapChain {
		if id, err = CreateAccountIfAbsent(ctx, tx, link); err != nil {
			return nil, fmt.Errorf("bootstrap inventory accounts: %w", err)
		}
	}
	return GetAccount(ctx, tx, id)
}

// AllocateItemSubaccount returns the level 3 account for itemName under the parent,
// creating it with the next free code when the parent has no child of that name.
// Callers serialize per parent; the (parent, name) unique index backs that up.
func AllocateItemSubaccount(ctx context.Context, tx *gorm.DB, itemName string, parentAccountId int) (int, string, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return 0, "", err
	}
	name := strings.TrimSpace(itemName)
	if name == "" {
		return 0, "", invalidArgument("item name is required")
	}

	parent, err := ResolveSubaccountParent(ctx, tx, parentAccountId)
	if err != nil {
		return 0, "", err
	}
	if !utils.BoolValue(parent.AllowChildren) {
		return 0, "", fmt.Errorf("%w: %s %s", ErrParentDoesNotAllowChildren, parent.Code, parent.Name)
	}
	parentCode, err := ParseAccountCode(parent.Code)
	if err != nil {
		return 0, "", err
	}
	if parent.Level != 2 {
		return 0, "", invalidArgument("sub-accounts are allocated under level 2 accounts, %s is level %d", parent.Code, parent.Level)
	}

	normalized := utils.NormalizeName(name)
	for attempt := 0; attempt < 3; attempt++ {
		var existing Account
		err := tx.WithContext(ctx).
			Where("business_id = ? AND parent_account_id = ? AND normalized_name = ?", businessId, parent.ID, normalized).
			Take(&existing).Error
		if err == nil {
			return existing.ID, existing.Code, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", fmt.Errorf("find item sub-account: %w", err)
		}

		next, err := nextChildSegment(ctx, tx, businessId, parent.ID)
		if err != nil {
			return 0, "", err
		}
		if next > 999 {
			return 0, "", fmt.Errorf("%w: %s", ErrAccountCodeExhausted, parent.Code)
		}

		code := parentCode.Child(next)
		account := Account{
			BusinessId:      businessId,
			Code:            code.String(),
			Name:            name,
			NormalizedName:  normalized,
			MainType:        parent.MainType,
			NormalBalance:   NormalBalanceFor(parent.MainType),
			Level:           3,
			ParentAccountId: parent.ID,
			AllowChildren:   utils.NewFalse(),
			IsSystemDefault: utils.NewFalse(),
		}
		err = tx.WithContext(ctx).Create(&account).Error
		if err == nil {
			return account.ID, account.Code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, "", fmt.Errorf("create item sub-account: %w", err)
		}
		// another writer took the name or the code; look again
	}
	return 0, "", fmt.Errorf("allocate sub-account for %q under %s: too much contention", name, parent.Code)
}

func nextChildSegment(ctx context.Context, tx *gorm.DB, businessId string, parentId int) (int, error) {
	var codes []string
	err := tx.WithContext(ctx).Model(&Account{}).
		Where("business_id = ? AND parent_account_id = ?", businessId, parentId).
		Pluck("code", &codes).Error
	if err != nil {
		return 0, fmt.Errorf("list sub-account codes: %w", err)
	}
	highest := 0
	for _, raw := range codes {
		c, err := ParseAccountCode(raw)
		if err != nil {
			continue
		}
		if c.C > highest {
			highest = c.C
		}
	}
	return highest + 1, nil
}

// ValidateAccountEdit reports the first rule the edit breaks, checking the code
// format, then uniqueness, then the rules of the code's level.
func ValidateAccountEdit(ctx context.Context, tx *gorm.DB, edit AccountEdit) error {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return err
	}

	code, err := ParseAccountCode(strings.TrimSpace(edit.Code))
	if err != nil {
		return newValidationError("code", "code %q must have the format 000-000-000", edit.Code)
	}

	var dupes int64
	err = tx.WithContext(ctx).Model(&Account{}).
		Where("business_id = ? AND code = ? AND id <> ?", businessId, code.String(), edit.Id).
		Count(&dupes).Error
	if err != nil {
		return fmt.Errorf("check duplicate account code: %w", err)
	}
	if dupes > 0 {
		return newValidationError("code", "code %s is already used by another account", code)
	}

	level, err := code.Level()
	if err != nil {
		return newValidationError("code", "code %s has a sub-account segment but no group segment", code)
	}

	if level == 1 {
		if edit.ParentAccountId != 0 {
			return newValidationError("parent_account_id", "a level 1 account cannot have a parent")
		}
		expected, ok := MainTypeForPrefix(code.A)
		if !ok {
			return newValidationError("code", "code %s is outside the chart ranges 100-699", code)
		}
		if edit.MainType != expected {
			return newValidationError("main_type", "codes starting with %03d must be %s, not %s", code.A, expected, edit.MainType)
		}
		return nil
	}

	if edit.ParentAccountId == 0 {
		return newValidationError("parent_account_id", "a level %d account requires a parent", level)
	}
	if edit.ParentAccountId == edit.Id {
		return newValidationError("parent_account_id", "an account cannot be its own parent")
	}
	parent, err := GetAccount(ctx, tx, edit.ParentAccountId)
	if errors.Is(err, ErrRecordNotFound) {
		return newValidationError("parent_account_id", "parent account %d does not exist", edit.ParentAccountId)
	}
	if err != nil {
		return err
	}
	return checkParentFit(code, level, edit.MainType, parent)
}

// UpdateAccount applies a validated edit. Names in the protected expense range are kept.
func UpdateAccount(ctx context.Context, tx *gorm.DB, input UpdateAccountInput) (*Account, error) {
	account, err := GetAccount(ctx, tx, input.Id)
	if err != nil {
		return nil, err
	}
	if err := ValidateAccountEdit(ctx, tx, input.AccountEdit); err != nil {
		return nil, err
	}
	code, _ := ParseAccountCode(strings.TrimSpace(input.Code))
	level, _ := code.Level()
	if code.String() != account.Code {
		if IsSystemPostingCode(account.Code) {
			return nil, newValidationError("code", "%s is a system posting account and keeps its code", account.Code)
		}
		var children int64
		err := tx.WithContext(ctx).Model(&Account{}).
			Where("business_id = ? AND parent_account_id = ?", account.BusinessId, account.ID).
			Count(&children).Error
		if err != nil {
			return nil, fmt.Errorf("count sub-accounts: %w", err)
		}
		if children > 0 {
			return nil, newValidationError("code", "%s has %d sub-accounts and cannot be recoded", account.Code, children)
		}
	}

	updates := map[string]any{
		"code":              code.String(),
		"main_type":         input.MainType,
		"normal_balance":    NormalBalanceFor(input.MainType),
		"level":             level,
		"parent_account_id": input.ParentAccountId,
		"allow_children":    input.AllowChildren,
	}
	if name := strings.TrimSpace(input.Name); name != "" && !code.IsProtectedName() {
		updates["name"] = name
		updates["normalized_name"] = utils.NormalizeName(name)
	}
	if err := tx.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError("name", "an account named %q already exists under this parent", input.Name)
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return GetAccount(ctx, tx, input.Id)
}
