package config

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/mmdatafocus/inventory_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var ErrCrossTenantWrite = errors.New("record belongs to another business")

// TenantGuardPlugin enforces multi-tenant isolation for models with a business_id column:
// queries, updates and deletes are scoped to the request's business, and inserts are
// stamped with it (or rejected when they name a different business).
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include business_id manually.
// - Admin/internal bypass is explicit via context flags.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("tenant_guard:create", tenantGuardCreateCallback); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

// scopedBusiness returns the tenant to enforce and the business_id field, or ok=false
// when the statement is out of scope.
func scopedBusiness(db *gorm.DB) (string, *schema.Field, bool) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return "", nil, false
	}
	ctx := db.Statement.Context
	if shouldBypassTenantScope(ctx) {
		return "", nil, false
	}
	businessID := businessIdFromContext(ctx)
	if businessID == "" || db.Statement.Schema == nil {
		return "", nil, false
	}
	field := db.Statement.Schema.LookUpField("business_id")
	if field == nil {
		return "", nil, false
	}
	return businessID, field, true
}

func tenantGuardCallback(db *gorm.DB) {
	businessID, _, ok := scopedBusiness(db)
	if !ok {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasBusinessID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessID,
			},
		},
	})
}

func tenantGuardCreateCallback(db *gorm.DB) {
	businessID, field, ok := scopedBusiness(db)
	if !ok {
		return
	}
	ctx := db.Statement.Context

	stamp := func(rv reflect.Value) {
		if rv.Kind() != reflect.Struct {
			return
		}
		val, zero := field.ValueOf(ctx, rv)
		if zero {
			if rv.CanAddr() {
				_ = field.Set(ctx, rv, businessID)
			}
			return
		}
		if s, isString := val.(string); isString && s != businessID {
			_ = db.AddError(ErrCrossTenantWrite)
		}
	}

	rv := reflect.Indirect(db.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Struct:
		stamp(rv)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			stamp(reflect.Indirect(rv.Index(i)))
		}
	}
}

func businessIdFromContext(ctx context.Context) string {
	return appctx.BusinessId(ctx)
}

func shouldBypassTenantScope(ctx context.Context) bool {
	return appctx.TenantScopeBypassed(ctx)
}

func whereHasBusinessID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBusinessID(e) {
			return true
		}
	}
	return false
}

func exprHasBusinessID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBusinessID(v.Column)
	case clause.Neq:
		return colIsBusinessID(v.Column)
	case clause.IN:
		return colIsBusinessID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBusinessID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasBusinessID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func colIsBusinessID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
