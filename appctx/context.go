// Package appctx holds the request-scoped values shared by config (the tenant guard)
// and utils. It imports nothing from this module.
package appctx

import "context"

type ContextKey string

func (c ContextKey) String() string { return string(c) }

const (
	ContextKeyBusinessId    ContextKey = "BusinessId"
	ContextKeyUserId        ContextKey = "UserId"
	ContextKeyCorrelationId ContextKey = "CorrelationId"

	// ContextKeyIsAdmin marks platform operators; the tenant guard does not scope them.
	ContextKeyIsAdmin ContextKey = "IsAdmin"
	// ContextKeySkipTenantScope turns the tenant guard off for maintenance tools.
	ContextKeySkipTenantScope ContextKey = "SkipTenantScope"
)

// BusinessId is the tenant of ctx, "" when none is set.
func BusinessId(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyBusinessId).(string)
	return v
}

// UserId is the acting user of ctx.
func UserId(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func CorrelationId(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return v, ok && v != ""
}

func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeyIsAdmin).(bool)
	return v
}

// TenantScopeBypassed reports whether queries on ctx may cross businesses.
func TenantScopeBypassed(ctx context.Context) bool {
	if v, _ := ctx.Value(ContextKeySkipTenantScope).(bool); v {
		return true
	}
	return IsAdmin(ctx)
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
