package utils

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/inventory_backend/appctx"
)

var ErrBusinessRequired = errors.New("business id is required")

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	businessId := appctx.BusinessId(ctx)
	return businessId, businessId != ""
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.UserId(ctx)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.CorrelationId(ctx)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyBusinessId, businessId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyUserId, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyIsAdmin, isAdmin)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySkipTenantScope, skip)
}

// RequireBusinessId returns the tenant of the request or ErrBusinessRequired.
func RequireBusinessId(ctx context.Context) (string, error) {
	businessId, ok := GetBusinessIdFromContext(ctx)
	if !ok || strings.TrimSpace(businessId) == "" {
		return "", ErrBusinessRequired
	}
	return businessId, nil
}

// GetActorFromContext returns the acting user id, 0 when the request carries none.
func GetActorFromContext(ctx context.Context) int {
	userId, _ := GetUserIdFromContext(ctx)
	return userId
}
