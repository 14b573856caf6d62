package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/utils"
)

const (
	HeaderBusinessId    = "X-Business-Id"
	HeaderUserId        = "X-User-Id"
	HeaderCorrelationId = "x-correlation-id"
)

// TenantMiddleware puts the caller's business id and user id into the request context.
// Requests without a business id are refused; every ledger, layer and account row is
// scoped by it.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := strings.TrimSpace(c.GetHeader(HeaderBusinessId))
		if businessId == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": utils.ErrBusinessRequired.Error()})
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)

		if raw := strings.TrimSpace(c.GetHeader(HeaderUserId)); raw != "" {
			userId, err := strconv.Atoi(raw)
			if err != nil || userId < 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + HeaderUserId + " header"})
				return
			}
			ctx = utils.SetUserIdInContext(ctx, userId)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
