package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/sirupsen/logrus"
)

// ErrorLogger logs the errors handlers attached to the gin context, once per request.
func ErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		fields := logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}
		if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
			fields["correlation_id"] = cid
		}
		if businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context()); ok {
			fields["business_id"] = businessId
		}
		logger.WithFields(fields).Error(c.Errors.String())
	}
}
