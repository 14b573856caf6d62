package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
)

type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func mapError(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrBusinessRequired):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrItemInUse),
		errors.Is(err, models.ErrPurchaseConsumed),
		errors.Is(err, models.ErrOrphanParent),
		errors.Is(err, models.ErrParentDoesNotAllowChildren),
		errors.Is(err, models.ErrAccountCodeExhausted),
		errors.Is(err, workflow.ErrOpeningStockConsumed),
		errors.Is(err, workflow.ErrLockNotObtained):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrUnbalancedEntry),
		errors.Is(err, models.ErrTooFewLines),
		errors.Is(err, models.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Server errors are attached to the gin
// context so the error logger records them; their text is not sent to the caller.
func writeError(c *gin.Context, err error) {
	status := mapError(err)
	resp := errorResponse{Error: err.Error()}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		resp.Reason = verr.Reason
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		resp = errorResponse{Error: "internal server error"}
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindError answers a request whose body or query failed to bind.
func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
}
