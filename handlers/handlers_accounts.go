package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/models"
)

type ensureAccountRequest struct {
	Code          string `json:"code" binding:"required,account_code"`
	Name          string `json:"name" binding:"required,max=100"`
	AllowChildren bool   `json:"allow_children"`
	ParentCode    string `json:"parent_code" binding:"omitempty,account_code"`
}

type accountEditRequest struct {
	Id              int    `json:"id" binding:"gte=0"`
	Code            string `json:"code" binding:"required,account_code"`
	MainType        string `json:"main_type" binding:"required,oneof=Asset Liability Equity Income Expense"`
	ParentAccountId int    `json:"parent_account_id" binding:"gte=0"`
}

type updateAccountRequest struct {
	Code            string `json:"code" binding:"required,account_code"`
	Name            string `json:"name" binding:"required,max=100"`
	MainType        string `json:"main_type" binding:"required,oneof=Asset Liability Equity Income Expense"`
	ParentAccountId int    `json:"parent_account_id" binding:"gte=0"`
	AllowChildren   bool   `json:"allow_children"`
}

type subaccountRequest struct {
	ItemName        string `json:"item_name" binding:"required,max=100"`
	ParentAccountId int    `json:"parent_account_id" binding:"gte=0"`
}

type accountQuery struct {
	MainType        string `form:"main_type" binding:"omitempty,oneof=Asset Liability Equity Income Expense"`
	Level           int    `form:"level" binding:"omitempty,oneof=1 2 3"`
	ParentAccountId string `form:"parent_account_id"`
}

func (s *Server) ensureAccount(c *gin.Context) {
	var req ensureAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	id, err := s.eng().EnsureAccount(c.Request.Context(), models.EnsureAccountInput{
		Code:          req.Code,
		Name:          req.Name,
		AllowChildren: req.AllowChildren,
		ParentCode:    req.ParentCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	account, err := s.eng().GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) listAccounts(c *gin.Context) {
	var q accountQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	filter := models.AccountFilter{
		MainType: models.AccountMainType(q.MainType),
		Level:    q.Level,
	}
	if q.ParentAccountId != "" {
		parent, err := strconv.Atoi(q.ParentAccountId)
		if err != nil || parent < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid parent_account_id " + strconv.Quote(q.ParentAccountId)})
			return
		}
		filter.ParentAccountId = &parent
	}
	accounts, err := s.eng().ListAccounts(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) getAccount(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	account, err := s.eng().GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) updateAccount(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	account, err := s.eng().UpdateAccount(c.Request.Context(), models.UpdateAccountInput{
		AccountEdit: models.AccountEdit{
			Id:              id,
			Code:            req.Code,
			MainType:        models.AccountMainType(req.MainType),
			ParentAccountId: req.ParentAccountId,
		},
		Name:          req.Name,
		AllowChildren: req.AllowChildren,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// validateAccountEdit checks a create (id 0) or an edit without applying it.
func (s *Server) validateAccountEdit(c *gin.Context) {
	var req accountEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := s.eng().ValidateAccountEdit(c.Request.Context(), models.AccountEdit{
		Id:              req.Id,
		Code:            req.Code,
		MainType:        models.AccountMainType(req.MainType),
		ParentAccountId: req.ParentAccountId,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (s *Server) allocateSubaccount(c *gin.Context) {
	var req subaccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := s.eng().AllocateItemSubaccount(c.Request.Context(), req.ItemName, req.ParentAccountId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) seedChart(c *gin.Context) {
	accounts, err := s.eng().SeedDefaultChart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}
