package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/models"
)

type createItemRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	NetContent      string `json:"net_content" binding:"omitempty,decimal"`
	IsTaxable       bool   `json:"is_taxable"`
	IsTaxInclusive  bool   `json:"is_tax_inclusive"`
	ParentAccountId int    `json:"parent_account_id" binding:"gte=0"`
}

type updateItemRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	NetContent     string `json:"net_content" binding:"omitempty,decimal"`
	IsTaxable      bool   `json:"is_taxable"`
	IsTaxInclusive bool   `json:"is_tax_inclusive"`
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return id, true
}

func (s *Server) createItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := s.eng().RegisterItem(c.Request.Context(), &models.NewItem{
		Name:            req.Name,
		NetContent:      req.NetContent,
		IsTaxable:       req.IsTaxable,
		IsTaxInclusive:  req.IsTaxInclusive,
		ParentAccountId: req.ParentAccountId,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.eng().ListItems(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) getItem(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	item, err := s.eng().GetItem(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) updateItem(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := s.eng().UpdateItem(c.Request.Context(), id, &models.UpdateItemInput{
		Name:           req.Name,
		NetContent:     req.NetContent,
		IsTaxable:      req.IsTaxable,
		IsTaxInclusive: req.IsTaxInclusive,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) deleteItem(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	if err := s.eng().DeleteItem(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
