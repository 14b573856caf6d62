package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
)

type purchaseLineRequest struct {
	ItemId   int    `json:"item_id" binding:"required,gt=0"`
	Quantity string `json:"quantity" binding:"required,decimal"`
	UnitCost string `json:"unit_cost" binding:"required,decimal"`
}

type purchaseRequest struct {
	SupplierName   string                `json:"supplier_name" binding:"max=100"`
	DocumentNumber string                `json:"document_number" binding:"max=64"`
	Date           *time.Time            `json:"date"`
	Stage          int                   `json:"stage" binding:"omitempty,oneof=1 2 3"`
	Lines          []purchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type saleRequest struct {
	ItemId    int    `json:"item_id" binding:"required,gt=0"`
	Quantity  string `json:"quantity" binding:"required,decimal"`
	UnitPrice string `json:"unit_price" binding:"omitempty,decimal"`
	Reference string `json:"reference" binding:"max=255"`
}

type productionStartRequest struct {
	ItemId    int    `json:"item_id" binding:"required,gt=0"`
	Quantity  string `json:"quantity" binding:"required,decimal"`
	Reference string `json:"reference" binding:"max=255"`
}

type productionInputRequest struct {
	ItemId   int    `json:"item_id" binding:"required,gt=0"`
	Quantity string `json:"quantity" binding:"required,decimal"`
}

type productionCloseRequest struct {
	Inputs         []productionInputRequest `json:"inputs" binding:"required,min=1,dive"`
	OutputItemId   int                      `json:"output_item_id" binding:"required,gt=0"`
	OutputQuantity string                   `json:"output_quantity" binding:"required,decimal"`
	Reference      string                   `json:"reference" binding:"max=255"`
}

type adjustmentRequest struct {
	Stage    int    `json:"stage" binding:"required,oneof=1 2 3"`
	ItemId   int    `json:"item_id" binding:"required,gt=0"`
	Delta    string `json:"delta" binding:"required,decimal"`
	UnitCost string `json:"unit_cost" binding:"omitempty,decimal"`
	Reason   string `json:"reason" binding:"max=255"`
}

func (s *Server) createPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	input := &models.NewPurchase{
		SupplierName:   req.SupplierName,
		DocumentNumber: req.DocumentNumber,
		Stage:          req.Stage,
	}
	if input.Stage == 0 {
		input.Stage = int(models.StageRawMaterial)
	}
	if req.Date != nil {
		input.Date = *req.Date
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, models.NewPurchaseLine{
			ItemId:   line.ItemId,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
		})
	}
	result, err := s.eng().RegisterPurchase(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) getPurchase(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	result, err := s.eng().GetPurchase(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// deletePurchase removes an unconsumed purchase and answers with the reversal posting.
func (s *Server) deletePurchase(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	reversal, err := s.eng().DeletePurchase(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reversal": reversal})
}

func (s *Server) createSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := s.eng().RegisterSale(c.Request.Context(), workflow.NewSale{
		ItemId:    req.ItemId,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) startProduction(c *gin.Context) {
	var req productionStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := s.eng().StartProduction(c.Request.Context(), workflow.NewProductionStart{
		ItemId:    req.ItemId,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) closeProduction(c *gin.Context) {
	var req productionCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	input := workflow.NewProductionClose{
		OutputItemId:   req.OutputItemId,
		OutputQuantity: req.OutputQuantity,
		Reference:      req.Reference,
	}
	for _, in := range req.Inputs {
		input.Inputs = append(input.Inputs, workflow.ProductionInput{ItemId: in.ItemId, Quantity: in.Quantity})
	}
	result, err := s.eng().CloseProduction(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) adjustStock(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := s.eng().AdjustStock(c.Request.Context(), workflow.NewAdjustment{
		Stage:    req.Stage,
		ItemId:   req.ItemId,
		Delta:    req.Delta,
		UnitCost: req.UnitCost,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
