package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type movementRequest struct {
	Stage     int    `json:"stage" binding:"required,oneof=1 2 3"`
	ItemId    int    `json:"item_id" binding:"required,gt=0"`
	Kind      string `json:"kind" binding:"required"`
	Quantity  string `json:"quantity" binding:"required,decimal"`
	UnitCost  string `json:"unit_cost" binding:"omitempty,decimal"`
	Reference string `json:"reference" binding:"max=255"`
}

type movementQuery struct {
	Stage  int    `form:"stage" binding:"omitempty,oneof=1 2 3"`
	ItemId int    `form:"item_id" binding:"gte=0"`
	Kind   string `form:"kind"`
	Limit  int    `form:"limit" binding:"gte=0,lte=1000"`
	Offset int    `form:"offset" binding:"gte=0"`
}

type consumeRequest struct {
	Stage     int    `json:"stage" binding:"required,oneof=1 2 3"`
	ItemId    int    `json:"item_id" binding:"required,gt=0"`
	Quantity  string `json:"quantity" binding:"required,decimal"`
	Reference string `json:"reference" binding:"max=255"`
}

type openingStockRequest struct {
	Stage    int        `json:"stage" binding:"required,oneof=1 2 3"`
	ItemId   int        `json:"item_id" binding:"required,gt=0"`
	Quantity string     `json:"quantity" binding:"required,decimal"`
	UnitCost string     `json:"unit_cost" binding:"omitempty,decimal"`
	AsOf     *time.Time `json:"as_of"`
}

func (s *Server) recordMovement(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	row, err := s.eng().RecordMovement(c.Request.Context(), models.NewMovement{
		Stage:     req.Stage,
		ItemId:    req.ItemId,
		Kind:      req.Kind,
		Quantity:  req.Quantity,
		UnitCost:  req.UnitCost,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) listMovements(c *gin.Context) {
	var q movementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	filter := models.MovementFilter{
		Stage:  models.InventoryStage(q.Stage),
		ItemId: q.ItemId,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Kind != "" {
		kind, err := models.ParseMovementKind(q.Kind)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Kind = kind
	}
	rows, err := s.eng().ListMovements(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []*models.StockMovement{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	qty, err := models.ParseQuantity(req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := s.eng().Consume(c.Request.Context(), workflow.ConsumeInput{
		Stage:     models.InventoryStage(req.Stage),
		ItemId:    req.ItemId,
		Quantity:  qty,
		Reference: req.Reference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) setOpeningStock(c *gin.Context) {
	var req openingStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	input := workflow.NewOpeningStock{
		Stage:    req.Stage,
		ItemId:   req.ItemId,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
	}
	if req.AsOf != nil {
		input.AsOf = *req.AsOf
	}
	opening, err := s.eng().SetOpeningStock(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opening)
}

func (s *Server) currentBalance(c *gin.Context) {
	stage, err := strconv.Atoi(c.Param("stage"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid stage " + strconv.Quote(c.Param("stage"))})
		return
	}
	itemId, ok := pathId(c, "item_id")
	if !ok {
		return
	}
	balance, err := s.eng().CurrentBalance(c.Request.Context(), models.InventoryStage(stage), itemId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (s *Server) stageBalances(c *gin.Context) {
	stage := 0
	if raw := c.Query("stage"); raw != "" {
		var err error
		if stage, err = strconv.Atoi(raw); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid stage " + strconv.Quote(raw)})
			return
		}
	}
	balances, err := s.eng().StageBalances(c.Request.Context(), models.InventoryStage(stage))
	if err != nil {
		writeError(c, err)
		return
	}
	if balances == nil {
		balances = []*workflow.StockBalance{}
	}
	c.JSON(http.StatusOK, balances)
}

func (s *Server) exportValuation(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.eng().ExportStockValuation(c.Request.Context(), &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="stock-valuation.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
