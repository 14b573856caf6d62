package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
	"github.com/shopspring/decimal"
)

type postingLineRequest struct {
	AccountId int    `json:"account_id" binding:"required,gt=0"`
	Debit     string `json:"debit" binding:"omitempty,decimal"`
	Credit    string `json:"credit" binding:"omitempty,decimal"`
}

type postingRequest struct {
	Concept string               `json:"concept" binding:"required,max=255"`
	Date    *time.Time           `json:"date"`
	Lines   []postingLineRequest `json:"lines" binding:"required,dive"`
}

type postingQuery struct {
	ReferenceType string `form:"reference_type" binding:"required"`
	ReferenceId   int    `form:"reference_id" binding:"required,gt=0"`
}

func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return utils.ParseDecimal(s)
}

func (req *postingRequest) toInput() (*models.NewPosting, error) {
	input := &models.NewPosting{Concept: req.Concept}
	if req.Date != nil {
		input.Date = *req.Date
	}
	for i, line := range req.Lines {
		debit, err := optionalAmount(line.Debit)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: debit: %v", models.ErrInvalidArgument, i+1, err)
		}
		credit, err := optionalAmount(line.Credit)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: credit: %v", models.ErrInvalidArgument, i+1, err)
		}
		input.Lines = append(input.Lines, models.NewPostingLine{
			AccountId: line.AccountId,
			Debit:     debit,
			Credit:    credit,
		})
	}
	return input, nil
}

func (s *Server) createPosting(c *gin.Context) {
	var req postingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}
	posting, err := s.eng().Post(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, posting)
}

func (s *Server) getPosting(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	posting, err := s.eng().GetPosting(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posting)
}

func (s *Server) listPostings(c *gin.Context) {
	var q postingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	refType := models.PostingReferenceType(strings.ToUpper(strings.TrimSpace(q.ReferenceType)))
	postings, err := s.eng().ListPostingsByReference(c.Request.Context(), refType, q.ReferenceId)
	if err != nil {
		writeError(c, err)
		return
	}
	if postings == nil {
		postings = []*models.Posting{}
	}
	c.JSON(http.StatusOK, postings)
}
