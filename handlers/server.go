package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/middlewares"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/sirupsen/logrus"
)

// Server serves the inventory API. It can start listening before the database is
// ready; until SetEngine is called every /api request gets 503.
type Server struct {
	engine atomic.Pointer[workflow.Engine]
	logger *logrus.Logger
}

func NewServer(logger *logrus.Logger) *Server {
	registerValidators()
	return &Server{logger: logger}
}

func (s *Server) SetEngine(e *workflow.Engine) {
	s.engine.Store(e)
}

func (s *Server) eng() *workflow.Engine {
	return s.engine.Load()
}

// Router builds the gin engine. Extra middleware (CORS, rate limiting) runs after the
// correlation id is assigned and before any route.
func (s *Server) Router(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.ErrorLogger(s.logger))
	r.Use(gin.Recovery())
	r.Use(extra...)

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := r.Group("/api/v1")
	api.Use(s.readiness)
	api.Use(middlewares.TenantMiddleware())

	items := api.Group("/items")
	items.POST("", s.createItem)
	items.GET("", s.listItems)
	items.GET("/:id", s.getItem)
	items.PUT("/:id", s.updateItem)
	items.DELETE("/:id", s.deleteItem)

	stock := api.Group("/stock")
	stock.POST("/movements", s.recordMovement)
	stock.GET("/movements", s.listMovements)
	stock.POST("/consume", s.consume)
	stock.PUT("/opening", s.setOpeningStock)
	stock.GET("/balances", s.stageBalances)
	stock.GET("/balances/:stage/:item_id", s.currentBalance)
	stock.GET("/valuation.xlsx", s.exportValuation)

	accounts := api.Group("/accounts")
	accounts.POST("", s.ensureAccount)
	accounts.GET("", s.listAccounts)
	accounts.GET("/:id", s.getAccount)
	accounts.PUT("/:id", s.updateAccount)
	accounts.POST("/validate", s.validateAccountEdit)
	accounts.POST("/subaccounts", s.allocateSubaccount)
	accounts.POST("/seed", s.seedChart)

	postings := api.Group("/postings")
	postings.POST("", s.createPosting)
	postings.GET("", s.listPostings)
	postings.GET("/:id", s.getPosting)

	purchases := api.Group("/purchases")
	purchases.POST("", s.createPurchase)
	purchases.GET("/:id", s.getPurchase)
	purchases.DELETE("/:id", s.deletePurchase)

	api.POST("/sales", s.createSale)
	api.POST("/production/start", s.startProduction)
	api.POST("/production/close", s.closeProduction)
	api.POST("/adjustments", s.adjustStock)

	r.NoRoute(customNotFoundHandler)
	return r
}

func (s *Server) readiness(c *gin.Context) {
	if s.eng() == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	c.Next()
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
