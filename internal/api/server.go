// Package api exposes the balance reader, wallet session, investment flow
// and project ledger over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/observability"
	"capitoro/internal/storage"
	"capitoro/internal/wallet"
)

// BalanceReader reads cached wallet balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string, force bool) (decimal.Decimal, error)
	Lookup(address string) (domain.WalletBalance, bool)
}

// Deps are the components served by the API. Analytics is optional.
type Deps struct {
	Balances    BalanceReader
	Session     *wallet.Session
	Flow        *investment.Flow
	Projects    storage.ProjectStore
	Investments storage.InvestmentStore
	Analytics   storage.InvestmentAnalytics
	Cluster     string
	Logger      *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	log  *zap.Logger
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{
		deps: deps,
		log:  deps.Logger.Named("api"),
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/api/v1")
	{
		wallets := v1.Group("/wallets/:address")
		{
			wallets.GET("/balance", s.getBalance)
			wallets.GET("/validate", s.validateAddress)
		}

		v1.GET("/wallet", s.getWallet)
		v1.POST("/wallet/connect", s.connectWallet)
		v1.POST("/wallet/disconnect", s.disconnectWallet)

		projects := v1.Group("/projects")
		{
			projects.POST("", s.createProject)
			projects.GET("", s.listProjects)
			projects.GET("/:id", s.getProject)
			projects.GET("/:id/analytics", s.projectAnalytics)
			projects.POST("/:id/investments", s.invest)
			projects.GET("/:id/investments", s.listProjectInvestments)
		}

		v1.GET("/investors/:id/investments", s.listInvestorInvestments)

		v1.GET("/flow", s.getFlow)
		v1.POST("/flow/reset", s.resetFlow)
	}

	return r
}

// requestLogger logs and counts completed requests.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()))
		s.log.Debug("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "capitoro",
	})
}
