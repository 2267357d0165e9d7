package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/credentials"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/monitor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/scheduler"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/state"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/cache"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// Server exposes the engine over HTTP. Tokens are issued by the platform's
// web backend; the engine only verifies them against the shared secret.
type Server struct {
	Router    *gin.Engine
	DB        *db.Database
	States    *state.Manager
	Bus       *events.Bus
	Sched     *scheduler.Scheduler
	Factory   *exchange.Factory
	Creds     *credentials.Store
	JWTSecret string

	// Metrics is optional; when set, /health includes an activity snapshot.
	Metrics *monitor.Collector

	// DefaultPaperBalance seeds paper bots when the request omits a balance.
	// Zero falls back to the built-in default.
	DefaultPaperBalance float64

	log     *zap.Logger
	candles *cache.KlineCache
}

func NewServer(deps executor.Deps, sched *scheduler.Scheduler, factory *exchange.Factory, creds *credentials.Store, jwtSecret string) *Server {
	r := gin.New()
	log := deps.Log.Named("api")

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(log))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		DB:        deps.DB,
		States:    deps.States,
		Bus:       deps.Bus,
		Sched:     sched,
		Factory:   factory,
		Creds:     creds,
		JWTSecret: jwtSecret,
		log:       log,
		candles:   cache.NewKlineCache(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	api.Use(AuthMiddleware(s.JWTSecret))
	{
		api.GET("/exchanges", s.listExchanges)

		api.POST("/bots", s.createBot)
		api.GET("/bots", s.listBots)
		api.GET("/bots/:id", s.getBot)
		api.DELETE("/bots/:id", s.deleteBot)
		api.POST("/bots/:id/start", s.startBot)
		api.POST("/bots/:id/stop", s.stopBot)
		api.GET("/bots/:id/status", s.botStatus)
		api.GET("/bots/:id/logs", s.botLogs)
		api.GET("/bots/:id/trades", s.botTrades)
		api.GET("/bots/:id/paper/stats", s.paperStats)
		api.POST("/bots/:id/paper/reset", s.resetPaper)

		api.GET("/bots/:id/approvals", s.listApprovals)
		api.POST("/approvals/:id/resolve", s.resolveApproval)

		api.POST("/backtest", s.runBacktest)
		api.POST("/strategy/test", s.testStrategy)
		api.POST("/credentials/validate", s.validateCredentials)
		api.GET("/credentials", s.listCredentials)
		api.PUT("/credentials", s.saveCredentials)
		api.DELETE("/credentials/:exchange", s.deleteCredentials)

		api.POST("/strategy-configs", s.upsertStrategyConfig)
		api.GET("/strategy-configs/:id", s.getStrategyConfig)
	}
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.Metrics != nil {
		resp["metrics"] = s.Metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listExchanges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"exchanges": s.Factory.Supported(),
		"intervals": exchange.CanonicalIntervals,
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
