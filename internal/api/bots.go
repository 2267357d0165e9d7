package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/executor"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/strategy"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

type createBotRequest struct {
	Name         string          `json:"name" binding:"required,min=1,max=120"`
	Exchange     string          `json:"exchange" binding:"required,min=1"`
	Symbol       string          `json:"symbol" binding:"required,min=1"`
	Interval     string          `json:"interval" binding:"required,min=1"`
	MarketType   string          `json:"marketType"`
	StrategyType string          `json:"strategyType" binding:"required,min=1"`
	Parameters   json.RawMessage `json:"parameters"`
	Risk         json.RawMessage `json:"risk"`
	Quantity     float64         `json:"quantity" binding:"gt=0"`
	Leverage     int             `json:"leverage"`
	Mode         string          `json:"mode"`
	TradingMode  string          `json:"tradingMode"`
	Testnet      bool            `json:"testnet"`
	PaperBalance float64         `json:"paperBalance"`
}

func (r *createBotRequest) normalize(paperBalance float64) {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Exchange = strings.ToLower(strings.TrimSpace(r.Exchange))
	if r.MarketType == "" {
		r.MarketType = string(exchange.MarketSpot)
	}
	if r.Mode == "" {
		r.Mode = "auto"
	}
	if r.TradingMode == "" {
		r.TradingMode = "paper"
	}
	if r.Leverage < 1 {
		r.Leverage = 1
	}
	if r.PaperBalance <= 0 {
		r.PaperBalance = paperBalance
	}
}

// paperDefault is the seed balance for paper bots when neither the request
// nor the deployment configures one.
func (s *Server) paperDefault() float64 {
	if s.DefaultPaperBalance > 0 {
		return s.DefaultPaperBalance
	}
	return 10000
}

func (r *createBotRequest) validate() string {
	if !exchange.IsCanonicalInterval(r.Interval) {
		return "unsupported interval " + r.Interval
	}
	if r.MarketType != string(exchange.MarketSpot) && r.MarketType != string(exchange.MarketFutures) {
		return "marketType must be spot or futures"
	}
	if r.Mode != "auto" && r.Mode != "manual" {
		return "mode must be auto or manual"
	}
	if r.TradingMode != "paper" && r.TradingMode != "live" {
		return "tradingMode must be paper or live"
	}
	return ""
}

func (s *Server) createBot(c *gin.Context) {
	var req createBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	req.normalize(s.paperDefault())
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BOT", "error": msg})
		return
	}

	// Strategy and risk configuration must resolve before the bot exists,
	// so ticks never see bad shapes.
	params, err := strategy.ParseParams(req.StrategyType, req.Parameters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STRATEGY", "error": err.Error()})
		return
	}
	if _, err := executor.ParseRiskSpec(params, req.Risk); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_RISK", "error": err.Error()})
		return
	}

	supported := false
	for _, v := range s.Factory.Supported() {
		if v == req.Exchange {
			supported = true
			break
		}
	}
	if !supported {
		c.JSON(http.StatusBadRequest, gin.H{"code": "UNKNOWN_EXCHANGE", "error": "unsupported exchange " + req.Exchange})
		return
	}

	bot := db.Bot{
		ID:           uuid.NewString(),
		UserID:       CurrentUserID(c),
		Name:         req.Name,
		Exchange:     req.Exchange,
		Symbol:       req.Symbol,
		Interval:     req.Interval,
		MarketType:   req.MarketType,
		StrategyType: req.StrategyType,
		Parameters:   req.Parameters,
		Risk:         req.Risk,
		Quantity:     req.Quantity,
		Leverage:     req.Leverage,
		Mode:         req.Mode,
		TradingMode:  req.TradingMode,
		Testnet:      req.Testnet,
		Status:       "stopped",
		PaperBalance: req.PaperBalance,
	}
	if err := s.DB.CreateBot(c.Request.Context(), bot); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}

	created, err := s.DB.GetBot(c.Request.Context(), bot.ID)
	if err != nil {
		created = bot
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listBots(c *gin.Context) {
	bots, err := s.DB.ListBotsByUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if bots == nil {
		bots = []db.Bot{}
	}
	c.JSON(http.StatusOK, gin.H{"bots": bots})
}

// ownedBot loads the path bot and enforces ownership. Foreign bots read as
// not found rather than forbidden.
func (s *Server) ownedBot(c *gin.Context) (db.Bot, bool) {
	bot, err := s.DB.GetBot(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return db.Bot{}, false
	}
	if errors.Is(err, db.ErrNotFound) || bot.UserID != CurrentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"code": "BOT_NOT_FOUND", "error": "bot not found"})
		return db.Bot{}, false
	}
	return bot, true
}

func (s *Server) getBot(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (s *Server) deleteBot(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	if s.Sched.Running(bot.ID) {
		if err := s.Sched.Stop(c.Request.Context(), bot.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
			return
		}
	}
	if err := s.DB.DeleteBot(c.Request.Context(), bot.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": bot.ID})
}

func (s *Server) startBot(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	if err := s.Sched.Start(c.Request.Context(), bot.ID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "START_FAILED", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": bot.ID, "status": "running"})
}

func (s *Server) stopBot(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	if err := s.Sched.Stop(c.Request.Context(), bot.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "STOP_FAILED", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": bot.ID, "status": "stopped"})
}

func (s *Server) botStatus(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	resp := gin.H{
		"bot":     bot,
		"running": s.Sched.Running(bot.ID),
	}
	if st, live := s.States.Get(bot.ID); live {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) botLogs(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	logs, err := s.DB.ListBotLogs(c.Request.Context(), bot.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if logs == nil {
		logs = []db.BotLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) botTrades(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	ctx := c.Request.Context()

	if bot.TradingMode == "live" {
		trades, err := s.DB.ListTradesByBot(ctx, bot.ID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
			return
		}
		if trades == nil {
			trades = []db.Trade{}
		}
		c.JSON(http.StatusOK, gin.H{"trades": trades, "paper": false})
		return
	}

	trades, err := s.DB.ListPaperTradesByBot(ctx, bot.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if trades == nil {
		trades = []db.PaperTrade{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "paper": true})
}

func (s *Server) paperStats(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	stats, err := s.DB.GetPaperStats(c.Request.Context(), bot.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	resp := gin.H{"stats": stats}
	if st, live := s.States.Get(bot.ID); live {
		resp["position"] = st.Position
		resp["entryPrice"] = st.EntryPrice
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) resetPaper(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	if s.Sched.Running(bot.ID) {
		c.JSON(http.StatusConflict, gin.H{"code": "BOT_RUNNING", "error": "stop the bot before resetting paper history"})
		return
	}

	var req struct {
		Balance float64 `json:"balance"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Balance <= 0 {
		req.Balance = s.paperDefault()
	}

	ctx := c.Request.Context()
	if err := s.DB.ClearPaperTrades(ctx, bot.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if err := s.DB.UpdateBotPaperBalance(ctx, bot.ID, req.Balance); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if _, err := s.DB.RecomputePerformance(ctx, bot.ID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": bot.ID, "paperBalance": req.Balance})
}

func (s *Server) listApprovals(c *gin.Context) {
	bot, ok := s.ownedBot(c)
	if !ok {
		return
	}
	approvals, err := s.DB.ListPendingApprovals(c.Request.Context(), bot.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if approvals == nil {
		approvals = []db.PendingApproval{}
	}
	c.JSON(http.StatusOK, gin.H{"approvals": approvals})
}

func (s *Server) resolveApproval(c *gin.Context) {
	var req struct {
		Decision string `json:"decision" binding:"required,oneof=approve reject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "decision must be approve or reject"})
		return
	}

	ctx := c.Request.Context()
	approval, err := s.DB.GetPendingApproval(ctx, c.Param("id"))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if errors.Is(err, db.ErrNotFound) || approval.UserID != CurrentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"code": "APPROVAL_NOT_FOUND", "error": "approval not found"})
		return
	}

	if req.Decision == "reject" {
		resolved, err := s.DB.ResolvePendingApproval(ctx, approval.ID, "rejected")
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_RESOLVED", "error": "approval already resolved"})
			return
		}
		c.JSON(http.StatusOK, resolved)
		return
	}

	runner, running := s.Sched.Runner(approval.BotID)
	if !running {
		// The bot went away since the signal fired; the intent is stale.
		if resolved, rerr := s.DB.ResolvePendingApproval(ctx, approval.ID, "expired"); rerr == nil {
			c.JSON(http.StatusConflict, gin.H{"code": "BOT_NOT_RUNNING", "error": "bot is not running", "approval": resolved})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_RESOLVED", "error": "approval already resolved"})
		return
	}

	resolved, err := s.DB.ResolvePendingApproval(ctx, approval.ID, "approved")
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_RESOLVED", "error": "approval already resolved"})
		return
	}
	if err := runner.ExecuteApproved(ctx, resolved); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "EXECUTION_FAILED", "error": err.Error(), "approval": resolved})
		return
	}
	c.JSON(http.StatusOK, resolved)
}

func (s *Server) upsertStrategyConfig(c *gin.Context) {
	var req struct {
		ID     string          `json:"id"`
		Name   string          `json:"name" binding:"required,min=1,max=120"`
		Config json.RawMessage `json:"config" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": err.Error()})
		return
	}
	if _, err := strategy.ParseParams("config_driven", req.Config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STRATEGY", "error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID := CurrentUserID(c)
	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if existing, err := s.DB.GetStrategyConfig(ctx, req.ID); err == nil && existing.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"code": "CONFIG_NOT_FOUND", "error": "strategy config not found"})
		return
	}

	cfg := db.StrategyConfig{ID: req.ID, UserID: userID, Name: req.Name, Config: req.Config}
	if err := s.DB.UpsertStrategyConfig(ctx, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	saved, err := s.DB.GetStrategyConfig(ctx, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) getStrategyConfig(c *gin.Context) {
	cfg, err := s.DB.GetStrategyConfig(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		return
	}
	if errors.Is(err, db.ErrNotFound) || cfg.UserID != CurrentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"code": "CONFIG_NOT_FOUND", "error": "strategy config not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
