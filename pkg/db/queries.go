package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateBot inserts a new bot row.
func (d *Database) CreateBot(ctx context.Context, b Bot) error {
	params := b.Parameters
	if len(params) == 0 {
		params = []byte("{}")
	}
	risk := b.Risk
	if len(risk) == 0 {
		risk = []byte("{}")
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO bots (
			id, user_id, name, exchange, symbol, interval, market_type,
			strategy_type, parameters, risk, quantity, leverage, mode,
			trading_mode, testnet, status, paper_balance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.UserID, b.Name, b.Exchange, b.Symbol, b.Interval, b.MarketType,
		b.StrategyType, string(params), string(risk), b.Quantity, b.Leverage, b.Mode,
		b.TradingMode, b.Testnet, b.Status, b.PaperBalance)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	return nil
}

const botColumns = `
	id, user_id, name, exchange, symbol, interval, market_type,
	strategy_type, parameters, risk, quantity, leverage, mode,
	trading_mode, testnet, status, paper_balance,
	total_trades, winning_trades, total_pnl, created_at, updated_at`

func scanBot(row interface{ Scan(...any) error }) (Bot, error) {
	var b Bot
	var params, risk string
	err := row.Scan(
		&b.ID, &b.UserID, &b.Name, &b.Exchange, &b.Symbol, &b.Interval, &b.MarketType,
		&b.StrategyType, &params, &risk, &b.Quantity, &b.Leverage, &b.Mode,
		&b.TradingMode, &b.Testnet, &b.Status, &b.PaperBalance,
		&b.Performance.TotalTrades, &b.Performance.WinningTrades, &b.Performance.TotalPnL,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Bot{}, err
	}
	b.Parameters = []byte(params)
	b.Risk = []byte(risk)
	if b.Performance.TotalTrades > 0 {
		b.Performance.WinRate = float64(b.Performance.WinningTrades) / float64(b.Performance.TotalTrades) * 100
	}
	return b, nil
}

// GetBot returns one bot by id.
func (d *Database) GetBot(ctx context.Context, id string) (Bot, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT`+botColumns+` FROM bots WHERE id = ?`, id)
	b, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Bot{}, ErrNotFound
	}
	if err != nil {
		return Bot{}, fmt.Errorf("get bot %s: %w", id, err)
	}
	return b, nil
}

// ListBotsByUser returns all bots owned by a user.
func (d *Database) ListBotsByUser(ctx context.Context, userID string) ([]Bot, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT`+botColumns+` FROM bots WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()
	return collectBots(rows)
}

// ListBotsByStatus returns all bots in a given status, across users. Used at
// boot to re-arm bots persisted as running.
func (d *Database) ListBotsByStatus(ctx context.Context, status string) ([]Bot, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT`+botColumns+` FROM bots WHERE status = ?`, status)
	if err != nil {
		return nil, fmt.Errorf("list bots by status: %w", err)
	}
	defer rows.Close()
	return collectBots(rows)
}

func collectBots(rows *sql.Rows) ([]Bot, error) {
	var out []Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBot removes a bot and all of its history.
func (d *Database) DeleteBot(ctx context.Context, id string) error {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	for _, table := range []string{"trades", "paper_trades", "bot_logs", "pending_approvals"} {
		if _, err := d.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE bot_id = ?`, id); err != nil {
			return fmt.Errorf("delete bot %s: %w", table, err)
		}
	}
	return nil
}

// ClearPaperTrades wipes a bot's simulated history, for paper resets.
func (d *Database) ClearPaperTrades(ctx context.Context, botID string) error {
	if _, err := d.DB.ExecContext(ctx, `DELETE FROM paper_trades WHERE bot_id = ?`, botID); err != nil {
		return fmt.Errorf("clear paper trades: %w", err)
	}
	return nil
}

// UpdateBotStatus transitions a bot's status.
func (d *Database) UpdateBotStatus(ctx context.Context, id, status string) error {
	res, err := d.DB.ExecContext(ctx,
		`UPDATE bots SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update bot status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBotPerformance overwrites the aggregate counters.
func (d *Database) UpdateBotPerformance(ctx context.Context, id string, p Performance) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE bots SET total_trades = ?, winning_trades = ?, total_pnl = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.TotalTrades, p.WinningTrades, p.TotalPnL, id)
	if err != nil {
		return fmt.Errorf("update bot performance: %w", err)
	}
	return nil
}

// UpdateBotPaperBalance persists the current paper ledger balance.
func (d *Database) UpdateBotPaperBalance(ctx context.Context, id string, balance float64) error {
	_, err := d.DB.ExecContext(ctx,
		`UPDATE bots SET paper_balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, balance, id)
	if err != nil {
		return fmt.Errorf("update paper balance: %w", err)
	}
	return nil
}

// RecomputePerformance rebuilds the aggregate from the last 30 days of trade
// history. Paper bots aggregate paper_trades, live bots aggregate trades.
func (d *Database) RecomputePerformance(ctx context.Context, botID string, paper bool) (Performance, error) {
	table := "trades"
	if paper {
		table = "paper_trades"
	}
	var p Performance
	err := d.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM `+table+` WHERE bot_id = ? AND created_at >= datetime('now', '-30 days')
	`, botID).Scan(&p.TotalTrades, &p.WinningTrades, &p.TotalPnL)
	if err != nil {
		return Performance{}, fmt.Errorf("recompute performance: %w", err)
	}
	if p.TotalTrades > 0 {
		p.WinRate = float64(p.WinningTrades) / float64(p.TotalTrades) * 100
	}
	if err := d.UpdateBotPerformance(ctx, botID, p); err != nil {
		return Performance{}, err
	}
	return p, nil
}

// InsertTrade appends a live trade record.
func (d *Database) InsertTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (id, bot_id, user_id, symbol, side, qty, price, pnl, order_id, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.BotID, t.UserID, t.Symbol, t.Side, t.Qty, t.Price, t.PnL, t.OrderID, t.Reason)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// ListTradesByBot returns recent trades, newest first.
func (d *Database) ListTradesByBot(ctx context.Context, botID string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, bot_id, user_id, symbol, side, qty, price, pnl,
		       COALESCE(order_id, ''), COALESCE(reason, ''), created_at
		FROM trades WHERE bot_id = ? ORDER BY created_at DESC LIMIT ?
	`, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.BotID, &t.UserID, &t.Symbol, &t.Side, &t.Qty,
			&t.Price, &t.PnL, &t.OrderID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertPaperTrade appends a simulated trade record.
func (d *Database) InsertPaperTrade(ctx context.Context, t PaperTrade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO paper_trades (id, bot_id, user_id, symbol, side, qty, price, pnl, balance_after, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.BotID, t.UserID, t.Symbol, t.Side, t.Qty, t.Price, t.PnL, t.BalanceAfter, t.Reason)
	if err != nil {
		return fmt.Errorf("insert paper trade: %w", err)
	}
	return nil
}

// ListPaperTradesByBot returns recent paper trades, newest first.
func (d *Database) ListPaperTradesByBot(ctx context.Context, botID string, limit int) ([]PaperTrade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, bot_id, user_id, symbol, side, qty, price, pnl, balance_after,
		       COALESCE(reason, ''), created_at
		FROM paper_trades WHERE bot_id = ? ORDER BY created_at DESC LIMIT ?
	`, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("list paper trades: %w", err)
	}
	defer rows.Close()

	var out []PaperTrade
	for rows.Next() {
		var t PaperTrade
		if err := rows.Scan(&t.ID, &t.BotID, &t.UserID, &t.Symbol, &t.Side, &t.Qty,
			&t.Price, &t.PnL, &t.BalanceAfter, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetPaperStats aggregates a bot's paper trading results.
func (d *Database) GetPaperStats(ctx context.Context, botID string) (PaperStats, error) {
	var s PaperStats
	err := d.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM paper_trades WHERE bot_id = ?
	`, botID).Scan(&s.TotalTrades, &s.WinningTrades, &s.TotalPnL)
	if err != nil {
		return PaperStats{}, fmt.Errorf("paper stats: %w", err)
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}
	err = d.DB.QueryRowContext(ctx, `SELECT paper_balance FROM bots WHERE id = ?`, botID).Scan(&s.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return PaperStats{}, ErrNotFound
	}
	if err != nil {
		return PaperStats{}, fmt.Errorf("paper stats balance: %w", err)
	}
	return s, nil
}

// AppendBotLog writes one log line for a bot.
func (d *Database) AppendBotLog(ctx context.Context, botID, level, message string) error {
	_, err := d.DB.ExecContext(ctx,
		`INSERT INTO bot_logs (bot_id, level, message) VALUES (?, ?, ?)`, botID, level, message)
	if err != nil {
		return fmt.Errorf("append bot log: %w", err)
	}
	return nil
}

// ListBotLogs returns recent log lines, newest first.
func (d *Database) ListBotLogs(ctx context.Context, botID string, limit int) ([]BotLog, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, bot_id, level, message, created_at
		FROM bot_logs WHERE bot_id = ? ORDER BY id DESC LIMIT ?
	`, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bot logs: %w", err)
	}
	defer rows.Close()

	var out []BotLog
	for rows.Next() {
		var l BotLog
		if err := rows.Scan(&l.ID, &l.BotID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertStrategyConfig creates or replaces a shared strategy config.
func (d *Database) UpsertStrategyConfig(ctx context.Context, c StrategyConfig) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO strategy_configs (id, user_id, name, config)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config = excluded.config,
			updated_at = CURRENT_TIMESTAMP
	`, c.ID, c.UserID, c.Name, string(c.Config))
	if err != nil {
		return fmt.Errorf("upsert strategy config: %w", err)
	}
	return nil
}

// GetStrategyConfig returns one shared strategy config.
func (d *Database) GetStrategyConfig(ctx context.Context, id string) (StrategyConfig, error) {
	var c StrategyConfig
	var cfg string
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, user_id, name, config, created_at, updated_at
		FROM strategy_configs WHERE id = ?
	`, id).Scan(&c.ID, &c.UserID, &c.Name, &cfg, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StrategyConfig{}, ErrNotFound
	}
	if err != nil {
		return StrategyConfig{}, fmt.Errorf("get strategy config: %w", err)
	}
	c.Config = []byte(cfg)
	return c, nil
}

// CreatePendingApproval records a manual-mode trade awaiting confirmation.
func (d *Database) CreatePendingApproval(ctx context.Context, a PendingApproval) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO pending_approvals (id, bot_id, user_id, action, qty, price, reason, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending')
	`, a.ID, a.BotID, a.UserID, a.Action, a.Qty, a.Price, a.Reason)
	if err != nil {
		return fmt.Errorf("create pending approval: %w", err)
	}
	return nil
}

// ListPendingApprovals returns unresolved approvals for a bot.
func (d *Database) ListPendingApprovals(ctx context.Context, botID string) ([]PendingApproval, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, bot_id, user_id, action, qty, price, COALESCE(reason, ''), status, created_at, resolved_at
		FROM pending_approvals WHERE bot_id = ? AND status = 'pending' ORDER BY created_at
	`, botID)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var out []PendingApproval
	for rows.Next() {
		var a PendingApproval
		if err := rows.Scan(&a.ID, &a.BotID, &a.UserID, &a.Action, &a.Qty, &a.Price,
			&a.Reason, &a.Status, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetPendingApproval returns one approval by id, in any status.
func (d *Database) GetPendingApproval(ctx context.Context, id string) (PendingApproval, error) {
	var a PendingApproval
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, bot_id, user_id, action, qty, price, COALESCE(reason, ''), status, created_at, resolved_at
		FROM pending_approvals WHERE id = ?
	`, id).Scan(&a.ID, &a.BotID, &a.UserID, &a.Action, &a.Qty, &a.Price,
		&a.Reason, &a.Status, &a.CreatedAt, &a.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingApproval{}, ErrNotFound
	}
	if err != nil {
		return PendingApproval{}, fmt.Errorf("get pending approval: %w", err)
	}
	return a, nil
}

// ResolvePendingApproval transitions a pending approval to approved,
// rejected, or expired. Only pending rows may transition.
func (d *Database) ResolvePendingApproval(ctx context.Context, id, status string) (PendingApproval, error) {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE pending_approvals SET status = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`, status, id)
	if err != nil {
		return PendingApproval{}, fmt.Errorf("resolve pending approval: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return PendingApproval{}, ErrNotFound
	}

	var a PendingApproval
	err = d.DB.QueryRowContext(ctx, `
		SELECT id, bot_id, user_id, action, qty, price, COALESCE(reason, ''), status, created_at, resolved_at
		FROM pending_approvals WHERE id = ?
	`, id).Scan(&a.ID, &a.BotID, &a.UserID, &a.Action, &a.Qty, &a.Price,
		&a.Reason, &a.Status, &a.CreatedAt, &a.ResolvedAt)
	if err != nil {
		return PendingApproval{}, fmt.Errorf("load resolved approval: %w", err)
	}
	return a, nil
}

// UpsertAPICredential stores or replaces a user's sealed credentials for a
// venue.
func (d *Database) UpsertAPICredential(ctx context.Context, c APICredential) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO api_credentials (user_id, exchange, api_key, api_secret, passphrase)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, exchange) DO UPDATE SET
			api_key = excluded.api_key,
			api_secret = excluded.api_secret,
			passphrase = excluded.passphrase,
			updated_at = CURRENT_TIMESTAMP
	`, c.UserID, strings.ToLower(c.Exchange), c.APIKey, c.APISecret, c.Passphrase)
	if err != nil {
		return fmt.Errorf("upsert api credential: %w", err)
	}
	return nil
}

// GetAPICredential loads one user's sealed credentials for a venue.
func (d *Database) GetAPICredential(ctx context.Context, userID, exchange string) (APICredential, error) {
	var c APICredential
	err := d.DB.QueryRowContext(ctx, `
		SELECT user_id, exchange, api_key, api_secret, passphrase, created_at, updated_at
		FROM api_credentials WHERE user_id = ? AND exchange = ?
	`, userID, strings.ToLower(exchange)).Scan(
		&c.UserID, &c.Exchange, &c.APIKey, &c.APISecret, &c.Passphrase, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return APICredential{}, ErrNotFound
	}
	if err != nil {
		return APICredential{}, fmt.Errorf("get api credential: %w", err)
	}
	return c, nil
}

// ListAPICredentials returns all venues a user has stored credentials for.
func (d *Database) ListAPICredentials(ctx context.Context, userID string) ([]APICredential, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT user_id, exchange, api_key, api_secret, passphrase, created_at, updated_at
		FROM api_credentials WHERE user_id = ? ORDER BY exchange
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api credentials: %w", err)
	}
	defer rows.Close()

	var out []APICredential
	for rows.Next() {
		var c APICredential
		if err := rows.Scan(&c.UserID, &c.Exchange, &c.APIKey, &c.APISecret, &c.Passphrase,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteAPICredential removes a user's stored credentials for a venue.
func (d *Database) DeleteAPICredential(ctx context.Context, userID, exchange string) error {
	res, err := d.DB.ExecContext(ctx,
		`DELETE FROM api_credentials WHERE user_id = ? AND exchange = ?`,
		userID, strings.ToLower(exchange))
	if err != nil {
		return fmt.Errorf("delete api credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
