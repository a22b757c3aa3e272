package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Odds multipliers are stored as NUMERIC for exact decimal precision; stake
// units are BIGINT. Both atomic composites run inside a single transaction
// with `WHERE version = $n` guards, so a concurrent writer surfaces as zero
// affected rows and the whole unit rolls back.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// --- Accounts ---

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts
		   (id, handle, balance, total_wagered, total_won, total_lost,
		    wagers_total, wagers_won, wagers_lost, wagers_pending,
		    active, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Handle, a.Balance, a.TotalWagered, a.TotalWon, a.TotalLost,
		a.Counts.Total, a.Counts.Won, a.Counts.Lost, a.Counts.Pending,
		a.Active, a.Version, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateHandle
	}
	return err
}

const accountColumns = `id, handle, balance, total_wagered, total_won, total_lost,
	wagers_total, wagers_won, wagers_lost, wagers_pending, active, version, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Handle, &a.Balance, &a.TotalWagered, &a.TotalWon, &a.TotalLost,
		&a.Counts.Total, &a.Counts.Won, &a.Counts.Lost, &a.Counts.Pending,
		&a.Active, &a.Version, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *PostgresStore) GetAccountByHandle(ctx context.Context, handle string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle))
}

func (s *PostgresStore) DeactivateAccount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET active = FALSE, version = version + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// --- Markets ---

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets
		   (id, event_code, sport, side_a_name, side_b_name, start_time,
		    status, betting_open,
		    side_a_count, side_a_staked, side_b_count, side_b_staked,
		    odds_a, odds_b, outcome, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13::NUMERIC, $14::NUMERIC, NULLIF($15, ''), $16, $17)`,
		m.ID, m.EventCode, m.Sport, m.SideAName, m.SideBName, m.StartTime,
		m.Status, m.BettingOpen,
		m.SideA.Count, m.SideA.Staked, m.SideB.Count, m.SideB.Staked,
		m.OddsA.String(), m.OddsB.String(), string(m.Outcome), m.Version, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateEventCode
	}
	return err
}

const marketColumns = `id, event_code, sport, side_a_name, side_b_name, start_time,
	status, betting_open,
	side_a_count, side_a_staked, side_b_count, side_b_staked,
	odds_a::TEXT, odds_b::TEXT, COALESCE(outcome, ''), version, created_at`

func scanMarket(row pgx.Row) (*model.Market, error) {
	var m model.Market
	var oddsA, oddsB, outcome string

	err := row.Scan(&m.ID, &m.EventCode, &m.Sport, &m.SideAName, &m.SideBName, &m.StartTime,
		&m.Status, &m.BettingOpen,
		&m.SideA.Count, &m.SideA.Staked, &m.SideB.Count, &m.SideB.Staked,
		&oddsA, &oddsB, &outcome, &m.Version, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrMarketNotFound
	}
	if err != nil {
		return nil, err
	}

	m.OddsA, _ = decimal.NewFromString(oddsA)
	m.OddsB, _ = decimal.NewFromString(oddsB)
	m.Outcome = model.Outcome(outcome)
	return &m, nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	return scanMarket(s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`, id))
}

func (s *PostgresStore) GetMarketByEventCode(ctx context.Context, code string) (*model.Market, error) {
	return scanMarket(s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE event_code = $1`, code))
}

func (s *PostgresStore) listMarkets(ctx context.Context, query string, args ...any) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.listMarkets(ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY created_at DESC`)
}

func (s *PostgresStore) ListMarketsByStatus(ctx context.Context, status model.MarketStatus) ([]model.Market, error) {
	return s.listMarkets(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE status = $1 ORDER BY created_at DESC`, status)
}

func (s *PostgresStore) UpdateMarketStatus(ctx context.Context, id string, status model.MarketStatus, bettingOpen bool, version int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET status = $2, betting_open = $3, version = version + 1
		 WHERE id = $1 AND version = $4`,
		id, status, bettingOpen, version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.versionOrMissingMarket(ctx, id)
	}
	return nil
}

func (s *PostgresStore) SetMarketOutcome(ctx context.Context, id string, outcome model.Outcome, version int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET outcome = $2, version = version + 1
		 WHERE id = $1 AND version = $3 AND outcome IS NULL`,
		id, outcome, version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		m, getErr := s.GetMarket(ctx, id)
		if getErr != nil {
			return getErr
		}
		if m.Outcome != "" {
			return model.ErrOutcomeAlreadySet
		}
		return model.ErrVersionConflict
	}
	return nil
}

// versionOrMissingMarket distinguishes a stale version from a missing row
// after a guarded update affected nothing.
func (s *PostgresStore) versionOrMissingMarket(ctx context.Context, id string) error {
	if _, err := s.GetMarket(ctx, id); err != nil {
		return err
	}
	return model.ErrVersionConflict
}

// --- Wagers ---

const wagerColumns = `id, account_id, market_id, side, stake, odds_locked::TEXT,
	potential_payout, status, actual_payout, placed_at, settled_at`

func scanWager(row pgx.Row) (*model.Wager, error) {
	var w model.Wager
	var oddsLocked string

	err := row.Scan(&w.ID, &w.AccountID, &w.MarketID, &w.Side, &w.Stake, &oddsLocked,
		&w.PotentialPayout, &w.Status, &w.ActualPayout, &w.PlacedAt, &w.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrWagerNotFound
	}
	if err != nil {
		return nil, err
	}

	w.OddsLocked, _ = decimal.NewFromString(oddsLocked)
	return &w, nil
}

func (s *PostgresStore) GetWager(ctx context.Context, id string) (*model.Wager, error) {
	return scanWager(s.pool.QueryRow(ctx,
		`SELECT `+wagerColumns+` FROM wagers WHERE id = $1`, id))
}

func (s *PostgresStore) listWagers(ctx context.Context, query string, args ...any) ([]model.Wager, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wagers []model.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		wagers = append(wagers, *w)
	}
	return wagers, rows.Err()
}

func (s *PostgresStore) ListWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error) {
	return s.listWagers(ctx,
		`SELECT `+wagerColumns+` FROM wagers WHERE market_id = $1 ORDER BY placed_at`, marketID)
}

func (s *PostgresStore) ListWagersByAccount(ctx context.Context, accountID string) ([]model.Wager, error) {
	return s.listWagers(ctx,
		`SELECT `+wagerColumns+` FROM wagers WHERE account_id = $1 ORDER BY placed_at`, accountID)
}

func (s *PostgresStore) ListPendingWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error) {
	return s.listWagers(ctx,
		`SELECT `+wagerColumns+` FROM wagers
		 WHERE market_id = $1 AND status = 'pending' ORDER BY placed_at`, marketID)
}

func (s *PostgresStore) PendingStakeByMarket(ctx context.Context, accountID string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, COALESCE(SUM(stake), 0)
		 FROM wagers
		 WHERE account_id = $1 AND status = 'pending'
		 GROUP BY market_id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make(map[string]int64)
	for rows.Next() {
		var marketID string
		var stake int64
		if err := rows.Scan(&marketID, &stake); err != nil {
			return nil, err
		}
		pending[marketID] = stake
	}
	return pending, rows.Err()
}

// --- Atomic composites ---

func (s *PostgresStore) ApplyPlacement(ctx context.Context, account *model.Account, market *model.Market, wager *model.Wager) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin placement: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE accounts
		 SET balance = $2, total_wagered = $3,
		     wagers_total = $4, wagers_pending = $5,
		     version = version + 1
		 WHERE id = $1 AND version = $6`,
		account.ID, account.Balance, account.TotalWagered,
		account.Counts.Total, account.Counts.Pending, account.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	tag, err = tx.Exec(ctx,
		`UPDATE markets
		 SET side_a_count = $2, side_a_staked = $3,
		     side_b_count = $4, side_b_staked = $5,
		     odds_a = $6::NUMERIC, odds_b = $7::NUMERIC,
		     version = version + 1
		 WHERE id = $1 AND version = $8`,
		market.ID, market.SideA.Count, market.SideA.Staked,
		market.SideB.Count, market.SideB.Staked,
		market.OddsA.String(), market.OddsB.String(), market.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wagers
		   (id, account_id, market_id, side, stake, odds_locked,
		    potential_payout, status, actual_payout, placed_at, settled_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8, $9, $10, NULL)`,
		wager.ID, wager.AccountID, wager.MarketID, wager.Side, wager.Stake,
		wager.OddsLocked.String(), wager.PotentialPayout, wager.Status,
		wager.ActualPayout, wager.PlacedAt,
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit placement: %w", err)
	}
	account.Version++
	market.Version++
	return nil
}

func (s *PostgresStore) ApplySettlement(ctx context.Context, account *model.Account, wager *model.Wager) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	// The status guard makes settlement idempotent at the row level: a
	// retried batch hitting an already-settled wager affects zero rows.
	tag, err := tx.Exec(ctx,
		`UPDATE wagers
		 SET status = $2, actual_payout = $3, settled_at = $4
		 WHERE id = $1 AND status = 'pending'`,
		wager.ID, wager.Status, wager.ActualPayout, wager.SettledAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetWager(ctx, wager.ID); getErr != nil {
			return getErr
		}
		return model.ErrWagerSettled
	}

	tag, err = tx.Exec(ctx,
		`UPDATE accounts
		 SET balance = $2, total_wagered = $3, total_won = $4, total_lost = $5,
		     wagers_total = $6, wagers_won = $7, wagers_lost = $8, wagers_pending = $9,
		     version = version + 1
		 WHERE id = $1 AND version = $10`,
		account.ID, account.Balance, account.TotalWagered, account.TotalWon, account.TotalLost,
		account.Counts.Total, account.Counts.Won, account.Counts.Lost, account.Counts.Pending,
		account.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	account.Version++
	return nil
}
