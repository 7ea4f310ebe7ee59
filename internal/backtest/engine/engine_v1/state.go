package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
)

const (
	tradesFileName = "trades.parquet"
	statsFileName  = "stats.yaml"
)

// ResultStore keeps the result rows of a run in an in-memory DuckDB table and
// exports them to parquet next to a stats.yaml report.
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewResultStore(logger *logger.Logger) (*ResultStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open result database", err)
	}

	store := &ResultStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := store.Initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Initialize creates the trades table.
func (s *ResultStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			run_name TEXT,
			seq INTEGER,
			date TEXT,
			took BOOLEAN,
			reason TEXT,
			failed_leg TEXT,
			signal_time TIMESTAMPTZ,
			planned_exit_time TIMESTAMPTZ,
			entry_time TIMESTAMPTZ,
			exit_time TIMESTAMPTZ,
			expiry TEXT,
			underlying_price DOUBLE,
			exit_reason TEXT,
			main_instrument TEXT,
			main_strike DOUBLE,
			main_entry_price DOUBLE,
			main_exit_price DOUBLE,
			hedge_instrument TEXT,
			hedge_strike DOUBLE,
			hedge_entry_price DOUBLE,
			hedge_exit_price DOUBLE,
			net_points DOUBLE,
			net_pnl DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create trades table", err)
	}

	return nil
}

// Record inserts the rows of one run in a single transaction.
func (s *ResultStore) Record(runID, runName string, trades []types.Trade) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	for i, trade := range trades {
		mainLeg, _ := trade.Leg(types.LegRoleMain)
		hedgeLeg, hasHedge := trade.Leg(types.LegRoleHedge)

		insert := s.sq.
			Insert("trades").
			Columns(
				"run_id", "run_name", "seq", "date", "took", "reason", "failed_leg",
				"signal_time", "planned_exit_time", "entry_time", "exit_time",
				"expiry", "underlying_price", "exit_reason",
				"main_instrument", "main_strike", "main_entry_price", "main_exit_price",
				"hedge_instrument", "hedge_strike", "hedge_entry_price", "hedge_exit_price",
				"net_points", "net_pnl",
			).
			Values(
				runID, runName, i, trade.Date, trade.Took, string(trade.Reason), string(trade.FailedLeg),
				nullTime(trade.SignalTime), nullTime(trade.PlannedExitTime), nullTime(trade.EntryTime), nullTime(trade.ExitTime),
				trade.Expiry, trade.UnderlyingPrice, string(trade.ExitReason),
				nullString(mainLeg.Instrument.ID), nullFloat(mainLeg.Instrument.Strike, trade.Took),
				nullFloat(mainLeg.EntryPrice, trade.Took), nullFloat(mainLeg.ExitPrice, trade.Took),
				nullString(hedgeLeg.Instrument.ID), nullFloat(hedgeLeg.Instrument.Strike, trade.Took && hasHedge),
				nullFloat(hedgeLeg.EntryPrice, trade.Took && hasHedge), nullFloat(hedgeLeg.ExitPrice, trade.Took && hasHedge),
				trade.NetPoints, trade.NetPnl,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to insert trade row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit trade rows", err)
	}

	return nil
}

// OutcomeCounts returns the number of rows per outcome tag of a run.
func (s *ResultStore) OutcomeCounts(runID string) (map[string]int, error) {
	rows, err := s.sq.
		Select("CASE WHEN took THEN exit_reason ELSE reason END AS outcome", "COUNT(*)").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		GroupBy("outcome").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count outcomes", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			outcome string
			count   int
		)

		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan outcome count", err)
		}

		counts[outcome] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate outcome counts", err)
	}

	return counts, nil
}

// Write exports the rows of runID to <folder>/trades.parquet and the run
// report to <folder>/stats.yaml.
func (s *ResultStore) Write(folder, runID string, result types.RunResult) (types.RunReport, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return types.RunReport{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create result folder", err)
	}

	tradesPath := filepath.Join(folder, tradesFileName)

	// COPY is not expressible with squirrel
	_, err := s.db.Exec(fmt.Sprintf(
		`COPY (SELECT * FROM trades WHERE run_id = '%s' ORDER BY seq) TO '%s' (FORMAT PARQUET)`,
		quote(runID), quote(tradesPath),
	))
	if err != nil {
		return types.RunReport{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to export trades to parquet", err)
	}

	report := types.RunReport{
		ID:             runID,
		Timestamp:      time.Now(),
		RunResult:      result,
		TradesFilePath: tradesPath,
	}

	if err := types.WriteReport(filepath.Join(folder, statsFileName), report); err != nil {
		return types.RunReport{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write run report", err)
	}

	s.logger.Info("Exported run results",
		zap.String("run", result.Name),
		zap.String("trades", tradesPath),
		zap.Int("rows", len(result.Trades)),
	)

	return report, nil
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

// NewRunID returns a fresh identifier for a persisted run.
func NewRunID() string {
	return uuid.New().String()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}

func nullString(v string) any {
	if v == "" {
		return nil
	}

	return v
}

func nullFloat(v float64, valid bool) any {
	if !valid {
		return nil
	}

	return v
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
