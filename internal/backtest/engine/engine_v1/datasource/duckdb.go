package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
)

const (
	candleTable = "market_data"
	tickTable   = "option_ticks"
)

// DuckDBSource reads candles from the market_data relation and option ticks
// from the option_ticks relation of a DuckDB database.
//
// market_data: time TIMESTAMP, symbol VARCHAR, open, high, low, close, volume DOUBLE.
// option_ticks: instrument_id VARCHAR, time TIMESTAMP, price DOUBLE, strike VARCHAR,
// option_type VARCHAR, expiry VARCHAR (YYYY-MM-DD), contract_type, asset, currency VARCHAR.
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	closed atomic.Bool
}

var (
	_ CandleSource = (*DuckDBSource)(nil)
	_ TickSource   = (*DuckDBSource)(nil)
)

// NewDuckDBSource opens the DuckDB database at path. Use ":memory:" for an
// in-memory database that is populated with LoadCandles/LoadTicks or CreateTables.
func NewDuckDBSource(path string, logger *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// LoadCandles exposes a parquet file as the market_data view.
func (d *DuckDBSource) LoadCandles(parquetPath string) error {
	return d.createView(candleTable, parquetPath)
}

// LoadTicks exposes a parquet file as the option_ticks view.
func (d *DuckDBSource) LoadTicks(parquetPath string) error {
	return d.createView(tickTable, parquetPath)
}

func (d *DuckDBSource) createView(name, parquetPath string) error {
	d.logger.Debug("Creating view from parquet", zap.String("view", name), zap.String("path", parquetPath))

	if _, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, name)); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to drop view %s", name)
	}

	// DDL is not supported by squirrel
	query := fmt.Sprintf(`CREATE VIEW %s AS SELECT * FROM read_parquet('%s');`, name, parquetPath)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create view %s", name)
	}

	return nil
}

// CreateTables creates empty market_data and option_ticks tables.
func (d *DuckDBSource) CreateTables() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			time TIMESTAMP,
			symbol VARCHAR,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		);
		CREATE TABLE IF NOT EXISTS option_ticks (
			instrument_id VARCHAR,
			time TIMESTAMP,
			price DOUBLE,
			strike VARCHAR,
			option_type VARCHAR,
			expiry VARCHAR,
			contract_type VARCHAR,
			asset VARCHAR,
			currency VARCHAR
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create tables", err)
	}

	return nil
}

// InsertCandles appends candles to the market_data table.
func (d *DuckDBSource) InsertCandles(candles ...types.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	insert := d.sq.Insert(candleTable).Columns("time", "symbol", "open", "high", "low", "close", "volume")
	for _, c := range candles {
		insert = insert.Values(c.Time.UTC(), c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	if _, err := insert.RunWith(d.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert candles", err)
	}

	return nil
}

// InsertTicks appends tick records to the option_ticks table.
func (d *DuckDBSource) InsertTicks(records ...types.TickRecord) error {
	if len(records) == 0 {
		return nil
	}

	insert := d.sq.Insert(tickTable).Columns(
		"instrument_id", "time", "price", "strike", "option_type", "expiry", "contract_type", "asset", "currency",
	)
	for _, r := range records {
		insert = insert.Values(r.InstrumentID, r.Time.UTC(), r.Price, r.Strike, r.OptionType, r.Expiry, r.ContractType, r.Asset, r.Currency)
	}

	if _, err := insert.RunWith(d.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert ticks", err)
	}

	return nil
}

// GetCandles implements CandleSource. Base rows are aggregated into timeframe
// buckets with time_bucket.
func (d *DuckDBSource) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	minutes, err := timeframe.Minutes()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTimeframe, "unsupported timeframe", err)
	}

	bucket := fmt.Sprintf("time_bucket(INTERVAL '%d minutes', time)", minutes)
	query := d.sq.
		Select(
			bucket+" AS bucket_time",
			"symbol",
			"arg_min(open, time) AS open",
			"max(high) AS high",
			"min(low) AS low",
			"arg_max(close, time) AS close",
			"sum(volume) AS volume",
		).
		From(candleTable).
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.GtOrEq{"time": start.UTC()}).
		Where(squirrel.Lt{"time": end.UTC()}).
		GroupBy("bucket_time", "symbol").
		OrderBy("bucket_time ASC")

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.Candle

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Time, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err)
		}

		c.Time = c.Time.UTC()
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating candles", err)
	}

	return result, nil
}

// FirstTick implements TickSource.
func (d *DuckDBSource) FirstTick(ctx context.Context, instrumentID string, window types.TimeWindow) (optional.Option[types.Tick], error) {
	return d.oneTick(ctx, d.tickQuery(instrumentID, window).OrderBy("time ASC", "price ASC"))
}

// LastTick implements TickSource.
func (d *DuckDBSource) LastTick(ctx context.Context, instrumentID string, window types.TimeWindow) (optional.Option[types.Tick], error) {
	return d.oneTick(ctx, d.tickQuery(instrumentID, window).OrderBy("time DESC", "price ASC"))
}

// FirstTickBeyond implements TickSource.
func (d *DuckDBSource) FirstTickBeyond(ctx context.Context, instrumentID string, window types.TimeWindow, bound types.PriceBound) (optional.Option[types.Tick], error) {
	query := d.tickQuery(instrumentID, window)
	if bound.Direction == types.BoundAtOrAbove {
		query = query.Where(squirrel.GtOrEq{"price": bound.Level})
	} else {
		query = query.Where(squirrel.LtOrEq{"price": bound.Level})
	}

	return d.oneTick(ctx, query.OrderBy("time ASC", "price ASC"))
}

func (d *DuckDBSource) tickQuery(instrumentID string, window types.TimeWindow) squirrel.SelectBuilder {
	return d.sq.
		Select("instrument_id", "time", "price").
		From(tickTable).
		Where(squirrel.Eq{"instrument_id": instrumentID}).
		Where(squirrel.GtOrEq{"time": window.Start.UTC()}).
		Where(squirrel.LtOrEq{"time": window.End.UTC()})
}

func (d *DuckDBSource) oneTick(ctx context.Context, query squirrel.SelectBuilder) (optional.Option[types.Tick], error) {
	rows, err := d.query(ctx, query.Limit(1))
	if err != nil {
		return optional.None[types.Tick](), err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return optional.None[types.Tick](), errors.Wrap(errors.ErrCodeQueryFailed, "error reading tick", err)
		}

		return optional.None[types.Tick](), nil
	}

	var tick types.Tick
	if err := rows.Scan(&tick.InstrumentID, &tick.Time, &tick.Price); err != nil {
		return optional.None[types.Tick](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan tick", err)
	}

	tick.Time = tick.Time.UTC()

	return optional.Some(tick), nil
}

// ListExpiries implements TickSource.
func (d *DuckDBSource) ListExpiries(ctx context.Context, filter types.ContractFilter, minExpiry, maxExpiry string, window types.TimeWindow) ([]string, error) {
	query := applyFilter(d.sq.Select("expiry").Distinct().From(tickTable), filter).
		Where(squirrel.GtOrEq{"expiry": minExpiry}).
		Where(squirrel.LtOrEq{"expiry": maxExpiry}).
		Where(squirrel.GtOrEq{"time": window.Start.UTC()}).
		Where(squirrel.LtOrEq{"time": window.End.UTC()}).
		OrderBy("expiry ASC")

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expiries []string

	for rows.Next() {
		var expiry string
		if err := rows.Scan(&expiry); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan expiry", err)
		}

		expiries = append(expiries, expiry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating expiries", err)
	}

	return expiries, nil
}

// ListInstruments implements TickSource.
func (d *DuckDBSource) ListInstruments(ctx context.Context, filter types.ContractFilter, expiry string, window types.TimeWindow) ([]types.InstrumentRecord, error) {
	query := applyFilter(d.sq.Select(
		"instrument_id",
		"arg_min(strike, time) AS strike",
		"arg_min(option_type, time) AS option_type",
		"arg_min(expiry, time) AS expiry",
	).From(tickTable), filter).
		Where(squirrel.Eq{"expiry": expiry}).
		Where(squirrel.GtOrEq{"time": window.Start.UTC()}).
		Where(squirrel.LtOrEq{"time": window.End.UTC()}).
		GroupBy("instrument_id").
		OrderBy("instrument_id ASC")

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.InstrumentRecord

	for rows.Next() {
		var (
			record     types.InstrumentRecord
			strike     sql.NullString
			optionType sql.NullString
		)

		if err := rows.Scan(&record.ID, &strike, &optionType, &record.Expiry); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan instrument", err)
		}

		record.Strike = strike.String
		record.OptionType = optionType.String
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating instruments", err)
	}

	return records, nil
}

func applyFilter(query squirrel.SelectBuilder, filter types.ContractFilter) squirrel.SelectBuilder {
	if filter.ContractType != "" {
		query = query.Where(squirrel.Eq{"contract_type": filter.ContractType})
	}

	if filter.Asset != "" {
		query = query.Where(squirrel.Eq{"asset": filter.Asset})
	}

	if filter.Currency != "" {
		query = query.Where(squirrel.Eq{"currency": filter.Currency})
	}

	return query
}

func (d *DuckDBSource) query(ctx context.Context, query squirrel.SelectBuilder) (*sql.Rows, error) {
	if d.closed.Load() {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "duckdb source is closed")
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "duckdb connection is closed", err)
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", err)
	}

	return rows, nil
}

// Close releases the database. Further queries fail as unavailable.
func (d *DuckDBSource) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	return d.db.Close()
}
