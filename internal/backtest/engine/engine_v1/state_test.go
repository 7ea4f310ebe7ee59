package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

// ResultStoreTestSuite is a test suite for ResultStore
type ResultStoreTestSuite struct {
	suite.Suite
	store  *ResultStore
	logger *logger.Logger
}

func TestResultStoreSuite(t *testing.T) {
	suite.Run(t, new(ResultStoreTestSuite))
}

// SetupSuite runs once before all tests in the suite
func (suite *ResultStoreTestSuite) SetupSuite() {
	logger, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = logger
}

// SetupTest gives every test an empty store
func (suite *ResultStoreTestSuite) SetupTest() {
	store, err := NewResultStore(suite.logger)
	suite.Require().NoError(err)
	suite.store = store
}

func (suite *ResultStoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func sampleTrades() []types.Trade {
	return []types.Trade{
		{Date: "2024-03-05", Reason: types.ReasonNoPutChain, SignalTime: at(9, 14, 0), EntryTime: at(9, 15, 0), Expiry: testExpiry},
		{
			Date:            "2024-03-05",
			Took:            true,
			SignalTime:      at(9, 20, 0),
			PlannedExitTime: at(9, 40, 0),
			EntryTime:       at(9, 21, 0),
			ExitTime:        at(9, 25, 0),
			Expiry:          testExpiry,
			UnderlyingPrice: 22010,
			ExitReason:      types.ExitStopLossHitMain,
			Legs: []types.LegFill{
				{
					Role:       types.LegRoleMain,
					Side:       types.SideShort,
					Instrument: types.Instrument{ID: "P-22000", Strike: 22000, OptionType: types.OptionTypePut, Expiry: testExpiry},
					EntryTime:  at(9, 21, 0),
					EntryPrice: 100,
					ExitTime:   at(9, 25, 0),
					ExitPrice:  131,
					Points:     -31,
				},
				{
					Role:       types.LegRoleHedge,
					Side:       types.SideLong,
					Instrument: types.Instrument{ID: "P-21900", Strike: 21900, OptionType: types.OptionTypePut, Expiry: testExpiry},
					EntryTime:  at(9, 21, 0),
					EntryPrice: 40,
					ExitTime:   at(9, 25, 0),
					ExitPrice:  45,
					Points:     5,
				},
			},
			NetPoints: -26,
			NetPnl:    -26,
		},
		{Date: "2024-03-06", Reason: types.ReasonNoCandles},
	}
}

func (suite *ResultStoreTestSuite) TestRecordAndCountOutcomes() {
	runID := NewRunID()
	otherID := NewRunID()

	suite.Require().NoError(suite.store.Record(runID, "short_put", sampleTrades()))
	suite.Require().NoError(suite.store.Record(otherID, "other", sampleTrades()[:1]))

	counts, err := suite.store.OutcomeCounts(runID)
	suite.Require().NoError(err)
	suite.Equal(map[string]int{
		"NO_PUT_CHAIN":      1,
		"STOPLOSS_HIT_MAIN": 1,
		"NO_CANDLES":        1,
	}, counts)

	counts, err = suite.store.OutcomeCounts(otherID)
	suite.Require().NoError(err)
	suite.Equal(map[string]int{"NO_PUT_CHAIN": 1}, counts)
}

func (suite *ResultStoreTestSuite) TestOutcomeCountsByExitOrReason() {
	runID := NewRunID()
	trades := []types.Trade{
		{Took: true, ExitReason: types.ExitDayEnd, NetPnl: 1},
		{Took: true, ExitReason: types.ExitStopLossHitMain},
		{Reason: types.ReasonNoPutChain},
		{Reason: types.ReasonNoPutChain},
	}

	suite.Require().NoError(suite.store.Record(runID, "short_put", trades))

	counts, err := suite.store.OutcomeCounts(runID)
	suite.Require().NoError(err)
	suite.Equal(map[string]int{
		"DAY_END":           1,
		"STOPLOSS_HIT_MAIN": 1,
		"NO_PUT_CHAIN":      2,
	}, counts)

	counts, err = suite.store.OutcomeCounts(NewRunID())
	suite.Require().NoError(err)
	suite.Empty(counts)
}

func (suite *ResultStoreTestSuite) TestRecordStoresLegColumns() {
	runID := NewRunID()
	suite.Require().NoError(suite.store.Record(runID, "short_put", sampleTrades()))

	var (
		mainInstrument  string
		hedgeExitPrice  float64
		exitTime        time.Time
		missingStrike   *float64
		missingExitTime *time.Time
	)

	err := suite.store.db.QueryRow(
		`SELECT main_instrument, hedge_exit_price, exit_time FROM trades WHERE run_id = $1 AND seq = 1`, runID,
	).Scan(&mainInstrument, &hedgeExitPrice, &exitTime)
	suite.Require().NoError(err)
	suite.Equal("P-22000", mainInstrument)
	suite.Equal(45.0, hedgeExitPrice)
	suite.True(exitTime.Equal(at(9, 25, 0)))

	err = suite.store.db.QueryRow(
		`SELECT main_strike, exit_time FROM trades WHERE run_id = $1 AND seq = 0`, runID,
	).Scan(&missingStrike, &missingExitTime)
	suite.Require().NoError(err)
	suite.Nil(missingStrike)
	suite.Nil(missingExitTime)
}

func (suite *ResultStoreTestSuite) TestWrite() {
	runID := NewRunID()
	folder := filepath.Join(suite.T().TempDir(), "NIFTY", "short_put")

	trades := sampleTrades()
	suite.Require().NoError(suite.store.Record(runID, "short_put", trades))
	suite.Require().NoError(suite.store.Record(NewRunID(), "noise", trades))

	result := types.RunResult{
		Name:    "short_put",
		Summary: Summarize(trades, 2),
		Trades:  trades,
		Debug:   types.RunDebug{EngineVersion: "1.0.0", Outcomes: map[string]int{"NO_PUT_CHAIN": 1, "STOPLOSS_HIT_MAIN": 1, "NO_CANDLES": 1}},
	}

	report, err := suite.store.Write(folder, runID, result)
	suite.Require().NoError(err)
	suite.Equal(runID, report.ID)
	suite.Equal(filepath.Join(folder, tradesFileName), report.TradesFilePath)

	_, err = uuid.Parse(report.ID)
	suite.NoError(err)

	var rows int
	err = suite.store.db.QueryRow(`SELECT COUNT(*) FROM read_parquet('` + quote(report.TradesFilePath) + `')`).Scan(&rows)
	suite.Require().NoError(err)
	suite.Equal(len(trades), rows)

	var lastDate string
	err = suite.store.db.QueryRow(`SELECT date FROM read_parquet('` + quote(report.TradesFilePath) + `') ORDER BY seq DESC LIMIT 1`).Scan(&lastDate)
	suite.Require().NoError(err)
	suite.Equal("2024-03-06", lastDate)

	data, err := os.ReadFile(filepath.Join(folder, statsFileName))
	suite.Require().NoError(err)

	var decoded types.RunReport
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal(runID, decoded.ID)
	suite.Equal("short_put", decoded.Name)
	suite.Equal(result.Summary, decoded.Summary)
	suite.Equal(result.Debug.Outcomes, decoded.Debug.Outcomes)
}

func (suite *ResultStoreTestSuite) TestQuote() {
	suite.Equal("it''s", quote("it's"))
	suite.Equal("plain", quote("plain"))
}
