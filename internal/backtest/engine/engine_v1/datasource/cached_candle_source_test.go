package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/stretchr/testify/suite"
)

// countingCandleSource records how often the inner source is queried.
type countingCandleSource struct {
	candles []types.Candle
	err     error
	calls   int
}

func (c *countingCandleSource) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	c.calls++

	return c.candles, c.err
}

type CachedCandleSourceTestSuite struct {
	suite.Suite
	start time.Time
	end   time.Time
	key   string
}

func TestCachedCandleSourceSuite(t *testing.T) {
	suite.Run(t, new(CachedCandleSourceTestSuite))
}

func (suite *CachedCandleSourceTestSuite) SetupTest() {
	suite.start = at(9, 15, 0)
	suite.end = at(15, 30, 0)
	suite.key = fmt.Sprintf("candles:NIFTY:5m:%d:%d", suite.start.Unix(), suite.end.Unix())
}

func (suite *CachedCandleSourceTestSuite) TestDefaults() {
	source := NewCachedCandleSource(nil, 0, "", &countingCandleSource{}, logger.NewNopLogger())
	suite.Equal(24*time.Hour, source.ttl)
	suite.Equal("candles", source.namespace)
}

func (suite *CachedCandleSourceTestSuite) TestNilRedisBypassesCache() {
	inner := &countingCandleSource{candles: fixtureCandles()}
	source := NewCachedCandleSource(nil, time.Hour, "", inner, logger.NewNopLogger())

	candles, err := source.GetCandles(context.Background(), "NIFTY", types.Timeframe5m, suite.start, suite.end)
	suite.NoError(err)
	suite.Len(candles, 10)
	suite.Equal(1, inner.calls)
}

func (suite *CachedCandleSourceTestSuite) TestCacheHit() {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, err := json.Marshal(fixtureCandles()[:2])
	suite.Require().NoError(err)
	mock.ExpectGet(suite.key).SetVal(string(cached))

	inner := &countingCandleSource{}
	source := NewCachedCandleSource(rdb, time.Hour, "", inner, logger.NewNopLogger())

	candles, err := source.GetCandles(context.Background(), "NIFTY", types.Timeframe5m, suite.start, suite.end)
	suite.NoError(err)
	suite.Equal(fixtureCandles()[:2], candles)
	suite.Equal(0, inner.calls)
	suite.NoError(mock.ExpectationsWereMet())
}

func (suite *CachedCandleSourceTestSuite) TestCacheMissStores() {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected := fixtureCandles()
	expectedJSON, err := json.Marshal(expected)
	suite.Require().NoError(err)

	mock.ExpectGet(suite.key).RedisNil()
	mock.ExpectSet(suite.key, expectedJSON, time.Hour).SetVal("OK")

	inner := &countingCandleSource{candles: expected}
	source := NewCachedCandleSource(rdb, time.Hour, "", inner, logger.NewNopLogger())

	candles, err := source.GetCandles(context.Background(), "NIFTY", types.Timeframe5m, suite.start, suite.end)
	suite.NoError(err)
	suite.Equal(expected, candles)
	suite.Equal(1, inner.calls)
	suite.NoError(mock.ExpectationsWereMet())
}

func (suite *CachedCandleSourceTestSuite) TestCorruptedEntryIsReplaced() {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected := fixtureCandles()[:1]
	expectedJSON, err := json.Marshal(expected)
	suite.Require().NoError(err)

	mock.ExpectGet(suite.key).SetVal("not json")
	mock.ExpectDel(suite.key).SetVal(1)
	mock.ExpectSet(suite.key, expectedJSON, time.Hour).SetVal("OK")

	inner := &countingCandleSource{candles: expected}
	source := NewCachedCandleSource(rdb, time.Hour, "", inner, logger.NewNopLogger())

	candles, err := source.GetCandles(context.Background(), "NIFTY", types.Timeframe5m, suite.start, suite.end)
	suite.NoError(err)
	suite.Equal(expected, candles)
	suite.NoError(mock.ExpectationsWereMet())
}

func (suite *CachedCandleSourceTestSuite) TestInnerErrorIsNotCached() {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet(suite.key).RedisNil()

	inner := &countingCandleSource{err: fmt.Errorf("boom")}
	source := NewCachedCandleSource(rdb, time.Hour, "", inner, logger.NewNopLogger())

	_, err := source.GetCandles(context.Background(), "NIFTY", types.Timeframe5m, suite.start, suite.end)
	suite.Error(err)
	suite.NoError(mock.ExpectationsWereMet())
}
