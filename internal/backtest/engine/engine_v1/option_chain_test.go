package engine

import (
	"context"
	"testing"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/mocks"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ChainResolverTestSuite struct {
	suite.Suite
	filter types.ContractFilter
	window types.TimeWindow
}

func TestChainResolverSuite(t *testing.T) {
	suite.Run(t, new(ChainResolverTestSuite))
}

func (suite *ChainResolverTestSuite) SetupTest() {
	suite.filter = types.ContractFilter{ContractType: "OPTIDX", Asset: "NIFTY", Currency: "INR"}
	suite.window = types.TimeWindow{Start: at(0, 0, 0), End: at(23, 59, 59)}
}

func (suite *ChainResolverTestSuite) TestResolvePartitionsAndSorts() {
	source := datasource.NewInMemoryTickSource(
		optionTick("P-22100", at(9, 15, 0), 150, "22100", "PE", testExpiry),
		optionTick("P-21900", at(9, 15, 0), 60, "21900", "put", testExpiry),
		optionTick("P-22000", at(9, 15, 0), 95, "22000.0", "P", testExpiry),
		optionTick("C-22000", at(9, 15, 0), 90, "22000", "CE", testExpiry),
		optionTick("C-21900", at(9, 15, 0), 140, "21900", "call_options", testExpiry),
		optionTick("P-BAD", at(9, 15, 0), 1, "abc", "PE", testExpiry),
		optionTick("P-NEG", at(9, 15, 0), 1, "-100", "PE", testExpiry),
		optionTick("X-ODD", at(9, 15, 0), 1, "22000", "straddle", testExpiry),
		optionTick("P-OTHER", at(9, 15, 0), 1, "22000", "PE", "2024-03-14"),
	)

	resolver := NewChainResolver(source, suite.filter, cache.NewChainCache(), logger.NewNopLogger())

	chain, err := resolver.Resolve(context.Background(), testExpiry, suite.window)
	suite.Require().NoError(err)

	suite.Equal(testExpiry, chain.Expiry)
	suite.Equal(suite.window, chain.AsOfWindow)

	putIDs := make([]string, 0, len(chain.Puts))
	for _, put := range chain.Puts {
		putIDs = append(putIDs, put.ID)
		suite.Equal(types.OptionTypePut, put.OptionType)
	}

	suite.Equal([]string{"P-21900", "P-22000", "P-22100"}, putIDs)
	suite.Equal(22000.0, chain.Puts[1].Strike)

	suite.Require().Len(chain.Calls, 2)
	suite.Equal("C-21900", chain.Calls[0].ID)
	suite.Equal("C-22000", chain.Calls[1].ID)
}

func (suite *ChainResolverTestSuite) TestDuplicateStrikeKeepsSmallestID() {
	source := datasource.NewInMemoryTickSource(
		optionTick("P-B", at(9, 15, 0), 95, "22000", "PE", testExpiry),
		optionTick("P-A", at(9, 15, 0), 96, "22000", "PE", testExpiry),
	)

	resolver := NewChainResolver(source, suite.filter, cache.NewChainCache(), logger.NewNopLogger())

	chain, err := resolver.Resolve(context.Background(), testExpiry, suite.window)
	suite.Require().NoError(err)
	suite.Require().Len(chain.Puts, 1)
	suite.Equal("P-A", chain.Puts[0].ID)
}

func (suite *ChainResolverTestSuite) TestResolveUsesCache() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	source := mocks.NewMockTickSource(ctrl)
	source.EXPECT().
		ListInstruments(gomock.Any(), suite.filter, testExpiry, suite.window).
		Return([]types.InstrumentRecord{{ID: "P-22000", Strike: "22000", OptionType: "PE", Expiry: testExpiry}}, nil).
		Times(1)

	chainCache := cache.NewChainCache()
	resolver := NewChainResolver(source, suite.filter, chainCache, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		chain, err := resolver.Resolve(context.Background(), testExpiry, suite.window)
		suite.Require().NoError(err)
		suite.Len(chain.Puts, 1)
	}

	lookups, hits := chainCache.Stats()
	suite.Equal(3, lookups)
	suite.Equal(2, hits)
}

func (suite *ChainResolverTestSuite) TestResolveErrorIsNotCached() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	source := mocks.NewMockTickSource(ctrl)
	gomock.InOrder(
		source.EXPECT().
			ListInstruments(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New(errors.ErrCodeQueryFailed, "timeout")),
		source.EXPECT().
			ListInstruments(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]types.InstrumentRecord{{ID: "C-1", Strike: "100", OptionType: "CE", Expiry: testExpiry}}, nil),
	)

	resolver := NewChainResolver(source, suite.filter, cache.NewChainCache(), logger.NewNopLogger())

	_, err := resolver.Resolve(context.Background(), testExpiry, suite.window)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))

	chain, err := resolver.Resolve(context.Background(), testExpiry, suite.window)
	suite.Require().NoError(err)
	suite.Len(chain.Calls, 1)
	suite.Empty(chain.Puts)
}
