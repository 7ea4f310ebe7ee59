package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/mocks"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ExpiryResolverTestSuite struct {
	suite.Suite
	source *datasource.InMemoryTickSource
	filter types.ContractFilter
}

func TestExpiryResolverSuite(t *testing.T) {
	suite.Run(t, new(ExpiryResolverTestSuite))
}

func (suite *ExpiryResolverTestSuite) SetupTest() {
	suite.filter = types.ContractFilter{ContractType: "OPTIDX", Asset: "NIFTY", Currency: "INR"}
	suite.source = datasource.NewInMemoryTickSource(
		// near entry
		optionTick("P-0314", at(9, 31, 0), 100, "22000", "PE", "2024-03-14"),
		// same day, far from entry
		optionTick("P-0307", at(14, 0, 0), 100, "22000", "PE", "2024-03-07"),
		optionTick("P-0306", at(9, 30, 0), 100, "22000", "PE", "2024-03-06"),
		optionTick("P-0425", at(9, 30, 0), 100, "22000", "PE", "2024-04-25"),
	)
}

func (suite *ExpiryResolverTestSuite) resolver(config ExpiryConfig) *ExpiryResolver {
	return NewExpiryResolver(suite.source, suite.filter, config, time.UTC)
}

func (suite *ExpiryResolverTestSuite) TestFixedModeNormalizes() {
	tests := []struct {
		name     string
		date     string
		expected optional.Option[string]
	}{
		{name: "canonical", date: "2024-03-07", expected: optional.Some("2024-03-07")},
		{name: "legacy day first", date: "07-03-2024", expected: optional.Some("2024-03-07")},
		{name: "unparsable", date: "March 7", expected: optional.None[string]()},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			expiry, err := suite.resolver(ExpiryConfig{Mode: ExpiryModeFixed, Date: optional.Some(tc.date)}).
				Resolve(context.Background(), at(9, 30, 0))
			suite.Require().NoError(err)
			suite.Equal(tc.expected, expiry)
		})
	}
}

func (suite *ExpiryResolverTestSuite) TestAutoModePrefersTicksNearEntry() {
	// 03-06 trades at 09:30 too, but days_out=2 excludes it
	expiry, err := suite.resolver(ExpiryConfig{Mode: ExpiryModeAuto, DaysOut: 2, LookaheadDays: 30}).
		Resolve(context.Background(), at(9, 30, 0))
	suite.Require().NoError(err)
	suite.Equal(optional.Some("2024-03-14"), expiry)
}

func (suite *ExpiryResolverTestSuite) TestAutoModeWidensToCalendarDay() {
	expiry, err := suite.resolver(ExpiryConfig{Mode: ExpiryModeAuto, DaysOut: 2, LookaheadDays: 30}).
		Resolve(context.Background(), at(12, 0, 0))
	suite.Require().NoError(err)
	suite.Equal(optional.Some("2024-03-07"), expiry)
}

func (suite *ExpiryResolverTestSuite) TestAutoModeRespectsLookahead() {
	expiry, err := suite.resolver(ExpiryConfig{Mode: ExpiryModeAuto, DaysOut: 10, LookaheadDays: 20}).
		Resolve(context.Background(), at(9, 30, 0))
	suite.Require().NoError(err)
	suite.True(expiry.IsNone())
}

func (suite *ExpiryResolverTestSuite) TestAutoModeQueriesBoundsAndPropagatesErrors() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	source := mocks.NewMockTickSource(ctrl)
	entry := at(9, 30, 0)

	gomock.InOrder(
		source.EXPECT().
			ListExpiries(gomock.Any(), suite.filter, "2024-03-06", "2024-03-12",
				types.TimeWindow{Start: entry.Add(-5 * time.Minute), End: entry.Add(5 * time.Minute)}).
			Return(nil, nil),
		source.EXPECT().
			ListExpiries(gomock.Any(), suite.filter, "2024-03-06", "2024-03-12", gomock.Any()).
			Return([]string{"2024-03-12", "garbage", "2024-03-07"}, nil),
	)

	resolver := NewExpiryResolver(source, suite.filter, ExpiryConfig{Mode: ExpiryModeAuto, DaysOut: 1, LookaheadDays: 7}, time.UTC)

	expiry, err := resolver.Resolve(context.Background(), entry)
	suite.Require().NoError(err)
	suite.Equal(optional.Some("2024-03-07"), expiry)

	source.EXPECT().
		ListExpiries(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeQueryFailed, "timeout"))

	_, err = resolver.Resolve(context.Background(), entry)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
}
