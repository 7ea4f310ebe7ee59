package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevel() {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewLoggerWithLevel(level)
		suite.NoError(err, level)
		suite.NotNil(logger)
	}

	_, err := NewLoggerWithLevel("verbose")
	suite.Error(err)
	suite.Contains(err.Error(), "invalid log level")
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	// Sync should not panic and should return nil for a nil inner logger
	err := logger.Sync()
	suite.NoError(err)
}

func (suite *LoggerTestSuite) TestNopLogger() {
	logger := NewNopLogger()
	suite.NotNil(logger.Logger)

	// These should not panic
	logger.Info("run started", zap.String("symbol", "BTCUSD"))
	logger.Debug("attempt aborted", zap.String("reason", "NO_PUT_CHAIN"))
	logger.Warn("query failed")
	logger.With(zap.Int("day", 1)).Info("day processed")
}
