package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDate          ErrorCode = 102
	ErrCodeInvalidTimeframe     ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidTarget        ErrorCode = 105
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidMultiplier    ErrorCode = 111
	ErrCodeInvalidLegSpec       ErrorCode = 112
	ErrCodeInvalidExpiry        ErrorCode = 113
	ErrCodeInvalidTimezone      ErrorCode = 114
	ErrCodeInvalidExitTime      ErrorCode = 115

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Run errors (600-699)
	ErrCodeRunAborted         ErrorCode = 600
	ErrCodeBacktestInitFailed ErrorCode = 601
	ErrCodeBacktestNoConfigs  ErrorCode = 605
	ErrCodeResultWriteFailed  ErrorCode = 609
)
