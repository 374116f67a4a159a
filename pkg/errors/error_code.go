package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfig        ErrorCode = 100
	ErrCodeEmptySymbolList      ErrorCode = 101
	ErrCodeInvalidInitialCash   ErrorCode = 102
	ErrCodeInvalidDateRange     ErrorCode = 103
	ErrCodeInvalidCommission    ErrorCode = 104
	ErrCodeUnsupportedVersion   ErrorCode = 105
	ErrCodeMissingConfiguration ErrorCode = 106

	// Data errors (200-299)
	ErrCodeNoMarketData     ErrorCode = 200
	ErrCodeDataFetchFailed  ErrorCode = 201
	ErrCodeDataWriteFailed  ErrorCode = 202
	ErrCodeInvalidBar       ErrorCode = 203
	ErrCodeProviderNotFound ErrorCode = 204

	// Strategy errors (300-399)
	ErrCodeStrategyNotFound    ErrorCode = 300
	ErrCodeStrategyParams      ErrorCode = 301
	ErrCodeSignalGeneration    ErrorCode = 302
	ErrCodeInvalidStrategyType ErrorCode = 303

	// Ledger errors (400-499)
	ErrCodeInsufficientCash   ErrorCode = 400
	ErrCodeInsufficientShares ErrorCode = 401
	ErrCodeInvalidSignal      ErrorCode = 402

	// Run lifecycle errors (500-599)
	ErrCodeRunNotFound      ErrorCode = 500
	ErrCodeRunNotPending    ErrorCode = 501
	ErrCodeRunCancelled     ErrorCode = 502
	ErrCodeExecutionFailed  ErrorCode = 503
	ErrCodeRunAlreadyActive ErrorCode = 504

	// Persistence errors (600-699)
	ErrCodeStoreUnavailable ErrorCode = 600
	ErrCodeSaveFailed       ErrorCode = 601
	ErrCodeLoadFailed       ErrorCode = 602
	ErrCodeCacheFailed      ErrorCode = 603
)
