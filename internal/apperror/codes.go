package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Connection errors
const (
	CodeConnectionError     Code = "CONNECTION_ERROR"
	CodeConnectionExhausted Code = "CONNECTION_EXHAUSTED"
	CodeRPCError            Code = "RPC_ERROR"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeStreamError         Code = "STREAM_ERROR"
	CodeStreamFatal         Code = "STREAM_FATAL"
	CodeSubscribeFailed     Code = "SUBSCRIBE_FAILED"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// Market data errors
const (
	CodeInvalidOrderBook      Code = "INVALID_ORDER_BOOK"
	CodeInvalidPool           Code = "INVALID_POOL"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidQuote          Code = "INVALID_QUOTE"
	CodeInvalidOpportunity    Code = "INVALID_OPPORTUNITY"
	CodeInvalidTransaction    Code = "INVALID_TRANSACTION"
)

// Admission errors
const (
	CodeLimitExceeded        Code = "LIMIT_EXCEEDED"
	CodeCooldownActive       Code = "COOLDOWN_ACTIVE"
	CodeTradeIntervalNotMet  Code = "TRADE_INTERVAL_NOT_MET"
	CodeDuplicateTransaction Code = "DUPLICATE_TRANSACTION"
	CodeDailyLimitExceeded   Code = "DAILY_LIMIT_EXCEEDED"
	CodeTransactionTooLarge  Code = "TRANSACTION_TOO_LARGE"
	CodeTradingPaused        Code = "TRADING_PAUSED"
)

// Execution errors
const (
	CodeExecutionError      Code = "EXECUTION_ERROR"
	CodeSubmissionFailed    Code = "SUBMISSION_FAILED"
	CodeConfirmationFailed  Code = "CONFIRMATION_FAILED"
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"
	CodeSigningFailed       Code = "SIGNING_FAILED"
	CodePositionNotFound    Code = "POSITION_NOT_FOUND"
)

// Kind groups codes into the categories callers branch on.
type Kind string

const (
	KindConnection Kind = "connection"
	KindValidation Kind = "validation"
	KindLimit      Kind = "limit"
	KindExecution  Kind = "execution"
	KindInternal   Kind = "internal"
)

var kinds = map[Code]Kind{
	CodeConnectionError:          KindConnection,
	CodeConnectionExhausted:      KindConnection,
	CodeRPCError:                 KindConnection,
	CodeRateLimited:              KindConnection,
	CodeStreamError:              KindConnection,
	CodeStreamFatal:              KindConnection,
	CodeSubscribeFailed:          KindConnection,
	CodeWebSocketConnectionError: KindConnection,
	CodeWebSocketClosed:          KindConnection,
	CodeWebSocketSendError:       KindConnection,
	CodeCircuitOpen:              KindConnection,

	CodeRequiredField:         KindValidation,
	CodeInvalidInput:          KindValidation,
	CodeValidationError:       KindValidation,
	CodeConfigurationError:    KindValidation,
	CodeInvalidOrderBook:      KindValidation,
	CodeInvalidPool:           KindValidation,
	CodeInsufficientLiquidity: KindValidation,
	CodeInvalidQuote:          KindValidation,
	CodeInvalidOpportunity:    KindValidation,
	CodeInvalidTransaction:    KindValidation,

	CodeLimitExceeded:        KindLimit,
	CodeCooldownActive:       KindLimit,
	CodeTradeIntervalNotMet:  KindLimit,
	CodeDuplicateTransaction: KindLimit,
	CodeDailyLimitExceeded:   KindLimit,
	CodeTransactionTooLarge:  KindLimit,
	CodeTradingPaused:        KindLimit,

	CodeExecutionError:      KindExecution,
	CodeSubmissionFailed:    KindExecution,
	CodeConfirmationFailed:  KindExecution,
	CodeConfirmationTimeout: KindExecution,
	CodeSigningFailed:       KindExecution,
}

// KindOf returns the category of a code; unknown codes are internal.
func KindOf(code Code) Kind {
	if k, ok := kinds[code]; ok {
		return k
	}
	return KindInternal
}
