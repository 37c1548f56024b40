package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:      "Required field is missing",
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeValidationError:    "Validation error",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeConnectionError:     "Transport unreachable",
	CodeConnectionExhausted: "All endpoints exhausted",
	CodeRPCError:            "RPC call failed",
	CodeRateLimited:         "RPC rate limit exceeded",
	CodeStreamError:         "Stream error",
	CodeStreamFatal:         "Stream reconnects exhausted",
	CodeSubscribeFailed:     "Failed to subscribe to account changes",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen: "Circuit breaker is open",

	CodeInvalidOrderBook:      "Invalid order book data",
	CodeInvalidPool:           "Invalid pool data",
	CodeInsufficientLiquidity: "Insufficient liquidity",
	CodeInvalidQuote:          "Invalid quote",
	CodeInvalidOpportunity:    "Invalid opportunity",
	CodeInvalidTransaction:    "Invalid transaction",

	CodeLimitExceeded:        "Limit exceeded",
	CodeCooldownActive:       "Trading cooldown is active",
	CodeTradeIntervalNotMet:  "Minimum interval since last trade not met",
	CodeDuplicateTransaction: "Transaction already in flight",
	CodeDailyLimitExceeded:   "Daily transaction limit exceeded",
	CodeTransactionTooLarge:  "Transaction amount exceeds the per-transaction limit",
	CodeTradingPaused:        "Trading is paused",

	CodeExecutionError:      "Execution failed",
	CodeSubmissionFailed:    "Transaction submission failed",
	CodeConfirmationFailed:  "Transaction failed on chain",
	CodeConfirmationTimeout: "Transaction confirmation timed out",
	CodeSigningFailed:       "Transaction signing failed",
	CodePositionNotFound:    "Position not found",
}
