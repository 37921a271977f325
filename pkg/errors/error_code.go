package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Graph store structural errors (100-199)
	ErrCodeUnknownNodeType       ErrorCode = 100
	ErrCodeNodeNotFound          ErrorCode = 101
	ErrCodePortNotFound          ErrorCode = 102
	ErrCodeInvalidConfigKey      ErrorCode = 103
	ErrCodeTypeMismatch          ErrorCode = 104
	ErrCodeDuplicateInputBinding ErrorCode = 105
	ErrCodeConnectionNotFound    ErrorCode = 106
	ErrCodeInvalidPortSet        ErrorCode = 107
	ErrCodeDuplicateNodeID       ErrorCode = 108

	// Graph validation errors (200-299)
	ErrCodeCyclicGraph  ErrorCode = 200
	ErrCodeUnboundInput ErrorCode = 201

	// Evaluation engine errors (300-399)
	ErrCodeEngineNotValidated     ErrorCode = 300
	ErrCodeEngineAlreadyRunning   ErrorCode = 301
	ErrCodeNodeFault              ErrorCode = 302
	ErrCodeEngineConfigError      ErrorCode = 303
	ErrCodeIndicatorNotFound      ErrorCode = 304
	ErrCodeIndicatorAlreadyExists ErrorCode = 305

	// Script sandbox errors (400-499)
	ErrCodeScriptCompile ErrorCode = 400
	ErrCodeScriptEval    ErrorCode = 401
	ErrCodeScriptTimeout ErrorCode = 402
	ErrCodeScriptResult  ErrorCode = 403

	// Data source errors (500-599)
	ErrCodeDataSourceUnavailable ErrorCode = 500
	ErrCodeQueryFailed           ErrorCode = 501
	ErrCodeNoDataFound           ErrorCode = 502

	// Persistence errors (600-699)
	ErrCodeGraphParseFailed ErrorCode = 600
	ErrCodeVersionMismatch  ErrorCode = 601
	ErrCodeGraphWriteFailed ErrorCode = 602

	// Backtest errors (700-799)
	ErrCodeBacktestStateNil    ErrorCode = 700
	ErrCodeBacktestInitFailed  ErrorCode = 701
	ErrCodeBacktestConfigError ErrorCode = 702
)
