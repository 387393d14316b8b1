package analytics

import "errors"

// Sentinel errors returned by the writer. Callers match them with errors.Is.
var (
	// ErrInvalidMode reports a mode name or number that is not recognized.
	ErrInvalidMode               = errors.New("invalid analytics mode")
	// ErrModeNotSupported reports a mode outside the writer's enabled set.
	ErrModeNotSupported          = errors.New("analytics mode not enabled for this writer")
	// ErrInvalidDimensionsStrategy reports an unknown gtag dimensions strategy.
	ErrInvalidDimensionsStrategy = errors.New("invalid gtag dimensions strategy")
	// ErrMissingTransactionID reports a transaction without an id.
	ErrMissingTransactionID      = errors.New("transaction is missing `id`")
	// ErrMissingItemTransactionID reports an item that names no transaction.
	ErrMissingItemTransactionID  = errors.New("transaction item is missing `transaction_id`")
	// ErrMissingAccountID reports a writer built without an account id.
	ErrMissingAccountID          = errors.New("analytics account id is required")
)
