package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderRequest  ErrorCode = 102

	// Order lifecycle errors (200-299)
	ErrCodeMissingOrder         ErrorCode = 200
	ErrCodeInvariantViolation   ErrorCode = 201
	ErrCodeOrderFailed          ErrorCode = 202
	ErrCodePositionUnavailable  ErrorCode = 203
	ErrCodeArchiveConflict      ErrorCode = 204
	ErrCodeArchiveStorageFailed ErrorCode = 205
	ErrCodeArchiveIncompatible  ErrorCode = 206

	// Admission errors (300-399)
	ErrCodePriceUnavailable ErrorCode = 300
	ErrCodeCapitalExceeded  ErrorCode = 301
	ErrCodeZeroQuantity     ErrorCode = 302

	// Reconciliation errors (400-499)
	ErrCodeDuplicateOrderID  ErrorCode = 400
	ErrCodeAmbiguousExit     ErrorCode = 401
	ErrCodeUnreconciledEntry ErrorCode = 402
	ErrCodeUnreconciledExit  ErrorCode = 403
	ErrCodeQuantityMismatch  ErrorCode = 404

	// Data errors (500-599)
	ErrCodeDataSourceUnavailable ErrorCode = 500
	ErrCodeDataParseFailed       ErrorCode = 501
	ErrCodeWriteFailed           ErrorCode = 502
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeInvariantViolation:   true,
	ErrCodeOrderFailed:          true,
	ErrCodeArchiveConflict:      true,
	ErrCodeArchiveStorageFailed: true,
	ErrCodeDuplicateOrderID:     true,
}

// Name returns the short anomaly name used in logs and metric labels.
func (c ErrorCode) Name() string {
	switch c {
	case ErrCodeMissingOrder:
		return "missing_order"
	case ErrCodeInvariantViolation:
		return "invariant_violation"
	case ErrCodeOrderFailed:
		return "order_failed"
	case ErrCodePositionUnavailable:
		return "position_unavailable"
	case ErrCodeArchiveConflict:
		return "archive_conflict"
	case ErrCodeArchiveStorageFailed:
		return "archive_storage_failed"
	case ErrCodeArchiveIncompatible:
		return "archive_incompatible"
	case ErrCodePriceUnavailable:
		return "price_unavailable"
	case ErrCodeCapitalExceeded:
		return "capital_exceeded"
	case ErrCodeZeroQuantity:
		return "zero_quantity"
	case ErrCodeDuplicateOrderID:
		return "duplicate_order_id"
	case ErrCodeAmbiguousExit:
		return "ambiguous_exit"
	case ErrCodeUnreconciledEntry:
		return "unreconciled_entry"
	case ErrCodeUnreconciledExit:
		return "unreconciled_exit"
	case ErrCodeQuantityMismatch:
		return "quantity_mismatch"
	case ErrCodeInvalidConfiguration:
		return "invalid_configuration"
	default:
		return "unknown"
	}
}
