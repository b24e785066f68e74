package errors

var (
	ErrInsufficientBalance = &DomainError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrBalanceLimitExceeded = &DomainError{
		Code:    "BALANCE_LIMIT_EXCEEDED",
		Message: "wallet balance limit exceeded",
	}
	ErrReasonRequired = &DomainError{
		Code:    "REASON_REQUIRED",
		Message: "reason is required for manual deposits",
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "operation not permitted for this role",
	}
	ErrNotStudent = &DomainError{
		Code:    "NOT_STUDENT",
		Message: "only students can perform this operation",
	}
)
