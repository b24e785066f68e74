package errors

var (
	ErrInvalidCode = &DomainError{
		Code:    "INVALID_CODE",
		Message: "invalid recharge code",
	}
	ErrCodeAlreadyUsed = &DomainError{
		Code:    "CODE_ALREADY_USED",
		Message: "recharge code already used",
	}
	ErrCodeExpired = &DomainError{
		Code:    "CODE_EXPIRED",
		Message: "recharge code expired",
	}
	ErrInvalidCodeRequest = &DomainError{
		Code:    "INVALID_CODE_REQUEST",
		Message: "invalid recharge code generation request",
	}
)
