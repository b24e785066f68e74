package wallet

// Operation names used for metrics and logs
const (
	OperationDeposit       = "deposit"
	OperationWithdraw      = "withdraw"
	OperationManualDeposit = "manual_deposit"
	OperationGetBalance    = "get_balance"
)

// Operation results
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// History paging bounds
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)
