package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypePurchase      = "purchase"
	TransactionTypeRefund        = "refund"
	TransactionTypeRechargeCode  = "recharge_code"
	TransactionTypeManualDeposit = "manual_deposit"
)

// Payment methods
const (
	PaymentMethodWallet       = "wallet"
	PaymentMethodFawry        = "fawry"
	PaymentMethodManual       = "manual"
	PaymentMethodRechargeCode = "recharge_code"
)

// Transaction is an immutable, signed ledger entry.
type Transaction struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	Reference      string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	WalletID       uint            `gorm:"not null;index:idx_transactions_wallet_created,priority:1" json:"wallet_id"`
	Type           string          `gorm:"size:20;not null;index" json:"type"`
	PaymentMethod  string          `gorm:"size:20;not null" json:"payment_method"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description    string          `gorm:"size:255" json:"description"`
	Reason         string          `gorm:"type:text" json:"reason,omitempty"`
	PurchaseID     *uint           `gorm:"index" json:"purchase_id,omitempty"`
	RechargeCodeID *uint           `gorm:"index" json:"recharge_code_id,omitempty"`
	CreatedByID    *uint           `json:"created_by_id,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;index:idx_transactions_wallet_created,priority:2" json:"created_at"`
}

// IsDebit reports whether the type must carry a negative amount.
func IsDebit(txType string) bool {
	return txType == TransactionTypeWithdrawal || txType == TransactionTypePurchase
}

func isCredit(txType string) bool {
	switch txType {
	case TransactionTypeDeposit, TransactionTypeRefund, TransactionTypeRechargeCode, TransactionTypeManualDeposit:
		return true
	}
	return false
}

// ValidateSign checks the amount sign against the transaction type.
func (t *Transaction) ValidateSign() error {
	switch {
	case IsDebit(t.Type):
		if !t.Amount.IsNegative() {
			return fmt.Errorf("%s transaction must have a negative amount, got %s", t.Type, t.Amount)
		}
	case isCredit(t.Type):
		if !t.Amount.IsPositive() {
			return fmt.Errorf("%s transaction must have a positive amount, got %s", t.Type, t.Amount)
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return nil
}
