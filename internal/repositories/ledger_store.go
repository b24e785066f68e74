package repositories

import (
	"context"

	"gorm.io/gorm"
)

type ledgerStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by gorm.
func NewStore(db *gorm.DB) Store {
	return &ledgerStore{db: db}
}

func (s *ledgerStore) Wallets() WalletRepository {
	return &walletRepository{db: s.db}
}

func (s *ledgerStore) Purchases() PurchaseRepository {
	return &purchaseRepository{db: s.db}
}

func (s *ledgerStore) RechargeCodes() RechargeCodeRepository {
	return &rechargeCodeRepository{db: s.db}
}

func (s *ledgerStore) PaymentLogs() PaymentLogRepository {
	return &paymentLogRepository{db: s.db}
}

func (s *ledgerStore) Courses() CourseRepository {
	return &courseRepository{db: s.db}
}

// ExecuteInTransaction uses gorm's nested transaction support, so calling it
// on a transactional store creates a savepoint.
func (s *ledgerStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerStore{db: tx})
	})
}
