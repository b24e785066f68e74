// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"errors"
	"time"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrRechargeCodeNotFound = errors.New("recharge code not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrPaymentLogNotFound   = errors.New("payment log not found")
)

// Store is the ledger's unit of work. Repositories obtained from a Store
// passed into ExecuteInTransaction share that transaction.
type Store interface {
	Wallets() WalletRepository
	Purchases() PurchaseRepository
	RechargeCodes() RechargeCodeRepository
	PaymentLogs() PaymentLogRepository
	Courses() CourseRepository

	// ExecuteInTransaction runs fn in a transaction that commits when fn
	// returns nil. Calling it on a transactional Store opens a savepoint.
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

// WalletRepository stores wallets and their transactions.
type WalletRepository interface {
	// GetOrCreateForUpdate creates the student's wallet if missing and
	// returns it under an exclusive row lock.
	GetOrCreateForUpdate(ctx context.Context, studentID uint, currency string) (*models.Wallet, error)
	GetByStudentID(ctx context.Context, studentID uint) (*models.Wallet, error)
	Balance(ctx context.Context, walletID uint) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransactionHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error)
	List(ctx context.Context) ([]models.Wallet, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
}

// PurchaseRepository stores course purchases.
type PurchaseRepository interface {
	// GetActive returns the non-refunded purchase for the pair. With
	// forUpdate the row is locked.
	GetActive(ctx context.Context, studentID, courseID uint, forUpdate bool) (*models.Purchase, error)
	Create(ctx context.Context, purchase *models.Purchase) error
	MarkRefunded(ctx context.Context, purchase *models.Purchase) error
	CountSince(ctx context.Context, studentID uint, since time.Time) (int64, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Purchase, error)
	CourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error)
	List(ctx context.Context) ([]models.Purchase, error)
}

// RechargeCodeRepository stores prepaid codes.
type RechargeCodeRepository interface {
	Create(ctx context.Context, code *models.RechargeCode) error
	GetByCodeForUpdate(ctx context.Context, code string) (*models.RechargeCode, error)
	MarkUsed(ctx context.Context, code *models.RechargeCode) error
	List(ctx context.Context) ([]models.RechargeCode, error)
}

// PaymentLogRepository stores audit entries.
type PaymentLogRepository interface {
	Create(ctx context.Context, entry *models.PaymentLog) error
	FindRecent(ctx context.Context, filter models.PaymentLogFilter, since time.Time) (*models.PaymentLog, error)
	CountSince(ctx context.Context, action string, studentID uint, since time.Time) (int64, error)
}

// CourseRepository covers the catalog and enrollment tables the purchase
// flow touches.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	// LockPrice sets price_locked and reports whether this call changed it.
	LockPrice(ctx context.Context, id uint) (bool, error)
	// UpdatePrice changes the price of an unlocked course and reports
	// whether a row was updated.
	UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) (bool, error)
	// List returns the courses that are not soft-deleted, ordered by id.
	List(ctx context.Context) ([]models.Course, error)
	ListStats(ctx context.Context) ([]models.CourseStats, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	DeleteEnrollment(ctx context.Context, studentID, courseID uint) (bool, error)
	IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error)
	SaveStats(ctx context.Context, stats *models.CourseStats) error
}
