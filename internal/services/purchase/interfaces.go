package purchase

import (
	"context"

	"coursepay/internal/models"
	"coursepay/internal/repositories"
)

// Courses is the catalog collaborator. Methods taking a Store run inside
// the caller's transaction.
type Courses interface {
	GetCourse(ctx context.Context, tx repositories.Store, courseID uint) (*models.Course, error)
	LockCoursePrice(ctx context.Context, tx repositories.Store, course *models.Course) error
	EnrollStudent(ctx context.Context, tx repositories.Store, studentID, courseID uint) error
	UnenrollStudent(ctx context.Context, tx repositories.Store, studentID, courseID uint) error
	RefreshCourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error)
}

// Notifier delivers purchase and refund notifications after commit.
type Notifier interface {
	SendPurchaseNotification(ctx context.Context, studentID, courseID uint, txn *models.Transaction) error
	SendRefundNotification(ctx context.Context, studentID, courseID uint, txn *models.Transaction) error
}

// Result is a committed purchase and its debit.
type Result struct {
	Purchase    *models.Purchase
	Transaction *models.Transaction
}
