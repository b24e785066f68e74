package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Course statuses
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

// Course is the subset of the catalog the ledger needs.
type Course struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status      string          `gorm:"size:20;not null;default:'draft'" json:"status"`
	PriceLocked bool            `gorm:"not null;default:false" json:"price_locked"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Purchasable reports whether the course can be bought with the wallet.
func (c *Course) Purchasable() bool {
	return c.Status == CourseStatusPublished && !c.DeletedAt.Valid && c.Price.IsPositive()
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_enrollments_student_course" json:"student_id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollments_student_course" json:"course_id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
}

// CourseStats is the cached aggregate over non-refunded purchases.
type CourseStats struct {
	CourseID       uint            `gorm:"primarykey" json:"course_id"`
	TotalPurchases int64           `gorm:"not null;default:0" json:"total_purchases"`
	TotalRevenue   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_revenue"`
	ActiveStudents int64           `gorm:"not null;default:0" json:"active_students"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
