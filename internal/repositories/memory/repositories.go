package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursepay/internal/models"
	"coursepay/internal/repositories"

	"github.com/shopspring/decimal"
)

var (
	_ repositories.Store = (*Store)(nil)
	_ repositories.Store = (*view)(nil)
)

type walletRepo struct{ v *view }

func (r walletRepo) GetOrCreateForUpdate(ctx context.Context, studentID uint, currency string) (*models.Wallet, error) {
	st, release := r.v.acquire()
	defer release()

	if id, ok := st.walletByStudent[studentID]; ok {
		w := st.wallets[id]
		return &w, nil
	}
	now := r.v.store.now()
	w := models.Wallet{
		ID:        st.nextID(),
		StudentID: studentID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.wallets[w.ID] = w
	st.walletByStudent[studentID] = w.ID
	return &w, nil
}

func (r walletRepo) GetByStudentID(ctx context.Context, studentID uint) (*models.Wallet, error) {
	st, release := r.v.acquire()
	defer release()

	id, ok := st.walletByStudent[studentID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	w := st.wallets[id]
	return &w, nil
}

func (r walletRepo) Balance(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	st, release := r.v.acquire()
	defer release()

	balance := decimal.Zero
	for _, t := range st.transactions {
		if t.WalletID == walletID {
			balance = balance.Add(t.Amount)
		}
	}
	return balance, nil
}

func (r walletRepo) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	st, release := r.v.acquire()
	defer release()

	if _, ok := st.wallets[txn.WalletID]; !ok {
		return fmt.Errorf("failed to create transaction: wallet %d does not exist", txn.WalletID)
	}
	if _, dup := st.references[txn.Reference]; dup {
		return fmt.Errorf("transaction reference %s exists: %w", txn.Reference, repositories.ErrConflict)
	}
	txn.ID = st.nextID()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = r.v.store.now()
	}
	st.transactions = append(st.transactions, *txn)
	st.references[txn.Reference] = struct{}{}
	return nil
}

func (r walletRepo) GetTransactionHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	st, release := r.v.acquire()
	defer release()

	var out []models.Transaction
	for i := len(st.transactions) - 1; i >= 0; i-- {
		if st.transactions[i].WalletID == walletID {
			out = append(out, st.transactions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type purchaseRepo struct{ v *view }

func (r purchaseRepo) GetActive(ctx context.Context, studentID, courseID uint, forUpdate bool) (*models.Purchase, error) {
	st, release := r.v.acquire()
	defer release()

	for _, p := range st.purchases {
		if p.StudentID == studentID && p.CourseID == courseID && !p.Refunded {
			return &p, nil
		}
	}
	return nil, repositories.ErrPurchaseNotFound
}

func (r purchaseRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	st, release := r.v.acquire()
	defer release()

	for _, p := range st.purchases {
		if p.StudentID == purchase.StudentID && p.CourseID == purchase.CourseID && !p.Refunded {
			return fmt.Errorf("active purchase exists for student %d course %d: %w",
				purchase.StudentID, purchase.CourseID, repositories.ErrConflict)
		}
		if p.TransactionID == purchase.TransactionID {
			return fmt.Errorf("transaction %d already linked: %w", purchase.TransactionID, repositories.ErrConflict)
		}
	}
	purchase.ID = st.nextID()
	st.purchases[purchase.ID] = *purchase
	return nil
}

func (r purchaseRepo) MarkRefunded(ctx context.Context, purchase *models.Purchase) error {
	st, release := r.v.acquire()
	defer release()

	p, ok := st.purchases[purchase.ID]
	if !ok || p.Refunded {
		return fmt.Errorf("purchase %d already refunded: %w", purchase.ID, repositories.ErrConflict)
	}
	p.Refunded = true
	p.RefundedAt = purchase.RefundedAt
	p.RefundReason = purchase.RefundReason
	p.RefundTransactionID = purchase.RefundTransactionID
	st.purchases[p.ID] = p
	purchase.Refunded = true
	return nil
}

func (r purchaseRepo) CountSince(ctx context.Context, studentID uint, since time.Time) (int64, error) {
	st, release := r.v.acquire()
	defer release()

	var n int64
	for _, p := range st.purchases {
		if p.StudentID == studentID && !p.PurchasedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r purchaseRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.Purchase, error) {
	st, release := r.v.acquire()
	defer release()

	var out []models.Purchase
	for _, p := range st.purchases {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})
	return out, nil
}

func (r purchaseRepo) CourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error) {
	st, release := r.v.acquire()
	defer release()

	stats := &models.CourseStats{CourseID: courseID, TotalRevenue: decimal.Zero}
	students := map[uint]struct{}{}
	for _, p := range st.purchases {
		if p.CourseID != courseID || p.Refunded {
			continue
		}
		stats.TotalPurchases++
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
		students[p.StudentID] = struct{}{}
	}
	stats.ActiveStudents = int64(len(students))
	return stats, nil
}

type codeRepo struct{ v *view }

func (r codeRepo) Create(ctx context.Context, code *models.RechargeCode) error {
	st, release := r.v.acquire()
	defer release()

	if _, dup := st.codeIndex[code.Code]; dup {
		return fmt.Errorf("recharge code %q exists: %w", code.Code, repositories.ErrConflict)
	}
	code.ID = st.nextID()
	if code.CreatedAt.IsZero() {
		code.CreatedAt = r.v.store.now()
	}
	st.codes[code.ID] = *code
	st.codeIndex[code.Code] = code.ID
	return nil
}

func (r codeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*models.RechargeCode, error) {
	st, release := r.v.acquire()
	defer release()

	id, ok := st.codeIndex[code]
	if !ok {
		return nil, repositories.ErrRechargeCodeNotFound
	}
	rc := st.codes[id]
	return &rc, nil
}

func (r codeRepo) MarkUsed(ctx context.Context, code *models.RechargeCode) error {
	st, release := r.v.acquire()
	defer release()

	rc, ok := st.codes[code.ID]
	if !ok || rc.IsUsed {
		return fmt.Errorf("recharge code %d already used: %w", code.ID, repositories.ErrConflict)
	}
	rc.IsUsed = true
	rc.UsedByID = code.UsedByID
	rc.UsedAt = code.UsedAt
	st.codes[rc.ID] = rc
	code.IsUsed = true
	return nil
}

type logRepo struct{ v *view }

func (r logRepo) Create(ctx context.Context, entry *models.PaymentLog) error {
	st, release := r.v.acquire()
	defer release()

	entry.ID = st.nextID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.v.store.now()
	}
	st.logs = append(st.logs, *entry)
	return nil
}

func (r logRepo) FindRecent(ctx context.Context, filter models.PaymentLogFilter, since time.Time) (*models.PaymentLog, error) {
	st, release := r.v.acquire()
	defer release()

	var found *models.PaymentLog
	for i := range st.logs {
		l := st.logs[i]
		if l.CreatedAt.Before(since) || !filter.Matches(&l) {
			continue
		}
		if found == nil || !l.CreatedAt.Before(found.CreatedAt) {
			found = &l
		}
	}
	if found == nil {
		return nil, repositories.ErrPaymentLogNotFound
	}
	return found, nil
}

func (r logRepo) CountSince(ctx context.Context, action string, studentID uint, since time.Time) (int64, error) {
	st, release := r.v.acquire()
	defer release()

	var n int64
	for _, l := range st.logs {
		if l.Action == action && l.StudentID != nil && *l.StudentID == studentID && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type courseRepo struct{ v *view }

func (r courseRepo) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	st, release := r.v.acquire()
	defer release()

	c, ok := st.courses[id]
	if !ok {
		return nil, repositories.ErrCourseNotFound
	}
	return &c, nil
}

func (r courseRepo) Create(ctx context.Context, course *models.Course) error {
	st, release := r.v.acquire()
	defer release()

	if course.ID == 0 {
		course.ID = st.nextID()
	} else if _, dup := st.courses[course.ID]; dup {
		return fmt.Errorf("course %d exists: %w", course.ID, repositories.ErrConflict)
	} else if course.ID > st.seq {
		st.seq = course.ID
	}
	now := r.v.store.now()
	course.CreatedAt, course.UpdatedAt = now, now
	st.courses[course.ID] = *course
	return nil
}

func (r courseRepo) LockPrice(ctx context.Context, id uint) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	c, ok := st.courses[id]
	if !ok || c.PriceLocked {
		return false, nil
	}
	c.PriceLocked = true
	c.UpdatedAt = r.v.store.now()
	st.courses[id] = c
	return true, nil
}

func (r courseRepo) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	key := enrollmentKey{enrollment.StudentID, enrollment.CourseID}
	if _, ok := st.enrollments[key]; ok {
		return false, nil
	}
	enrollment.ID = st.nextID()
	st.enrollments[key] = *enrollment
	return true, nil
}

func (r courseRepo) DeleteEnrollment(ctx context.Context, studentID, courseID uint) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	key := enrollmentKey{studentID, courseID}
	if _, ok := st.enrollments[key]; !ok {
		return false, nil
	}
	delete(st.enrollments, key)
	return true, nil
}

func (r courseRepo) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	_, ok := st.enrollments[enrollmentKey{studentID, courseID}]
	return ok, nil
}

func (r courseRepo) SaveStats(ctx context.Context, stats *models.CourseStats) error {
	st, release := r.v.acquire()
	defer release()

	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = r.v.store.now()
	}
	st.stats[stats.CourseID] = *stats
	return nil
}

func (r walletRepo) List(ctx context.Context) ([]models.Wallet, error) {
	st, release := r.v.acquire()
	defer release()

	out := make([]models.Wallet, 0, len(st.wallets))
	for _, w := range st.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r walletRepo) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	st, release := r.v.acquire()
	defer release()

	return append([]models.Transaction(nil), st.transactions...), nil
}

func (r purchaseRepo) List(ctx context.Context) ([]models.Purchase, error) {
	st, release := r.v.acquire()
	defer release()

	out := make([]models.Purchase, 0, len(st.purchases))
	for _, p := range st.purchases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r codeRepo) List(ctx context.Context) ([]models.RechargeCode, error) {
	st, release := r.v.acquire()
	defer release()

	out := make([]models.RechargeCode, 0, len(st.codes))
	for _, c := range st.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r courseRepo) UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) (bool, error) {
	st, release := r.v.acquire()
	defer release()

	c, ok := st.courses[id]
	if !ok || c.PriceLocked {
		return false, nil
	}
	c.Price = price
	c.UpdatedAt = r.v.store.now()
	st.courses[id] = c
	return true, nil
}

func (r courseRepo) List(ctx context.Context) ([]models.Course, error) {
	st, release := r.v.acquire()
	defer release()

	out := make([]models.Course, 0, len(st.courses))
	for _, c := range st.courses {
		if !c.DeletedAt.Valid {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r courseRepo) ListStats(ctx context.Context) ([]models.CourseStats, error) {
	st, release := r.v.acquire()
	defer release()

	out := make([]models.CourseStats, 0, len(st.stats))
	for _, s := range st.stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}
