// Package memory implements repositories.Store in process memory. Every
// transaction holds a single store-wide lock, which gives serializable
// isolation and makes "row locks" trivially exclusive. It backs the
// service tests and the memory store driver.
package memory

import (
	"context"
	"sync"
	"time"

	"coursepay/internal/repositories"
)

// Store is an in-memory repositories.Store.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults []error
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FailNextCommits makes the next n commits fail with err after fn has run,
// discarding the transaction's writes.
func (s *Store) FailNextCommits(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.faults = append(s.faults, err)
	}
}

func (s *Store) popFault() error {
	if len(s.faults) == 0 {
		return nil
	}
	err := s.faults[0]
	s.faults = s.faults[1:]
	return err
}

func (s *Store) root() *view {
	return &view{store: s}
}

func (s *Store) Wallets() repositories.WalletRepository {
	return walletRepo{s.root()}
}

func (s *Store) Purchases() repositories.PurchaseRepository {
	return purchaseRepo{s.root()}
}

func (s *Store) RechargeCodes() repositories.RechargeCodeRepository {
	return codeRepo{s.root()}
}

func (s *Store) PaymentLogs() repositories.PaymentLogRepository {
	return logRepo{s.root()}
}

func (s *Store) Courses() repositories.CourseRepository {
	return courseRepo{s.root()}
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&view{store: s, st: snapshot}); err != nil {
		return err
	}
	if err := s.popFault(); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// view is either the committed store (st == nil) or a transaction
// snapshot.
type view struct {
	store *Store
	st    *state
}

// acquire locks the store for a single non-transactional operation and
// returns the state to work on with its release function.
func (v *view) acquire() (*state, func()) {
	if v.st != nil {
		return v.st, func() {}
	}
	v.store.mu.Lock()
	return v.store.state, v.store.mu.Unlock
}

func (v *view) Wallets() repositories.WalletRepository {
	return walletRepo{v}
}

func (v *view) Purchases() repositories.PurchaseRepository {
	return purchaseRepo{v}
}

func (v *view) RechargeCodes() repositories.RechargeCodeRepository {
	return codeRepo{v}
}

func (v *view) PaymentLogs() repositories.PaymentLogRepository {
	return logRepo{v}
}

func (v *view) Courses() repositories.CourseRepository {
	return courseRepo{v}
}

// ExecuteInTransaction on a transaction view behaves like a savepoint.
func (v *view) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if v.st == nil {
		return v.store.ExecuteInTransaction(ctx, fn)
	}
	child := v.st.clone()
	if err := fn(&view{store: v.store, st: child}); err != nil {
		return err
	}
	*v.st = *child
	return nil
}
