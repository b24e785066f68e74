package memory

import (
	"coursepay/internal/models"
)

type enrollmentKey struct {
	studentID uint
	courseID  uint
}

// state is one consistent snapshot of every table.
type state struct {
	seq uint

	wallets         map[uint]models.Wallet
	walletByStudent map[uint]uint
	transactions    []models.Transaction
	references      map[string]struct{}
	purchases       map[uint]models.Purchase
	codes           map[uint]models.RechargeCode
	codeIndex       map[string]uint
	logs            []models.PaymentLog
	courses         map[uint]models.Course
	enrollments     map[enrollmentKey]models.Enrollment
	stats           map[uint]models.CourseStats
}

func newState() *state {
	return &state{
		wallets:         map[uint]models.Wallet{},
		walletByStudent: map[uint]uint{},
		references:      map[string]struct{}{},
		purchases:       map[uint]models.Purchase{},
		codes:           map[uint]models.RechargeCode{},
		codeIndex:       map[string]uint{},
		courses:         map[uint]models.Course{},
		enrollments:     map[enrollmentKey]models.Enrollment{},
		stats:           map[uint]models.CourseStats{},
	}
}

func (s *state) nextID() uint {
	s.seq++
	return s.seq
}

// clone copies every table. Rows are values, so a clone can be mutated
// without affecting the original.
func (s *state) clone() *state {
	c := &state{
		seq:             s.seq,
		wallets:         make(map[uint]models.Wallet, len(s.wallets)),
		walletByStudent: make(map[uint]uint, len(s.walletByStudent)),
		transactions:    append([]models.Transaction(nil), s.transactions...),
		references:      make(map[string]struct{}, len(s.references)),
		purchases:       make(map[uint]models.Purchase, len(s.purchases)),
		codes:           make(map[uint]models.RechargeCode, len(s.codes)),
		codeIndex:       make(map[string]uint, len(s.codeIndex)),
		logs:            append([]models.PaymentLog(nil), s.logs...),
		courses:         make(map[uint]models.Course, len(s.courses)),
		enrollments:     make(map[enrollmentKey]models.Enrollment, len(s.enrollments)),
		stats:           make(map[uint]models.CourseStats, len(s.stats)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.walletByStudent {
		c.walletByStudent[k] = v
	}
	for k := range s.references {
		c.references[k] = struct{}{}
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.codeIndex {
		c.codeIndex[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.stats {
		c.stats[k] = v
	}
	return c
}
