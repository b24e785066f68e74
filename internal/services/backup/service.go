// Package backup dumps the financial tables to timestamped JSON files and
// prunes old dumps.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/logger"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
)

const (
	DefaultDir           = "backups/financial"
	DefaultRetentionDays = 30

	filePrefix      = "financial_backup_"
	fileExt         = ".json"
	timestampLayout = "20060102_150405"
)

// Snapshot is the content of one backup file. Amounts are encoded as
// strings.
type Snapshot struct {
	Timestamp     time.Time             `json:"timestamp"`
	Wallets       []models.Wallet       `json:"wallets"`
	Transactions  []models.Transaction  `json:"transactions"`
	Purchases     []models.Purchase     `json:"purchases"`
	RechargeCodes []models.RechargeCode `json:"recharge_codes"`
	CourseStats   []models.CourseStats  `json:"course_stats"`
}

// File describes a backup on disk.
type File struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

type Service struct {
	store repositories.Store
	clock clock.Clock
}

func NewService(store repositories.Store, clk clock.Clock) *Service {
	if store == nil {
		panic("store is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{store: store, clock: clk}
}

// Snapshot reads every financial table inside one transaction.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Timestamp: s.clock.Now().UTC()}
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		if snap.Wallets, err = tx.Wallets().List(ctx); err != nil {
			return fmt.Errorf("failed to read wallets: %w", err)
		}
		if snap.Transactions, err = tx.Wallets().ListTransactions(ctx); err != nil {
			return fmt.Errorf("failed to read transactions: %w", err)
		}
		if snap.Purchases, err = tx.Purchases().List(ctx); err != nil {
			return fmt.Errorf("failed to read purchases: %w", err)
		}
		if snap.RechargeCodes, err = tx.RechargeCodes().List(ctx); err != nil {
			return fmt.Errorf("failed to read recharge codes: %w", err)
		}
		if snap.CourseStats, err = tx.Courses().ListStats(ctx); err != nil {
			return fmt.Errorf("failed to read course stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Write encodes a fresh snapshot to w.
func (s *Service) Write(ctx context.Context, w io.Writer) (*Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return snap, nil
}

// CreateBackup writes a snapshot to dir as financial_backup_<timestamp>.json
// and returns its path. The file only appears once fully written.
func (s *Service) CreateBackup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	snap, err := s.Write(ctx, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close backup file: %w", cerr)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(snap.Timestamp))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}
	logger.Infof("backup written to %s: %d wallets, %d transactions, %d purchases, %d codes",
		path, len(snap.Wallets), len(snap.Transactions), len(snap.Purchases), len(snap.RechargeCodes))
	return path, nil
}

// FileName returns the backup file name for a snapshot taken at t.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(timestampLayout) + fileExt
}

// ParseFileName extracts the snapshot time from a backup file name.
func ParseFileName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	t, err := time.Parse(timestampLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListBackups returns the backups in dir, newest first. A missing
// directory holds no backups.
func ListBackups(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := ParseFileName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		files = append(files, File{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: created,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

// Prune deletes backups in dir older than retention and returns their
// names. Files not named like a backup are left alone.
func (s *Service) Prune(dir string, retention time.Duration) ([]string, error) {
	files, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	cutoff := s.clock.Now().UTC().Add(-retention)
	var removed []string
	for _, f := range files {
		if !f.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(f.Path); err != nil {
			logger.Warnf("failed to delete old backup %s: %v", f.Name, err)
			continue
		}
		logger.Infof("deleted old backup %s", f.Name)
		removed = append(removed, f.Name)
	}
	return removed, nil
}

// Validate checks that r holds a backup with the required sections.
func Validate(r io.Reader) error {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("invalid backup JSON: %w", err)
	}
	for _, key := range []string{"timestamp", "wallets", "transactions", "purchases"} {
		if _, ok := doc[key]; !ok {
			return fmt.Errorf("backup is missing %q", key)
		}
	}
	return nil
}
