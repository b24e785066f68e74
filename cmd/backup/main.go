// Command backup dumps the financial tables to a timestamped JSON file and
// deletes dumps older than the retention period.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/logger"
	"coursepay/internal/repositories"
	"coursepay/internal/services/backup"
)

type options struct {
	Output        string
	RetentionDays int
	Automatic     bool
}

func main() {
	config.LoadEnv()
	logger.Init(config.GetBoolEnv("DEBUG", false))

	var opts options
	flag.StringVar(&opts.Output, "output", backup.DefaultDir, "directory the backup is written to")
	flag.IntVar(&opts.RetentionDays, "retention-days", backup.DefaultRetentionDays, "delete backups older than this many days, 0 keeps all")
	flag.BoolVar(&opts.Automatic, "automatic", false, "mark the run as scheduled in the logs")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		logger.Errorf("backup failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.RetentionDays < 0 {
		return errors.New("-retention-days must not be negative")
	}

	cfg := config.Load()
	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	defer repositories.CloseDB(db)

	svc := backup.NewService(repositories.NewStore(db), clock.RealClock{})
	return createAndPrune(ctx, svc, opts)
}

func createAndPrune(ctx context.Context, svc *backup.Service, opts options) error {
	path, err := svc.CreateBackup(ctx, opts.Output)
	if err != nil {
		return err
	}
	if opts.Automatic {
		logger.Infof("automatic backup created: %s", path)
	} else {
		logger.Infof("backup created: %s", path)
	}

	if opts.RetentionDays > 0 {
		removed, err := svc.Prune(opts.Output, time.Duration(opts.RetentionDays)*24*time.Hour)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logger.Infof("removed %d backups older than %d days", len(removed), opts.RetentionDays)
		}
	}
	return nil
}
