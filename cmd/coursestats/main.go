// Command coursestats recomputes cached course statistics for one course
// or for the whole catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/logger"
	"coursepay/internal/repositories"
	"coursepay/internal/repositories/cache"
	"coursepay/internal/services/course"
)

type options struct {
	CourseID uint
	All      bool
	Verbose  bool
}

func (o options) validate() error {
	if o.All == (o.CourseID != 0) {
		return errors.New("pass exactly one of -course-id or -all")
	}
	return nil
}

func main() {
	config.LoadEnv()

	var opts options
	flag.UintVar(&opts.CourseID, "course-id", 0, "refresh a single course")
	flag.BoolVar(&opts.All, "all", false, "refresh every course")
	flag.BoolVar(&opts.Verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	logger.Init(opts.Verbose || config.GetBoolEnv("DEBUG", false))

	if err := run(context.Background(), opts); err != nil {
		logger.Errorf("coursestats: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg := config.Load()
	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	defer repositories.CloseDB(db)

	var statsCache course.StatsCache
	if cfg.Redis.Enabled {
		cacheService := cache.NewCacheService(cache.NewRedisClient(cfg.Redis), cfg.Ledger.WithDefaults().BalanceCacheTTL)
		if err := cacheService.HealthCheck(ctx); err != nil {
			logger.Warnf("Redis unavailable, refreshing without cache: %v", err)
		} else {
			statsCache = cacheService
		}
		defer cacheService.Close()
	}

	svc := course.NewService(repositories.NewStore(db), statsCache, nil, clock.RealClock{})
	return refresh(ctx, svc, opts)
}

func refresh(ctx context.Context, svc *course.Service, opts options) error {
	if !opts.All {
		if _, err := svc.GetCourse(ctx, nil, opts.CourseID); err != nil {
			return err
		}
		stats, err := svc.RefreshCourseStats(ctx, opts.CourseID)
		if err != nil {
			return err
		}
		logger.Infof("course %d: %d purchases, revenue %s, %d active students",
			stats.CourseID, stats.TotalPurchases, stats.TotalRevenue.StringFixed(2), stats.ActiveStudents)
		return nil
	}

	refreshed, err := svc.RefreshAllCourseStats(ctx)
	logger.Infof("refreshed stats for %d courses", refreshed)
	return err
}
