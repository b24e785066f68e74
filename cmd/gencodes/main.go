// Command gencodes generates a batch of recharge codes and writes them to
// a file or stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/logger"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/services/paymentlog"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/validation"

	"github.com/shopspring/decimal"
)

type options struct {
	Amount    string `json:"amount" validate:"required"`
	Count     int    `json:"count" validate:"min=1,max=1000"`
	Prefix    string `json:"prefix" validate:"max=20"`
	AdminID   uint   `json:"admin"`
	ExpiresIn int    `json:"expires-in" validate:"gte=0,lte=3650"`
	Format    string `json:"format" validate:"oneof=csv txt json"`
	Output    string `json:"output"`
}

func main() {
	config.LoadEnv()
	logger.Init(config.GetBoolEnv("DEBUG", false))

	var opts options
	flag.StringVar(&opts.Amount, "amount", "", "amount credited by each code (required)")
	flag.IntVar(&opts.Count, "count", 1, "number of codes to generate (1-1000)")
	flag.StringVar(&opts.Prefix, "prefix", "", "optional code prefix")
	flag.UintVar(&opts.AdminID, "admin", 0, "id of the admin issuing the codes")
	flag.IntVar(&opts.ExpiresIn, "expires-in", 0, "days until the codes expire, 0 for never")
	flag.StringVar(&opts.Format, "format", "csv", "output format: csv, txt or json")
	flag.StringVar(&opts.Output, "output", "", "output file, stdout when empty")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		logger.Errorf("gencodes: %v", err)
		os.Exit(1)
	}
}

func (o options) validate() error {
	errs := validation.Struct(o)
	if errs == nil {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = "-" + field + " " + errs[field]
	}
	return errors.New(strings.Join(msgs, "; "))
}

// run returns instead of exiting so deferred cleanup always happens.
func run(ctx context.Context, opts options) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		return fmt.Errorf("invalid -amount %q: %w", opts.Amount, err)
	}

	cfg := config.Load()
	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	defer repositories.CloseDB(db)

	store := repositories.NewStore(db)
	clk := clock.RealClock{}
	logs := paymentlog.NewService(store, clk, cfg.Ledger)
	codeService := rechargecode.NewService(store, logs, nil, nil, nil, clk, cfg.Ledger, nil)

	var expiresAt *time.Time
	if opts.ExpiresIn > 0 {
		t := clk.Now().AddDate(0, 0, opts.ExpiresIn)
		expiresAt = &t
	}
	var createdBy *models.Actor
	if opts.AdminID > 0 {
		createdBy = &models.Actor{ID: opts.AdminID, Role: models.RoleAdmin}
	}

	codes, err := codeService.GenerateCodes(ctx, amount, opts.Count, opts.Prefix, expiresAt, createdBy)
	if err != nil {
		return fmt.Errorf("failed to generate codes: %w", err)
	}

	var w io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Output, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if err := writeCodes(w, opts.Format, codes); err != nil {
		return fmt.Errorf("failed to write codes: %w", err)
	}
	logger.Infof("Generated %d codes worth %s each", len(codes), amount.StringFixed(2))
	return nil
}

func writeCodes(w io.Writer, format string, codes []models.RechargeCode) error {
	switch format {
	case "txt":
		for _, c := range codes {
			if _, err := fmt.Fprintln(w, c.Code); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(codes)
	default:
		return rechargecode.ExportCSV(w, codes)
	}
}
