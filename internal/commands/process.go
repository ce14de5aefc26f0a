package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleared-dev/payments/internal/accounts"
	"github.com/cleared-dev/payments/internal/config"
	"github.com/cleared-dev/payments/internal/ledger"
	"github.com/cleared-dev/payments/internal/logging"
	"github.com/cleared-dev/payments/internal/model"
	"github.com/cleared-dev/payments/internal/transactions"
)

type processOptions struct {
	input      string
	output     string
	configPath string
	logLevel   string
}

// ingestSummary counts input rows.
type ingestSummary struct {
	Rows    int // decoded and applied
	Skipped int // failed to decode
}

func runProcess(ctx context.Context, opts processOptions, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	in, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	p := ledger.NewProcessor(ledger.WithLogger(logger))
	summary, err := ingest(ctx, in, p, logger)
	if err != nil {
		return fmt.Errorf("processing %s: %w", opts.input, err)
	}

	accts := p.Accounts()
	if err := writeReport(opts.output, stdout, accts); err != nil {
		return err
	}

	stats := p.Stats()
	logger.Info("ingest finished",
		zap.String("input", opts.input),
		zap.Int("rows", summary.Rows),
		zap.Int("skipped", summary.Skipped),
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.RejectedTotal()),
		zap.Int("accounts", len(accts)),
	)
	return nil
}

// ingest streams transactions from in into p in input order. Rows that fail
// to decode are logged and skipped.
func ingest(ctx context.Context, in io.Reader, p *ledger.Processor, logger *zap.Logger) (ingestSummary, error) {
	var summary ingestSummary

	r, err := transactions.NewReader(in)
	if err != nil {
		return summary, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		tx, err := r.Read()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}

		var rowErr *transactions.RowError
		if errors.As(err, &rowErr) {
			summary.Skipped++
			logger.Warn("skipping row", zap.Int("row", rowErr.Row), zap.Error(rowErr.Err))
			continue
		}
		if err != nil {
			return summary, err
		}

		p.Apply(tx)
		summary.Rows++
	}
}

// writeReport writes the account report to path, or to stdout if path is empty.
func writeReport(path string, stdout io.Writer, accts []model.Account) error {
	if path == "" {
		if err := accounts.WriteAccounts(stdout, accts); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := accounts.WriteAccounts(f, accts); err != nil {
		f.Close()
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}
