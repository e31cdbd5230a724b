package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
	maxLineBytes  = 64 << 10
)

// CouponStore is the subset of the coupon repository the importer writes to.
type CouponStore interface {
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	Upsert(ctx context.Context, c coupon.Coupon) (int64, error)
}

type importStats struct {
	inserted, updated, skipped, invalid int
}

func main() {
	var (
		pattern     string
		databaseURL string
		overwrite   bool
	)

	flag.StringVar(&pattern, "files", "data/coupons*.jsonl.gz", "glob of gzipped JSON-lines coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&overwrite, "overwrite", false, "update coupons whose code already exists")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, pattern, databaseURL, overwrite); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, pattern, databaseURL string, overwrite bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %s", pattern)
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", pattern)
	}

	if _, err := repository.RunMigrations(databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewCouponRepository(pool)

	slog.Info("loading existing coupon codes")
	filter, err := repository.NewCouponFilter(ctx, repo, bloomCapacity, bloomFPR)
	if err != nil {
		return errors.Wrap(err, "build coupon filter")
	}

	stats, err := importFiles(ctx, files, repo, filter, overwrite)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int("inserted", stats.inserted),
		slog.Int("updated", stats.updated),
		slog.Int("skipped", stats.skipped),
		slog.Int("invalid", stats.invalid),
	)
	return nil
}

// importFiles reads every file concurrently and writes records from a single
// goroutine. filter answers "already stored?" and is updated as codes are
// written, so duplicates across files are caught too.
func importFiles(
	ctx context.Context,
	files []string,
	store CouponStore,
	filter *repository.CouponFilter,
	overwrite bool,
) (importStats, error) {
	var stats importStats
	records := make(chan coupon.Coupon, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(ctx)
	for i, f := range files {
		readers.Go(func() error {
			n, bad, err := readFile(rctx, f, records)
			if err != nil {
				return errors.Wrapf(err, "read file %d", i+1)
			}
			slog.Info("file read", slog.String("path", f), slog.Int("records", n), slog.Int("invalid", bad))
			return nil
		})
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})
	g.Go(func() error {
		for c := range records {
			if err := writeRecord(ctx, store, filter, c, overwrite, &stats); err != nil {
				return err
			}
			if total := stats.inserted + stats.updated + stats.skipped; total%progressEvery == 0 {
				slog.Info("write progress", slog.Int("processed", total))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func writeRecord(
	ctx context.Context,
	store CouponStore,
	filter *repository.CouponFilter,
	c coupon.Coupon,
	overwrite bool,
	stats *importStats,
) error {
	_, err := filter.FindByCode(ctx, c.Code)
	exists := err == nil
	if err != nil && !errors.Is(err, coupon.ErrNotFound) {
		return errors.Wrapf(err, "check coupon %s", c.Code)
	}
	if exists && !overwrite {
		stats.skipped++
		return nil
	}

	if _, err := store.Upsert(ctx, c); err != nil {
		return err
	}
	filter.Add(c.Code)
	if exists {
		stats.updated++
	} else {
		stats.inserted++
	}
	return nil
}

// readFile streams a gzipped JSON-lines file into out. Invalid lines are
// logged and counted, not fatal.
func readFile(ctx context.Context, path string, out chan<- coupon.Coupon) (n, invalid int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		c, err := parseRecord(raw)
		if err != nil {
			invalid++
			slog.Warn("skipping invalid record",
				slog.String("path", path),
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}
		select {
		case out <- c:
			n++
		case <-ctx.Done():
			return n, invalid, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return n, invalid, errors.Wrapf(err, "scan %s", path)
	}
	return n, invalid, nil
}
