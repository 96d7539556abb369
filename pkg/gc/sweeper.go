// Package gc prunes ledger records whose blobs the network no longer serves.
// Dispersers keep blobs for a bounded retention window, after which a
// recorded identifier can only fail.
package gc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/ledger"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// Ledger is the part of ledger.Store the sweeper uses.
type Ledger interface {
	List(ctx context.Context) ([]ledger.Record, error)
	Delete(ctx context.Context, name string) error
}

// Options configures a Sweeper.
type Options struct {
	Ledger    Ledger
	Transport blob.Transport
	// MaxAge drops records older than this without probing the network. Zero
	// disables the age check.
	MaxAge time.Duration
	// DryRun reports what would be removed without deleting.
	DryRun bool
	Now    func() time.Time
	Logger *slog.Logger
}

// Sweeper removes records that point at expired or missing blobs.
type Sweeper struct {
	ledger    Ledger
	transport blob.Transport
	maxAge    time.Duration
	dryRun    bool
	now       func() time.Time
	log       *slog.Logger
}

// NewSweeper wires a ledger and a transport for pruning.
func NewSweeper(opts Options) *Sweeper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		ledger:    opts.Ledger,
		transport: opts.Transport,
		maxAge:    opts.MaxAge,
		dryRun:    opts.DryRun,
		now:       now,
		log:       logger,
	}
}

// Sweep performs one pass and returns the names it removed. Probe failures
// other than a missing blob keep the record.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	if s.ledger == nil || (s.transport == nil && s.maxAge <= 0) {
		return nil, fmt.Errorf("gc sweeper missing dependencies")
	}
	records, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		reason, err := s.check(ctx, rec)
		if err != nil {
			s.log.Warn("gc probe failed", "name", rec.Name, "id", rec.ID.String(), "err", err)
			continue
		}
		if reason == "" {
			continue
		}
		if !s.dryRun {
			if err := s.ledger.Delete(ctx, rec.Name); err != nil && !xerrors.Has(err, xerrors.KindNotFound) {
				return removed, err
			}
		}
		s.log.Info("gc removed record", "name", rec.Name, "id", rec.ID.String(), "reason", reason, "dry_run", s.dryRun)
		removed = append(removed, rec.Name)
	}
	return removed, nil
}

func (s *Sweeper) check(ctx context.Context, rec ledger.Record) (string, error) {
	if s.maxAge > 0 && !rec.CreatedAt.IsZero() && s.now().Sub(rec.CreatedAt) > s.maxAge {
		return "expired", nil
	}
	if s.transport == nil {
		return "", nil
	}
	_, err := s.transport.Retrieve(ctx, rec.ID.Index, rec.ID.BatchTag)
	switch {
	case err == nil:
		return "", nil
	case xerrors.Has(err, xerrors.KindNotFound):
		return "missing", nil
	default:
		return "", err
	}
}

// Start launches a background sweep loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			_, err := s.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("gc sweep", "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}
