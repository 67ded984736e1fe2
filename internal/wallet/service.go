package wallet

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tronscope/tronscope/internal/tron"
)

// Chain reads live account metrics for an address.
type Chain interface {
	GetEnergy(ctx context.Context, address string) (int64, error)
	GetBandwidth(ctx context.Context, address string) (int64, error)
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Service looks addresses up on chain and keeps a history of the lookups.
type Service struct {
	repo    Repository
	chain   Chain
	logger  *slog.Logger
	dropped prometheus.Counter
}

// Option customises a Service.
type Option func(*Service)

// WithDroppedWrites counts lookups lost to store failures.
func WithDroppedWrites(c prometheus.Counter) Option {
	return func(s *Service) { s.dropped = c }
}

// NewService builds a lookup service instance.
func NewService(repo Repository, chain Chain, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, chain: chain, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup fetches the address's energy, bandwidth and balance and persists
// them as a new record. The returned AccountInfo carries the values read from
// the chain, not values read back from the store.
//
// Persistence is at most once: if the store fails after the chain reads
// succeed, the lookup is logged and dropped without retry.
func (s *Service) Lookup(ctx context.Context, address string) (Record, AccountInfo, error) {
	if strings.TrimSpace(address) == "" {
		return Record{}, AccountInfo{}, ErrAddressRequired
	}
	// Stored verbatim; refuse what the column cannot hold before any chain read.
	if len(address) > MaxAddressLen {
		return Record{}, AccountInfo{}, tron.ErrBadAddress
	}

	var info AccountInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info.Energy, err = s.chain.GetEnergy(gctx, address)
		return err
	})
	g.Go(func() (err error) {
		info.Bandwidth, err = s.chain.GetBandwidth(gctx, address)
		return err
	})
	g.Go(func() (err error) {
		info.Balance, err = s.chain.GetBalance(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return Record{}, AccountInfo{}, err
	}

	rec, err := s.repo.Append(ctx, RecordInput{Address: address, AccountInfo: info})
	if err != nil {
		s.logger.Warn("lookup dropped",
			slog.String("address", address),
			slog.Int64("energy", info.Energy),
			slog.Int64("bandwidth", info.Bandwidth),
			slog.String("balance", info.Balance.String()),
			slog.Any("error", err))
		if s.dropped != nil {
			s.dropped.Inc()
		}
		return Record{}, AccountInfo{}, err
	}

	return rec, info, nil
}

// List returns one page of records, newest first. Pages start at 1.
func (s *Service) List(ctx context.Context, page, limit int) ([]Record, error) {
	if page < 1 || limit < 1 || limit > MaxPageSize {
		return nil, ErrInvalidPage
	}
	if page-1 > math.MaxInt32/limit {
		// Far past any realistic table size.
		return []Record{}, nil
	}
	return s.repo.List(ctx, (page-1)*limit, limit)
}
