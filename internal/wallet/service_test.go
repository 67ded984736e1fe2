package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tronscope/tronscope/internal/logging"
	"github.com/tronscope/tronscope/internal/tron"
)

const testAddress = "TNebqVps2RUEfv8zxfXcYJtNoXz7Tp3vpN"

type fakeChain struct {
	energy     int64
	bandwidth  int64
	balance    decimal.Decimal
	err        error
	balanceErr error
	calls      atomic.Int32
}

func (f *fakeChain) GetEnergy(context.Context, string) (int64, error) {
	f.calls.Add(1)
	return f.energy, f.err
}

func (f *fakeChain) GetBandwidth(context.Context, string) (int64, error) {
	f.calls.Add(1)
	return f.bandwidth, f.err
}

func (f *fakeChain) GetBalance(context.Context, string) (decimal.Decimal, error) {
	f.calls.Add(1)
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, f.err
}

type failingRepository struct {
	Repository
}

func (failingRepository) Append(context.Context, RecordInput) (Record, error) {
	return Record{}, storeError("insert", errors.New("connection refused"))
}

func (failingRepository) List(context.Context, int, int) ([]Record, error) {
	return nil, storeError("select", errors.New("connection refused"))
}

// roundingRepository stores balances at two decimal places, the way a
// NUMERIC(_, 2) column would.
type roundingRepository struct {
	Repository
}

func (r roundingRepository) Append(ctx context.Context, in RecordInput) (Record, error) {
	in.Balance = in.Balance.Round(2)
	return r.Repository.Append(ctx, in)
}

func newTestChain() *fakeChain {
	return &fakeChain{energy: 150, bandwidth: 300, balance: decimal.RequireFromString("123.45")}
}

func TestServiceLookupPersists(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, newTestChain(), logging.Discard())
	ctx := context.Background()

	rec, info, err := svc.Lookup(ctx, testAddress)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.ID != 1 || rec.CreatedAt.IsZero() {
		t.Fatalf("expected store-assigned id and timestamp, got %+v", rec)
	}
	if info.Energy != 150 || info.Bandwidth != 300 || !info.Balance.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("unexpected account info %+v", info)
	}

	records, err := svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Address != testAddress || got.Energy != info.Energy || got.Bandwidth != info.Bandwidth || !got.Balance.Equal(info.Balance) {
		t.Fatalf("stored record %+v does not match lookup %+v", got, info)
	}
}

func TestServiceLookupReturnsLiveValues(t *testing.T) {
	chain := newTestChain()
	chain.balance = decimal.RequireFromString("1.234567")
	svc := NewService(roundingRepository{NewMemoryRepository()}, chain, logging.Discard())
	ctx := context.Background()

	_, info, err := svc.Lookup(ctx, testAddress)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !info.Balance.Equal(decimal.RequireFromString("1.234567")) {
		t.Fatalf("expected live balance 1.234567, got %s", info.Balance)
	}

	records, err := svc.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !records[0].Balance.Equal(decimal.RequireFromString("1.23")) {
		t.Fatalf("expected stored balance 1.23, got %s", records[0].Balance)
	}
}

func TestServiceLookupRequiresAddress(t *testing.T) {
	chain := newTestChain()
	svc := NewService(NewMemoryRepository(), chain, logging.Discard())

	if _, _, err := svc.Lookup(context.Background(), "  "); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected address required, got %v", err)
	}
	if chain.calls.Load() != 0 {
		t.Fatalf("expected no chain calls, got %d", chain.calls.Load())
	}
}

func TestServiceLookupRejectsOverlongAddress(t *testing.T) {
	chain := newTestChain()
	svc := NewService(NewMemoryRepository(), chain, logging.Discard())

	long := testAddress + fmt.Sprintf("%70s", "")
	if _, _, err := svc.Lookup(context.Background(), long); !errors.Is(err, tron.ErrBadAddress) {
		t.Fatalf("expected bad address, got %v", err)
	}
	if chain.calls.Load() != 0 {
		t.Fatalf("expected no chain calls, got %d", chain.calls.Load())
	}
}

func TestServiceLookupChainErrorSkipsStore(t *testing.T) {
	chain := newTestChain()
	chain.balanceErr = tron.ErrAddressNotFound
	repo := NewMemoryRepository()
	svc := NewService(repo, chain, logging.Discard())
	ctx := context.Background()

	if _, _, err := svc.Lookup(ctx, testAddress); !errors.Is(err, tron.ErrAddressNotFound) {
		t.Fatalf("expected address not found, got %v", err)
	}
	records, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected nothing persisted, got %d records", len(records))
	}
}

func TestServiceLookupStoreFailureDropsWrite(t *testing.T) {
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "dropped"})
	chain := newTestChain()
	svc := NewService(failingRepository{}, chain, logging.Discard(), WithDroppedWrites(dropped))

	_, _, err := svc.Lookup(context.Background(), testAddress)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if chain.calls.Load() != 3 {
		t.Fatalf("expected all three chain reads, got %d", chain.calls.Load())
	}
	if got := testutil.ToFloat64(dropped); got != 1 {
		t.Fatalf("expected one dropped write, got %v", got)
	}
}

func TestServiceListPaginates(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, newTestChain(), logging.Discard())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, _, err := svc.Lookup(ctx, fmt.Sprintf("T%033d", i)); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}

	seen := map[int64]bool{}
	wantFirst := []int64{25, 15, 5}
	wantLen := []int{10, 10, 5}
	for page := 1; page <= 3; page++ {
		records, err := svc.List(ctx, page, 10)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if len(records) != wantLen[page-1] {
			t.Fatalf("page %d: expected %d records, got %d", page, wantLen[page-1], len(records))
		}
		if records[0].ID != wantFirst[page-1] {
			t.Fatalf("page %d: expected first id %d, got %d", page, wantFirst[page-1], records[0].ID)
		}
		for i, rec := range records {
			if i > 0 && rec.ID >= records[i-1].ID {
				t.Fatalf("page %d not ordered by descending id", page)
			}
			if seen[rec.ID] {
				t.Fatalf("record %d returned twice", rec.ID)
			}
			seen[rec.ID] = true
		}
	}

	records, err := svc.List(ctx, 4, 10)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(records))
	}

	records, err = svc.List(ctx, 1<<40, MaxPageSize)
	if err != nil || len(records) != 0 {
		t.Fatalf("expected empty page for huge page number, got %d records, err %v", len(records), err)
	}
}

func TestServiceListRejectsBounds(t *testing.T) {
	svc := NewService(NewMemoryRepository(), newTestChain(), logging.Discard())
	for _, tc := range []struct{ page, limit int }{
		{0, 10}, {-1, 10}, {1, 0}, {1, MaxPageSize + 1},
	} {
		if _, err := svc.List(context.Background(), tc.page, tc.limit); !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("page=%d limit=%d: expected invalid page, got %v", tc.page, tc.limit, err)
		}
	}
}

func TestServiceListStoreFailure(t *testing.T) {
	svc := NewService(failingRepository{}, newTestChain(), logging.Discard())
	if _, err := svc.List(context.Background(), 1, 10); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestMemoryRepositoryRejectsLongAddress(t *testing.T) {
	repo := NewMemoryRepository()
	long := fmt.Sprintf("%0101d", 0)
	if _, err := repo.Append(context.Background(), RecordInput{Address: long}); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}
