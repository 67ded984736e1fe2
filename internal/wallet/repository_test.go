package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// newTestPostgresRepository connects to DATABASE_URL and isolates the test in
// a throwaway schema. Tests are skipped when no database is configured.
func newTestPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping postgres repository test")
	}
	ctx := context.Background()

	schema := fmt.Sprintf("wallet_test_%d", time.Now().UnixNano())
	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close(ctx)
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Errorf("drop schema: %v", err)
		}
		admin.Close(context.Background())
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	// A second call must be a no-op.
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema twice: %v", err)
	}
	return repo
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()

	in := RecordInput{
		Address: testAddress,
		AccountInfo: AccountInfo{
			Energy:    150,
			Bandwidth: 300,
			Balance:   decimal.RequireFromString("123.456789"),
		},
	}
	before := time.Now().Add(-time.Minute)
	rec, err := repo.Append(ctx, in)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.ID < 1 {
		t.Fatalf("expected assigned id, got %d", rec.ID)
	}
	if rec.CreatedAt.Before(before) {
		t.Fatalf("expected created_at to be set, got %s", rec.CreatedAt)
	}

	records, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != rec.ID || got.Address != in.Address || got.Energy != in.Energy || got.Bandwidth != in.Bandwidth {
		t.Fatalf("stored record %+v does not match input %+v", got, in)
	}
	if !got.Balance.Equal(in.Balance) {
		t.Fatalf("expected balance %s, got %s", in.Balance, got.Balance)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("expected created_at %s, got %s", rec.CreatedAt, got.CreatedAt)
	}
}

func TestPostgresRepositoryPages(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		in := RecordInput{
			Address:     fmt.Sprintf("T%033d", i),
			AccountInfo: AccountInfo{Energy: int64(i), Balance: decimal.NewFromInt(int64(i))},
		}
		if _, err := repo.Append(ctx, in); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	first, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	second, err := repo.List(ctx, 10, 10)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(first) != 10 || len(second) != 5 {
		t.Fatalf("expected pages of 10 and 5, got %d and %d", len(first), len(second))
	}

	seen := map[int64]bool{}
	all := append(append([]Record{}, first...), second...)
	for i, rec := range all {
		if i > 0 && rec.ID >= all[i-1].ID {
			t.Fatalf("records not ordered by descending id at %d", i)
		}
		if seen[rec.ID] {
			t.Fatalf("record %d returned on both pages", rec.ID)
		}
		seen[rec.ID] = true
	}
	if all[0].Energy != 14 || all[len(all)-1].Energy != 0 {
		t.Fatalf("expected newest first, got energies %d..%d", all[0].Energy, all[len(all)-1].Energy)
	}

	past, err := repo.List(ctx, 20, 10)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(past))
	}
}

func TestPostgresRepositoryFailedInsertRollsBack(t *testing.T) {
	repo := newTestPostgresRepository(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, RecordInput{Address: strings.Repeat("T", MaxAddressLen+1)})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}

	records, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(records))
	}
}
