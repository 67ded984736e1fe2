package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists lookup records.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, in RecordInput) (Record, error)
	List(ctx context.Context, offset, limit int) ([]Record, error)
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS wallet_info (
    id         SERIAL PRIMARY KEY,
    address    VARCHAR(100) NOT NULL,
    energy     INTEGER NOT NULL,
    bandwidth  INTEGER NOT NULL,
    balance    NUMERIC NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository stores records in the wallet_info table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the wallet_info table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return storeError("create schema", err)
	}
	return nil
}

// Append inserts one record and commits it in a single transaction.
func (r *PostgresRepository) Append(ctx context.Context, in RecordInput) (Record, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, storeError("begin", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rec := Record{Address: in.Address, AccountInfo: in.AccountInfo}
	err = tx.QueryRow(ctx, `INSERT INTO wallet_info (address, energy, bandwidth, balance)
        VALUES ($1, $2, $3, $4::numeric)
        RETURNING id, created_at`,
		in.Address, in.Energy, in.Bandwidth, in.Balance.String()).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return Record{}, storeError("insert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, storeError("commit", err)
	}
	return rec, nil
}

// List returns records newest first.
func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT id, address, energy, bandwidth, balance::text, created_at
        FROM wallet_info
        ORDER BY id DESC
        OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, storeError("select", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec       Record
			balance   string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.Energy, &rec.Bandwidth, &balance, &createdAt); err != nil {
			return nil, storeError("scan", err)
		}
		if rec.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, storeError("parse balance", err)
		}
		rec.CreatedAt = createdAt
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("select", err)
	}
	return out, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
