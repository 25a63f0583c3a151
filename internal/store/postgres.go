package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// PostgresStore implements Store using PostgreSQL. The spot price is
// stored as NUMERIC for exact decimal precision; the quote rows travel as
// a JSONB document since they are read and written only as a unit.
//
// Schema:
//
//	CREATE TABLE chain_snapshots (
//	    id           TEXT PRIMARY KEY,
//	    generated_at TIMESTAMPTZ NOT NULL,
//	    spot_price   NUMERIC NOT NULL,
//	    expiry_date  TIMESTAMPTZ NOT NULL,
//	    data_source  TEXT NOT NULL,
//	    quotes       JSONB NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed snapshot store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.ChainSnapshot) error {
	quotes, err := json.Marshal(snap.Quotes)
	if err != nil {
		return fmt.Errorf("marshal snapshot quotes: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO chain_snapshots (id, generated_at, spot_price, expiry_date, data_source, quotes)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6)`,
		snap.ID, snap.GeneratedAt, snap.SpotPrice.String(),
		snap.ExpiryDate, string(snap.DataSource), quotes,
	)
	return err
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.ChainSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, generated_at, spot_price::TEXT, expiry_date, data_source, quotes
		 FROM chain_snapshots WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.ChainSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, generated_at, spot_price::TEXT, expiry_date, data_source, quotes
		 FROM chain_snapshots ORDER BY generated_at DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]model.ChainSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, generated_at, spot_price::TEXT, expiry_date, data_source, quotes
		 FROM chain_snapshots ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.ChainSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// pgxRow covers both pgx.Row and pgx.Rows for scanning.
type pgxRow interface {
	Scan(dest ...any) error
}

func scanSnapshot(row pgxRow) (*model.ChainSnapshot, error) {
	var snap model.ChainSnapshot
	var spotS, sourceS string
	var quotes []byte

	if err := row.Scan(&snap.ID, &snap.GeneratedAt, &spotS,
		&snap.ExpiryDate, &sourceS, &quotes); err != nil {
		return nil, err
	}

	snap.SpotPrice, _ = decimal.NewFromString(spotS)
	snap.DataSource = model.DataSource(sourceS)
	if err := json.Unmarshal(quotes, &snap.Quotes); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot quotes: %w", err)
	}
	return &snap, nil
}
