package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lotColumns = `id, name, price, quantity, is_active, created_at`

const createLots = `
CREATE TABLE IF NOT EXISTS lots (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresLotStore reads the same lots table layout gorm migrates, from a
// Postgres database.
type PostgresLotStore struct {
	db *pgxpool.Pool
}

func NewPostgresLotStore(db *pgxpool.Pool) *PostgresLotStore {
	return &PostgresLotStore{db: db}
}

// NewPool parses url and checks the connection once.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the lots table when it does not exist yet.
func (s *PostgresLotStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createLots)
	return err
}

func (s *PostgresLotStore) ListLots(ctx context.Context) ([]models.Lot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+lotColumns+`
		 FROM lots
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []models.Lot
	for rows.Next() {
		var l models.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.Price, &l.Quantity, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func (s *PostgresLotStore) GetLot(ctx context.Context, id string) (models.Lot, error) {
	var l models.Lot
	err := s.db.QueryRow(ctx,
		`SELECT `+lotColumns+` FROM lots WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.Name, &l.Price, &l.Quantity, &l.IsActive, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Lot{}, ErrLotNotFound
		}
		return models.Lot{}, fmt.Errorf("get lot %s: %w", id, err)
	}
	return l, nil
}
