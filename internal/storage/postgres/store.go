package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"riskscan/internal/model"
)

// Store provides Postgres persistence for scan records and user preferences.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PutScanBatch inserts resolved scan records.
func (s *Store) PutScanBatch(ctx context.Context, records []model.ScanRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		var scannedAt *time.Time
		if !rec.ScannedAt.IsZero() {
			ts := rec.ScannedAt
			scannedAt = &ts
		}
		batch.Queue(`
			INSERT INTO risk_scans (
				chain_id, token_address, status, risk_level, error, scanned_at, resolved_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		`,
			int64(rec.ChainID),
			rec.Address,
			rec.Status,
			rec.RiskLevel,
			rec.Error,
			scannedAt,
			rec.ResolvedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestScans returns the most recent records for a token, newest first.
func (s *Store) LatestScans(ctx context.Context, key model.Key, limit int) ([]model.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, token_address, status, COALESCE(risk_level, ''), COALESCE(error, ''),
		       scanned_at, resolved_at
		FROM risk_scans
		WHERE chain_id = $1 AND token_address = $2
		ORDER BY resolved_at DESC
		LIMIT $3
	`, int64(key.ChainID), key.Address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScanRecord
	for rows.Next() {
		var rec model.ScanRecord
		var chainID int64
		var scannedAt *time.Time
		if err := rows.Scan(&chainID, &rec.Address, &rec.Status, &rec.RiskLevel, &rec.Error, &scannedAt, &rec.ResolvedAt); err != nil {
			return nil, err
		}
		rec.ChainID = uint64(chainID)
		if scannedAt != nil {
			rec.ScannedAt = scannedAt.UTC()
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadPreference returns the show-risk flag stored for a user.
func (s *Store) LoadPreference(ctx context.Context, userID string) (bool, bool, error) {
	if userID == "" {
		return false, false, fmt.Errorf("user id required")
	}
	var show bool
	row := s.pool.QueryRow(ctx, `SELECT show_risk_scanning FROM user_preferences WHERE user_id=$1`, userID)
	if err := row.Scan(&show); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return show, true, nil
}

// SavePreference upserts the show-risk flag for a user.
func (s *Store) SavePreference(ctx context.Context, userID string, show bool) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, show_risk_scanning, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET show_risk_scanning = EXCLUDED.show_risk_scanning, updated_at = now()
	`, userID, show)
	return err
}
