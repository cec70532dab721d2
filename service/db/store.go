// Package db provides the optional construction audit log. The log is
// append-only from the request path: every successfully built transaction
// gets a summary row, and nothing here is ever read while constructing. It is
// not a cache and holds no payloads or key material.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solwire/solwire/service/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// Store provides audit-log operations backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the embedded schema. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Construction is one audit-log row.
type Construction struct {
	ID                   int64
	Operation            string
	Caller               string
	Destination          *string
	InputMint            *string
	OutputMint           *string
	InputSymbol          *string
	OutputSymbol         *string
	AmountBaseUnits      int64
	ExpectedOutBaseUnits *int64
	SlippageBps          *int32
	BuiltAt              time.Time
	CreatedAt            time.Time
}

// RecordConstruction implements pipeline.Recorder.
func (s *Store) RecordConstruction(ctx context.Context, rec *pipeline.ConstructionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO constructions (
			operation, caller, destination,
			input_mint, output_mint, input_symbol, output_symbol,
			amount_base_units, expected_out_base_units, slippage_bps, built_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)`,
		rec.Operation,
		rec.Caller,
		rec.Destination,
		rec.InputMint,
		rec.OutputMint,
		rec.InputSymbol,
		rec.OutputSymbol,
		int64(rec.AmountBaseUnits),
		int64(rec.ExpectedOutBaseUnits),
		rec.SlippageBps,
		rec.BuiltAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert construction record: %w", err)
	}
	return nil
}

// ListConstructions returns recent audit-log rows, newest first.
func (s *Store) ListConstructions(ctx context.Context, limit, offset int32) ([]*Construction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, operation, caller, destination,
		       input_mint, output_mint, input_symbol, output_symbol,
		       amount_base_units, expected_out_base_units, slippage_bps,
		       built_at, created_at
		FROM constructions
		ORDER BY built_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query constructions: %w", err)
	}
	defer rows.Close()

	var result []*Construction
	for rows.Next() {
		var c Construction
		if err := rows.Scan(
			&c.ID, &c.Operation, &c.Caller, &c.Destination,
			&c.InputMint, &c.OutputMint, &c.InputSymbol, &c.OutputSymbol,
			&c.AmountBaseUnits, &c.ExpectedOutBaseUnits, &c.SlippageBps,
			&c.BuiltAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan construction row: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate constructions: %w", err)
	}
	return result, nil
}
