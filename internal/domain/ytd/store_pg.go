package ytd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the Postgres-backed accumulator store. Atomicity of Apply rides
// on a SELECT ... FOR UPDATE row lock, so two runs paying the same employee
// serialize at the database regardless of which process they run in.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, employeeID string, year int) (Accumulator, error) {
	acc, err := scanAccumulator(s.DB.QueryRow(ctx, `
    SELECT gross, ss_wages, contribution_401k, contribution_hsa, contribution_fsa, garnishments_json
    FROM ytd_accumulators
    WHERE employee_id = $1 AND year = $2
  `, employeeID, year), employeeID, year)
	if errors.Is(err, pgx.ErrNoRows) {
		return New(employeeID, year), nil
	}
	return acc, err
}

func (s *Store) Apply(ctx context.Context, employeeID string, year int, delta Delta) (Accumulator, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Accumulator{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Ensure the row exists so FOR UPDATE has something to lock at the
	// first pay event of the year.
	if _, err := tx.Exec(ctx, `
    INSERT INTO ytd_accumulators (employee_id, year, garnishments_json)
    VALUES ($1, $2, '{}')
    ON CONFLICT (employee_id, year) DO NOTHING
  `, employeeID, year); err != nil {
		return Accumulator{}, err
	}

	current, err := scanAccumulator(tx.QueryRow(ctx, `
    SELECT gross, ss_wages, contribution_401k, contribution_hsa, contribution_fsa, garnishments_json
    FROM ytd_accumulators
    WHERE employee_id = $1 AND year = $2
    FOR UPDATE
  `, employeeID, year), employeeID, year)
	if err != nil {
		return Accumulator{}, err
	}

	updated := current.Add(delta)
	garnishmentsJSON, err := json.Marshal(updated.GarnishmentWithheld)
	if err != nil {
		return Accumulator{}, err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE ytd_accumulators
    SET gross = $3, ss_wages = $4, contribution_401k = $5, contribution_hsa = $6,
        contribution_fsa = $7, garnishments_json = $8, updated_at = now()
    WHERE employee_id = $1 AND year = $2
  `, employeeID, year, updated.Gross, updated.SocialSecurityWages, updated.Contribution401k,
		updated.ContributionHSA, updated.ContributionFSA, garnishmentsJSON); err != nil {
		return Accumulator{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Accumulator{}, err
	}
	return updated, nil
}

func scanAccumulator(row pgx.Row, employeeID string, year int) (Accumulator, error) {
	acc := New(employeeID, year)
	var garnishmentsJSON []byte
	if err := row.Scan(&acc.Gross, &acc.SocialSecurityWages, &acc.Contribution401k,
		&acc.ContributionHSA, &acc.ContributionFSA, &garnishmentsJSON); err != nil {
		return Accumulator{}, err
	}
	if len(garnishmentsJSON) > 0 {
		if err := json.Unmarshal(garnishmentsJSON, &acc.GarnishmentWithheld); err != nil {
			acc.GarnishmentWithheld = map[string]decimal.Decimal{}
		}
	}
	return acc, nil
}
