package payrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, run Run) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_runs (period_start, period_end, pay_date, frequency, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, run.PeriodStart, run.PeriodEnd, run.PayDate, run.Frequency, StatusDraft).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, runID string) (Run, error) {
	run, err := scanRun(s.DB.QueryRow(ctx, `
    SELECT id, period_start, period_end, pay_date, frequency, status, totals_json,
           COALESCE(failed_employee_id::text, ''), COALESCE(failure_reason, ''), created_at, updated_at
    FROM payroll_runs
    WHERE id = $1
  `, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Run, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, period_start, period_end, pay_date, frequency, status, totals_json,
           COALESCE(failed_employee_id::text, ''), COALESCE(failure_reason, ''), created_at, updated_at
    FROM payroll_runs
    ORDER BY pay_date DESC, created_at DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *Store) Transition(ctx context.Context, runID string, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidState)
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_runs SET status = $3, updated_at = now()
    WHERE id = $1 AND status = $2
  `, runID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		current, getErr := s.Get(ctx, runID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("run is %s, expected %s: %w", current.Status, from, ErrInvalidState)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, runID, employeeID, reason string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_runs
    SET status = $4, failed_employee_id = NULLIF($2, '')::uuid, failure_reason = $3, updated_at = now()
    WHERE id = $1 AND status = $5
  `, runID, employeeID, reason, StatusFailed, StatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark failed: %w", ErrInvalidState)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, runID, employeeID string) error {
	return s.withDraftLock(ctx, runID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
      INSERT INTO payroll_run_members (run_id, employee_id)
      VALUES ($1,$2)
      ON CONFLICT DO NOTHING
    `, runID, employeeID)
		return err
	})
}

func (s *Store) RemoveMember(ctx context.Context, runID, employeeID string) error {
	return s.withDraftLock(ctx, runID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
      DELETE FROM payroll_run_members WHERE run_id = $1 AND employee_id = $2
    `, runID, employeeID)
		return err
	})
}

// withDraftLock locks the run row and applies fn only while the run is
// still draft, so membership cannot change once a run is submitted.
func (s *Store) withDraftLock(ctx context.Context, runID string, fn func(tx pgx.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, "SELECT status FROM payroll_runs WHERE id = $1 FOR UPDATE", runID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusDraft {
		return fmt.Errorf("run is %s: %w", status, ErrNotDraft)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListMembers(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id FROM payroll_run_members WHERE run_id = $1 ORDER BY employee_id
  `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) SaveResult(ctx context.Context, result EmployeeResult) error {
	detailsJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payroll_run_results (run_id, employee_id, gross, net, details_json, computed_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (run_id, employee_id)
    DO UPDATE SET gross = EXCLUDED.gross, net = EXCLUDED.net,
                  details_json = EXCLUDED.details_json, computed_at = EXCLUDED.computed_at
  `, result.RunID, result.EmployeeID, result.Gross, result.Net, detailsJSON, result.ComputedAt)
	return err
}

func (s *Store) ListResults(ctx context.Context, runID string) ([]EmployeeResult, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT details_json FROM payroll_run_results WHERE run_id = $1 ORDER BY employee_id
  `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var result EmployeeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *Store) SaveTotals(ctx context.Context, runID string, totals Totals) error {
	totalsJSON, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    UPDATE payroll_runs SET totals_json = $2, updated_at = now() WHERE id = $1
  `, runID, totalsJSON)
	return err
}

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	var totalsJSON []byte
	if err := row.Scan(&run.ID, &run.PeriodStart, &run.PeriodEnd, &run.PayDate, &run.Frequency,
		&run.Status, &totalsJSON, &run.FailedEmployeeID, &run.FailureReason,
		&run.CreatedAt, &run.UpdatedAt); err != nil {
		return Run{}, err
	}
	if len(totalsJSON) > 0 {
		var totals Totals
		if err := json.Unmarshal(totalsJSON, &totals); err == nil {
			run.Totals = &totals
		}
	}
	return run, nil
}
