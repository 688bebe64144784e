package ruleset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed ruleset store.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Active(ctx context.Context, key, jurisdiction string, asOf time.Time) (RuleSet, error) {
	var rs RuleSet
	err := s.DB.QueryRow(ctx, `
    SELECT id, key, jurisdiction, rule_type, version, effective_start, effective_end, payload, created_at
    FROM rulesets
    WHERE key = $1 AND jurisdiction = $2
      AND effective_start <= $3
      AND (effective_end IS NULL OR effective_end >= $3)
    ORDER BY effective_start DESC
    LIMIT 1
  `, key, jurisdiction, asOf).Scan(
		&rs.ID, &rs.Key, &rs.Jurisdiction, &rs.RuleType, &rs.Version,
		&rs.EffectiveStart, &rs.EffectiveEnd, &rs.Payload, &rs.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RuleSet{}, fmt.Errorf("%s/%s as of %s: %w", key, jurisdiction, asOf.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

func (s *Store) Create(ctx context.Context, rs RuleSet) (string, error) {
	if err := validate(rs); err != nil {
		return "", err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var overlapping int
	err = tx.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM rulesets
    WHERE key = $1 AND jurisdiction = $2
      AND effective_start <= COALESCE($4::timestamptz, 'infinity'::timestamptz)
      AND (effective_end IS NULL OR effective_end >= $3)
  `, rs.Key, rs.Jurisdiction, rs.EffectiveStart, rs.EffectiveEnd).Scan(&overlapping)
	if err != nil {
		return "", err
	}
	if overlapping > 0 {
		return "", fmt.Errorf("%s/%s: %w", rs.Key, rs.Jurisdiction, ErrOverlap)
	}

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO rulesets (key, jurisdiction, rule_type, version, effective_start, effective_end, payload)
    VALUES ($1, $2, $3,
            COALESCE((SELECT MAX(version) FROM rulesets WHERE key = $1 AND jurisdiction = $2), 0) + 1,
            $4, $5, $6)
    RETURNING id
  `, rs.Key, rs.Jurisdiction, rs.RuleType, rs.EffectiveStart, rs.EffectiveEnd, rs.Payload).Scan(&id)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) List(ctx context.Context, key, jurisdiction string) ([]RuleSet, error) {
	query := `
    SELECT id, key, jurisdiction, rule_type, version, effective_start, effective_end, payload, created_at
    FROM rulesets
  `
	args := []any{}
	if key != "" && jurisdiction != "" {
		query += " WHERE key = $1 AND jurisdiction = $2"
		args = append(args, key, jurisdiction)
	} else if key != "" {
		query += " WHERE key = $1"
		args = append(args, key)
	}
	query += " ORDER BY key, jurisdiction, effective_start DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RuleSet
	for rows.Next() {
		var rs RuleSet
		if err := rows.Scan(&rs.ID, &rs.Key, &rs.Jurisdiction, &rs.RuleType, &rs.Version,
			&rs.EffectiveStart, &rs.EffectiveEnd, &rs.Payload, &rs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func validate(rs RuleSet) error {
	if rs.EffectiveEnd != nil && rs.EffectiveEnd.Before(rs.EffectiveStart) {
		return ErrInvalidWindow
	}
	var err error
	switch rs.RuleType {
	case TypeFederalIncome, TypeStateIncome, TypeLocalIncome:
		_, err = rs.IncomeTaxRules()
	case TypeFICA:
		_, err = rs.FICARules()
	case TypeBenefitLimits:
		_, err = rs.BenefitLimitRules()
	case TypeGarnishment:
		_, err = rs.GarnishmentRules()
	default:
		return fmt.Errorf("unknown rule type %q: %w", rs.RuleType, ErrInvalidPayload)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
