package garnishment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreAPI is the persistence surface for garnishment orders. Resolution
// itself never touches storage; the run processor loads active orders and
// passes them in.
type StoreAPI interface {
	Create(ctx context.Context, o Order) (string, error)
	Get(ctx context.Context, id string) (Order, error)
	ListActive(ctx context.Context, employeeID string) ([]Order, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Order, error)
	Deactivate(ctx context.Context, id string) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, o Order) (string, error) {
	if o.Priority == 0 {
		o.Priority = o.Type.DefaultPriority()
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO garnishment_orders (employee_id, order_type, priority, amount_type, amount_value, payee, case_number, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, o.EmployeeID, o.Type, o.Priority, o.AmountType, o.AmountValue, o.Payee, o.CaseNumber, o.Active).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, order_type, priority, amount_type, amount_value, payee, COALESCE(case_number, ''), active, created_at
    FROM garnishment_orders
    WHERE id = $1
  `, id).Scan(&o.ID, &o.EmployeeID, &o.Type, &o.Priority, &o.AmountType, &o.AmountValue, &o.Payee, &o.CaseNumber, &o.Active, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Store) ListActive(ctx context.Context, employeeID string) ([]Order, error) {
	return s.list(ctx, employeeID, true)
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]Order, error) {
	return s.list(ctx, employeeID, false)
}

func (s *Store) list(ctx context.Context, employeeID string, activeOnly bool) ([]Order, error) {
	query := `
    SELECT id, employee_id, order_type, priority, amount_type, amount_value, payee, COALESCE(case_number, ''), active, created_at
    FROM garnishment_orders
    WHERE employee_id = $1
  `
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY priority, id"

	rows, err := s.DB.Query(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.EmployeeID, &o.Type, &o.Priority, &o.AmountType, &o.AmountValue,
			&o.Payee, &o.CaseNumber, &o.Active, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Deactivate(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE garnishment_orders SET active = false WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
