package employee

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "paycore/internal/platform/crypto"
)

var ErrNotFound = errors.New("employee not found")

// StoreAPI is the persistence surface the run processor and handlers use.
type StoreAPI interface {
	Create(ctx context.Context, e Employee) (string, error)
	Get(ctx context.Context, id string) (Employee, error)
	List(ctx context.Context, status string, limit, offset int) ([]Employee, error)
	Update(ctx context.Context, e Employee) error
	SetStatus(ctx context.Context, id, status string) error
	ListElections(ctx context.Context, employeeID string) ([]Election, error)
	CreateElection(ctx context.Context, el Election) (string, error)
	DeleteElection(ctx context.Context, employeeID, electionID string) error
}

// Store persists employees in Postgres. Bank account numbers are encrypted
// at rest when an encryption key is configured.
type Store struct {
	DB     *pgxpool.Pool
	crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, crypto: crypto}
}

func (s *Store) Create(ctx context.Context, e Employee) (string, error) {
	bankEnc, err := s.crypto.Encrypt([]byte(e.BankAccount))
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO employees (first_name, last_name, email, status, annual_salary, bank_account_enc,
                           filing_status, dependents, additional_withholding, exempt,
                           work_state, home_state, local_code)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    RETURNING id
  `, e.FirstName, e.LastName, e.Email, e.Status, e.AnnualSalary, bankEnc,
		e.Profile.FilingStatus, e.Profile.Dependents, e.Profile.AdditionalWithholding, e.Profile.Exempt,
		e.Profile.WorkState, e.Profile.HomeState, e.Profile.LocalCode).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const employeeColumns = `
    id, first_name, last_name, email, status, annual_salary, bank_account_enc,
    filing_status, dependents, additional_withholding, exempt,
    work_state, home_state, COALESCE(local_code, ''), created_at
`

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	e, err := s.scan(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

func (s *Store) List(ctx context.Context, status string, limit, offset int) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY last_name, first_name"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, e Employee) error {
	bankEnc, err := s.crypto.Encrypt([]byte(e.BankAccount))
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $2, last_name = $3, email = $4, annual_salary = $5, bank_account_enc = $6,
        filing_status = $7, dependents = $8, additional_withholding = $9, exempt = $10,
        work_state = $11, home_state = $12, local_code = $13
    WHERE id = $1
  `, e.ID, e.FirstName, e.LastName, e.Email, e.AnnualSalary, bankEnc,
		e.Profile.FilingStatus, e.Profile.Dependents, e.Profile.AdditionalWithholding, e.Profile.Exempt,
		e.Profile.WorkState, e.Profile.HomeState, e.Profile.LocalCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListElections(ctx context.Context, employeeID string) ([]Election, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, category, amount, created_at
    FROM benefit_elections
    WHERE employee_id = $1
    ORDER BY created_at, id
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Election
	for rows.Next() {
		var el Election
		if err := rows.Scan(&el.ID, &el.EmployeeID, &el.Category, &el.Amount, &el.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func (s *Store) CreateElection(ctx context.Context, el Election) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO benefit_elections (employee_id, category, amount)
    VALUES ($1,$2,$3)
    RETURNING id
  `, el.EmployeeID, el.Category, el.Amount).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteElection(ctx context.Context, employeeID, electionID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM benefit_elections WHERE id = $1 AND employee_id = $2
  `, electionID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scan(row pgx.Row) (Employee, error) {
	var e Employee
	var bankEnc []byte
	if err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Status, &e.AnnualSalary, &bankEnc,
		&e.Profile.FilingStatus, &e.Profile.Dependents, &e.Profile.AdditionalWithholding, &e.Profile.Exempt,
		&e.Profile.WorkState, &e.Profile.HomeState, &e.Profile.LocalCode, &e.CreatedAt); err != nil {
		return Employee{}, err
	}
	if len(bankEnc) > 0 {
		plain, err := s.crypto.Decrypt(bankEnc)
		if err != nil {
			return Employee{}, err
		}
		e.BankAccount = string(plain)
	}
	return e, nil
}
