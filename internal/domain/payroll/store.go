package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrpay/internal/domain/directory"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_periods (reference_month, reference_year, status)
    VALUES ($1, $2, $3)
    RETURNING id
  `, month, year, PeriodStatusOpen).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Period{}, ErrPeriodExists
		}
		return Period{}, err
	}
	return s.PeriodByID(ctx, id)
}

func (s *Store) PeriodByID(ctx context.Context, id string) (Period, error) {
	return scanPeriod(s.DB.QueryRow(ctx, `
    SELECT id, reference_month, reference_year, status, COALESCE(closed_by, ''), closed_at, created_at
    FROM payroll_periods
    WHERE id = $1
  `, id))
}

func (s *Store) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, reference_month, reference_year, status, COALESCE(closed_by, ''), closed_at, created_at
    FROM payroll_periods
    ORDER BY reference_year DESC, reference_month DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func scanPeriod(row pgx.Row) (Period, error) {
	var period Period
	err := row.Scan(&period.ID, &period.Month, &period.Year, &period.Status, &period.ClosedBy, &period.ClosedAt, &period.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

// TransitionPeriod is the atomic conditional update backing the period lock.
// It commits on its own, never inside the computation transaction.
func (s *Store) TransitionPeriod(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_periods SET status = $3 WHERE id = $1 AND status = $2
  `, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ClosePeriod(ctx context.Context, id, closedBy string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_periods
    SET status = $3, closed_by = $2, closed_at = now()
    WHERE id = $1 AND status = $4
  `, id, closedBy, PeriodStatusClosed, PeriodStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) BracketsByKind(ctx context.Context, kind string, asOf time.Time) ([]TaxBracket, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, kind, bracket_min, bracket_max, rate, deduction, effective_from, effective_until
    FROM tax_brackets
    WHERE kind = $1
      AND effective_from <= $2
      AND (effective_until IS NULL OR effective_until >= $2)
    ORDER BY bracket_min
  `, kind, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brackets []TaxBracket
	for rows.Next() {
		var bracket TaxBracket
		if err := rows.Scan(&bracket.ID, &bracket.Kind, &bracket.Min, &bracket.Max, &bracket.Rate, &bracket.Deduction, &bracket.EffectiveFrom, &bracket.EffectiveUntil); err != nil {
			return nil, err
		}
		brackets = append(brackets, bracket)
	}
	return brackets, rows.Err()
}

func (s *Store) CreateBracket(ctx context.Context, bracket TaxBracket) (TaxBracket, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO tax_brackets (kind, bracket_min, bracket_max, rate, deduction, effective_from, effective_until)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, bracket.Kind, bracket.Min, bracket.Max, bracket.Rate, bracket.Deduction, bracket.EffectiveFrom, bracket.EffectiveUntil).Scan(&bracket.ID)
	if err != nil {
		return TaxBracket{}, err
	}
	return bracket, nil
}

func (s *Store) CreateComponent(ctx context.Context, component Component) (Component, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_components (employee_id, component_type, description, amount, active, effective_from, effective_until)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at
  `, component.EmployeeID, component.Type, component.Description, component.Amount, component.Active, component.EffectiveFrom, component.EffectiveUntil).Scan(&component.ID, &component.CreatedAt)
	if err != nil {
		return Component{}, err
	}
	return component, nil
}

func (s *Store) ListComponents(ctx context.Context, employeeID string) ([]Component, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, component_type, description, amount, active, effective_from, effective_until, created_at
    FROM payroll_components
    WHERE employee_id = $1
    ORDER BY created_at
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComponents(rows)
}

func (s *Store) SetComponentActive(ctx context.Context, id string, active bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_components SET active = $2 WHERE id = $1
  `, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrComponentNotFound
	}
	return nil
}

func (s *Store) EntriesFor(ctx context.Context, periodID, employeeID string) ([]Entry, error) {
	query := `
    SELECT id, period_id, employee_id, category, code, description, reference, quantity, amount
    FROM payroll_entries
    WHERE period_id = $1
  `
	args := []any{periodID}
	if employeeID != "" {
		query += " AND employee_id = $2"
		args = append(args, employeeID)
	}
	query += " ORDER BY employee_id, category, code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.PeriodID, &entry.EmployeeID, &entry.Category, &entry.Code, &entry.Description, &entry.Reference, &entry.Quantity, &entry.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) SlipsByPeriod(ctx context.Context, periodID string) ([]PaySlip, error) {
	rows, err := s.DB.Query(ctx, slipSelect+" WHERE period_id = $1 ORDER BY employee_id", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slips []PaySlip
	for rows.Next() {
		slip, err := scanSlip(rows)
		if err != nil {
			return nil, err
		}
		slips = append(slips, slip)
	}
	return slips, rows.Err()
}

func (s *Store) SlipFor(ctx context.Context, periodID, employeeID string) (PaySlip, error) {
	slip, err := scanSlip(s.DB.QueryRow(ctx, slipSelect+" WHERE period_id = $1 AND employee_id = $2", periodID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return PaySlip{}, ErrSlipNotFound
	}
	return slip, err
}

const slipSelect = `
    SELECT id, period_id, employee_id, gross_salary, total_earnings, total_deductions, net_salary,
           social_security, income_tax, employer_fund, details, status, created_at
    FROM pay_slips`

func scanSlip(row pgx.Row) (PaySlip, error) {
	var slip PaySlip
	var details []byte
	err := row.Scan(&slip.ID, &slip.PeriodID, &slip.EmployeeID, &slip.GrossSalary, &slip.TotalEarnings,
		&slip.TotalDeductions, &slip.NetSalary, &slip.SocialSecurity, &slip.IncomeTax, &slip.EmployerFund,
		&details, &slip.Status, &slip.CreatedAt)
	if err != nil {
		return PaySlip{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &slip.Details); err != nil {
			return PaySlip{}, fmt.Errorf("decode slip details: %w", err)
		}
	}
	return slip, nil
}

// InTx runs fn against a transactional view of the store, committing only if
// fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(RunStore) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) LockPeriod(ctx context.Context, id string) (Period, error) {
	return scanPeriod(t.tx.QueryRow(ctx, `
    SELECT id, reference_month, reference_year, status, COALESCE(closed_by, ''), closed_at, created_at
    FROM payroll_periods
    WHERE id = $1
    FOR UPDATE
  `, id))
}

func (t *txStore) ActiveEmployees(ctx context.Context) ([]directory.Employee, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT id, name, active, dependents, COALESCE(department_id::text, ''), COALESCE(position_id::text, ''), created_at
    FROM employees
    WHERE active
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []directory.Employee
	index := map[string]int{}
	for rows.Next() {
		var employee directory.Employee
		if err := rows.Scan(&employee.ID, &employee.Name, &employee.Active, &employee.Dependents, &employee.DepartmentID, &employee.PositionID, &employee.CreatedAt); err != nil {
			return nil, err
		}
		index[employee.ID] = len(employees)
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	enrollmentRows, err := t.tx.Query(ctx, `
    SELECT eb.id, eb.employee_id, eb.plan_id, eb.active,
           bp.name, bp.benefit_type, bp.discount_value, bp.discount_percent
    FROM employee_benefits eb
    JOIN benefit_plans bp ON eb.plan_id = bp.id
    WHERE eb.active
  `)
	if err != nil {
		return nil, err
	}
	defer enrollmentRows.Close()

	for enrollmentRows.Next() {
		var enrollment directory.Enrollment
		var employeeID string
		if err := enrollmentRows.Scan(&enrollment.ID, &employeeID, &enrollment.PlanID, &enrollment.Active,
			&enrollment.Plan.Name, &enrollment.Plan.BenefitType, &enrollment.Plan.DiscountValue, &enrollment.Plan.DiscountPercent); err != nil {
			return nil, err
		}
		enrollment.Plan.ID = enrollment.PlanID
		if i, ok := index[employeeID]; ok {
			employees[i].Benefits = append(employees[i].Benefits, enrollment)
		}
	}
	return employees, enrollmentRows.Err()
}

func (t *txStore) ComponentsEffectiveIn(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]Component, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT id, employee_id, component_type, description, amount, active, effective_from, effective_until, created_at
    FROM payroll_components
    WHERE employee_id = $1
      AND active
      AND effective_from <= $3
      AND (effective_until IS NULL OR effective_until >= $2)
    ORDER BY created_at
  `, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComponents(rows)
}

func (t *txStore) PurgeEmployeePeriod(ctx context.Context, periodID, employeeID string) error {
	if _, err := t.tx.Exec(ctx, `
    DELETE FROM payroll_entries WHERE period_id = $1 AND employee_id = $2
  `, periodID, employeeID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
    DELETE FROM pay_slips WHERE period_id = $1 AND employee_id = $2
  `, periodID, employeeID)
	return err
}

func (t *txStore) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, entry := range entries {
		if _, err := t.tx.Exec(ctx, `
      INSERT INTO payroll_entries (id, period_id, employee_id, category, code, description, reference, quantity, amount)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, entry.ID, entry.PeriodID, entry.EmployeeID, entry.Category, entry.Code, entry.Description, entry.Reference, entry.Quantity, entry.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) InsertSlip(ctx context.Context, slip PaySlip) error {
	details, err := json.Marshal(slip.Details)
	if err != nil {
		return fmt.Errorf("encode slip details: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
    INSERT INTO pay_slips (id, period_id, employee_id, gross_salary, total_earnings, total_deductions,
                           net_salary, social_security, income_tax, employer_fund, details, status, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, slip.ID, slip.PeriodID, slip.EmployeeID, slip.GrossSalary, slip.TotalEarnings, slip.TotalDeductions,
		slip.NetSalary, slip.SocialSecurity, slip.IncomeTax, slip.EmployerFund, details, slip.Status, slip.CreatedAt)
	return err
}

func collectComponents(rows pgx.Rows) ([]Component, error) {
	var components []Component
	for rows.Next() {
		var component Component
		if err := rows.Scan(&component.ID, &component.EmployeeID, &component.Type, &component.Description,
			&component.Amount, &component.Active, &component.EffectiveFrom, &component.EffectiveUntil, &component.CreatedAt); err != nil {
			return nil, err
		}
		components = append(components, component)
	}
	return components, rows.Err()
}
