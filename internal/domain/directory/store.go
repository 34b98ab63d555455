package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, active, dependents, COALESCE(department_id::text, ''), COALESCE(position_id::text, ''), created_at
    FROM employees
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var employee Employee
		if err := rows.Scan(&employee.ID, &employee.Name, &employee.Active, &employee.Dependents,
			&employee.DepartmentID, &employee.PositionID, &employee.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (s *Store) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	var employee Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, active, dependents, COALESCE(department_id::text, ''), COALESCE(position_id::text, ''), created_at
    FROM employees
    WHERE id = $1
  `, id).Scan(&employee.ID, &employee.Name, &employee.Active, &employee.Dependents,
		&employee.DepartmentID, &employee.PositionID, &employee.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT eb.id, eb.plan_id, eb.active,
           bp.name, bp.benefit_type, bp.discount_value, bp.discount_percent
    FROM employee_benefits eb
    JOIN benefit_plans bp ON eb.plan_id = bp.id
    WHERE eb.employee_id = $1
  `, id)
	if err != nil {
		return Employee{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var enrollment Enrollment
		if err := rows.Scan(&enrollment.ID, &enrollment.PlanID, &enrollment.Active,
			&enrollment.Plan.Name, &enrollment.Plan.BenefitType, &enrollment.Plan.DiscountValue, &enrollment.Plan.DiscountPercent); err != nil {
			return Employee{}, err
		}
		enrollment.Plan.ID = enrollment.PlanID
		employee.Benefits = append(employee.Benefits, enrollment)
	}
	return employee, rows.Err()
}
