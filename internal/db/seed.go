package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed installs a small demo dataset so a fresh instance can run a payroll
// end to end: three employees, their recurring components, two benefit plans
// and the enrollments. Every insert is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	type seedEmployee struct {
		name       string
		dependents int
	}
	employees := []seedEmployee{
		{name: "Ana Souza", dependents: 2},
		{name: "Bruno Lima", dependents: 0},
		{name: "Carla Mendes", dependents: 1},
	}

	ids := map[string]string{}
	for _, employee := range employees {
		id, err := ensureEmployee(ctx, pool, employee.name, employee.dependents)
		if err != nil {
			return err
		}
		ids[employee.name] = id
	}

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	components := []struct {
		employee    string
		kind        string
		description string
		amount      string
	}{
		{"Ana Souza", "base_salary", "Monthly base salary", "5200.00"},
		{"Ana Souza", "hazard_pay", "Hazard pay", "520.00"},
		{"Bruno Lima", "base_salary", "Monthly base salary", "2800.00"},
		{"Carla Mendes", "base_salary", "Monthly base salary", "3900.00"},
		{"Carla Mendes", "fixed_bonus", "Seniority bonus", "300.00"},
	}
	for _, component := range components {
		if err := ensureComponent(ctx, pool, ids[component.employee], component.kind, component.description, component.amount, from); err != nil {
			return err
		}
	}

	healthPlan, err := ensurePlan(ctx, pool, "Health plus", "health", "", "0.03")
	if err != nil {
		return err
	}
	transportPlan, err := ensurePlan(ctx, pool, "Transport pass", "transport", "", "")
	if err != nil {
		return err
	}

	enrollments := []struct {
		employee string
		plan     string
	}{
		{"Ana Souza", healthPlan},
		{"Ana Souza", transportPlan},
		{"Bruno Lima", transportPlan},
	}
	for _, enrollment := range enrollments {
		if err := ensureEnrollment(ctx, pool, ids[enrollment.employee], enrollment.plan); err != nil {
			return err
		}
	}

	return nil
}

func ensureEmployee(ctx context.Context, pool *pgxpool.Pool, name string, dependents int) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO employees (name, active, dependents) VALUES ($1, true, $2) RETURNING id
  `, name, dependents).Scan(&id)
	return id, err
}

func ensureComponent(ctx context.Context, pool *pgxpool.Pool, employeeID, kind, description, amount string, from time.Time) error {
	var count int
	if err := pool.QueryRow(ctx, `
    SELECT COUNT(1) FROM payroll_components WHERE employee_id = $1 AND component_type = $2
  `, employeeID, kind).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := pool.Exec(ctx, `
    INSERT INTO payroll_components (employee_id, component_type, description, amount, active, effective_from)
    VALUES ($1, $2, $3, $4, true, $5)
  `, employeeID, kind, description, amount, from)
	return err
}

func ensurePlan(ctx context.Context, pool *pgxpool.Pool, name, benefitType, discountValue, discountPercent string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM benefit_plans WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO benefit_plans (name, benefit_type, discount_value, discount_percent)
    VALUES ($1, $2, NULLIF($3, '')::numeric, NULLIF($4, '')::numeric)
    RETURNING id
  `, name, benefitType, discountValue, discountPercent).Scan(&id)
	return id, err
}

func ensureEnrollment(ctx context.Context, pool *pgxpool.Pool, employeeID, planID string) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO employee_benefits (employee_id, plan_id, active)
    VALUES ($1, $2, true)
    ON CONFLICT (employee_id, plan_id) DO NOTHING
  `, employeeID, planID)
	return err
}
