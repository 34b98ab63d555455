package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Period struct {
	ID        string     `json:"id"`
	Month     int        `json:"month"`
	Year      int        `json:"year"`
	Status    string     `json:"status"`
	ClosedBy  string     `json:"closedBy,omitempty"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ReferenceRange returns the first and last day of the period's reference month.
func (p Period) ReferenceRange() (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

type Component struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employeeId"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Active         bool            `json:"active"`
	EffectiveFrom  time.Time       `json:"effectiveFrom"`
	EffectiveUntil *time.Time      `json:"effectiveUntil,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Entry struct {
	ID          string           `json:"id"`
	PeriodID    string           `json:"periodId"`
	EmployeeID  string           `json:"employeeId"`
	Category    string           `json:"category"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Reference   *decimal.Decimal `json:"reference,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
}

type SlipDetails struct {
	BenefitDiscountTotal decimal.Decimal `json:"benefitDiscountTotal"`
	TransportDiscount    decimal.Decimal `json:"transportDiscount"`
}

type PaySlip struct {
	ID              string          `json:"id"`
	PeriodID        string          `json:"periodId"`
	EmployeeID      string          `json:"employeeId"`
	GrossSalary     decimal.Decimal `json:"grossSalary"`
	TotalEarnings   decimal.Decimal `json:"totalEarnings"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	NetSalary       decimal.Decimal `json:"netSalary"`
	SocialSecurity  decimal.Decimal `json:"socialSecurity"`
	IncomeTax       decimal.Decimal `json:"incomeTax"`
	EmployerFund    decimal.Decimal `json:"employerFund"`
	Details         SlipDetails     `json:"details"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// TaxBracket is one row of a progressive withholding table. Max is nil for
// an unbounded top bracket. Deduction is only meaningful for the income-tax
// kind (effective-rate method).
type TaxBracket struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	Min            decimal.Decimal  `json:"min"`
	Max            *decimal.Decimal `json:"max,omitempty"`
	Rate           decimal.Decimal  `json:"rate"`
	Deduction      decimal.Decimal  `json:"deduction"`
	EffectiveFrom  time.Time        `json:"effectiveFrom"`
	EffectiveUntil *time.Time       `json:"effectiveUntil,omitempty"`
}
