package directory

import (
	"time"

	"github.com/shopspring/decimal"
)

// The directory is a read-only collaborator for payroll: it answers who is
// active, how many dependents they declare, and which benefit plans they are
// enrolled in. Employee records themselves are managed elsewhere.

const BenefitTypeTransport = "transport"

type Employee struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Active       bool         `json:"active"`
	Dependents   int          `json:"dependents"`
	DepartmentID string       `json:"departmentId,omitempty"`
	PositionID   string       `json:"positionId,omitempty"`
	Benefits     []Enrollment `json:"benefits,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type Enrollment struct {
	ID     string      `json:"id"`
	PlanID string      `json:"planId"`
	Active bool        `json:"active"`
	Plan   BenefitPlan `json:"plan"`
}

// BenefitPlan carries the discount rule applied during payroll: a fixed value
// when DiscountValue is set, otherwise DiscountPercent over gross salary.
type BenefitPlan struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	BenefitType     string           `json:"benefitType"`
	DiscountValue   *decimal.Decimal `json:"discountValue,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

// Transport reports whether the employee holds an active transport-benefit
// enrollment.
func (e Employee) Transport() bool {
	for _, enrollment := range e.Benefits {
		if enrollment.Active && enrollment.Plan.BenefitType == BenefitTypeTransport {
			return true
		}
	}
	return false
}
