package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/directory"
)

// runTables holds the bracket tables resolved once per computation run.
type runTables struct {
	socialSecurity []TaxBracket
	incomeTax      []TaxBracket
}

// assemble rebuilds all pay lines and the slip for one (period, employee)
// pair. Recomputation is destructive: prior entries and slip are purged
// first, then everything is derived again from current component, bracket
// and benefit data.
func (s *Service) assemble(ctx context.Context, tx RunStore, period Period, tables runTables, employee directory.Employee) (PaySlip, error) {
	if err := tx.PurgeEmployeePeriod(ctx, period.ID, employee.ID); err != nil {
		return PaySlip{}, fmt.Errorf("purge prior results: %w", err)
	}

	monthStart, monthEnd := period.ReferenceRange()
	components, err := tx.ComponentsEffectiveIn(ctx, employee.ID, monthStart, monthEnd)
	if err != nil {
		return PaySlip{}, fmt.Errorf("load components: %w", err)
	}

	var entries []Entry
	gross := decimal.Zero
	baseSalary := decimal.Zero
	for _, component := range components {
		entries = append(entries, s.newEntry(period, employee, Entry{
			Category:    CategoryEarning,
			Code:        component.Type,
			Description: component.Description,
			Amount:      component.Amount.Round(2),
		}))
		gross = gross.Add(component.Amount.Round(2))
		if component.Type == ComponentBaseSalary {
			baseSalary = baseSalary.Add(component.Amount.Round(2))
		}
	}

	socialSecurity := SocialSecurity(gross, tables.socialSecurity)
	if socialSecurity.Sign() > 0 {
		entries = append(entries, s.newEntry(period, employee, Entry{
			Category:    CategoryDeduction,
			Code:        CodeSocialSecurity,
			Description: "Social security withholding (INSS)",
			Reference:   ref(gross),
			Amount:      socialSecurity,
		}))
	}

	incomeTax := IncomeTax(gross, socialSecurity, employee.Dependents, tables.incomeTax)
	if incomeTax.Sign() > 0 {
		entries = append(entries, s.newEntry(period, employee, Entry{
			Category:    CategoryDeduction,
			Code:        CodeIncomeTax,
			Description: "Income tax withholding (IRRF)",
			Reference:   ref(gross.Sub(socialSecurity)),
			Amount:      incomeTax,
		}))
	}

	// Employer charge: owed by the employer, never deducted from net pay.
	employerFund := gross.Mul(employerFundRate).Round(2)
	if employerFund.Sign() > 0 {
		entries = append(entries, s.newEntry(period, employee, Entry{
			Category:    CategoryEmployerCharge,
			Code:        CodeEmployerFund,
			Description: "Employer fund contribution (FGTS)",
			Reference:   ref(gross),
			Amount:      employerFund,
		}))
	}

	benefitTotal := decimal.Zero
	for _, enrollment := range employee.Benefits {
		if !enrollment.Active {
			continue
		}
		discount, reference := benefitDiscount(enrollment.Plan, gross)
		if discount.Sign() <= 0 {
			continue
		}
		entries = append(entries, s.newEntry(period, employee, Entry{
			Category:    CategoryDeduction,
			Code:        CodeBenefitDiscount,
			Description: fmt.Sprintf("Benefit discount: %s", enrollment.Plan.Name),
			Reference:   reference,
			Amount:      discount,
		}))
		benefitTotal = benefitTotal.Add(discount)
	}

	transportDiscount := decimal.Zero
	if employee.Transport() {
		// The discount base is the base-salary component specifically;
		// employees without one fall back to gross salary.
		vtBase := baseSalary
		if vtBase.Sign() == 0 {
			vtBase = gross
		}
		transportDiscount = vtBase.Mul(transportDiscountRate).Round(2)
		if transportDiscount.Sign() > 0 {
			entries = append(entries, s.newEntry(period, employee, Entry{
				Category:    CategoryDeduction,
				Code:        CodeTransportDiscount,
				Description: "Transport benefit discount",
				Reference:   ref(vtBase),
				Amount:      transportDiscount,
			}))
		}
	}

	totalEarnings := decimal.Zero
	totalDeductions := decimal.Zero
	for _, entry := range entries {
		switch entry.Category {
		case CategoryEarning:
			totalEarnings = totalEarnings.Add(entry.Amount)
		case CategoryDeduction:
			totalDeductions = totalDeductions.Add(entry.Amount)
		}
	}

	if err := tx.InsertEntries(ctx, entries); err != nil {
		return PaySlip{}, fmt.Errorf("persist entries: %w", err)
	}

	slip := PaySlip{
		ID:              uuid.NewString(),
		PeriodID:        period.ID,
		EmployeeID:      employee.ID,
		GrossSalary:     gross,
		TotalEarnings:   totalEarnings,
		TotalDeductions: totalDeductions,
		NetSalary:       totalEarnings.Sub(totalDeductions),
		SocialSecurity:  socialSecurity,
		IncomeTax:       incomeTax,
		EmployerFund:    employerFund,
		Details: SlipDetails{
			BenefitDiscountTotal: benefitTotal,
			TransportDiscount:    transportDiscount,
		},
		Status:    SlipStatusDraft,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.InsertSlip(ctx, slip); err != nil {
		return PaySlip{}, fmt.Errorf("persist slip: %w", err)
	}
	return slip, nil
}

func (s *Service) newEntry(period Period, employee directory.Employee, entry Entry) Entry {
	entry.ID = uuid.NewString()
	entry.PeriodID = period.ID
	entry.EmployeeID = employee.ID
	return entry
}

func benefitDiscount(plan directory.BenefitPlan, gross decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if plan.DiscountValue != nil {
		return plan.DiscountValue.Round(2), nil
	}
	if plan.DiscountPercent != nil {
		return gross.Mul(*plan.DiscountPercent).Round(2), ref(gross)
	}
	return decimal.Zero, nil
}

func ref(value decimal.Decimal) *decimal.Decimal {
	return &value
}
