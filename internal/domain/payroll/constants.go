package payroll

import "github.com/shopspring/decimal"

const (
	PeriodStatusOpen        = "open"
	PeriodStatusCalculating = "calculating"
	PeriodStatusClosed      = "closed"

	SlipStatusDraft = "draft"
	SlipStatusFinal = "final"

	CategoryEarning        = "earning"
	CategoryDeduction      = "deduction"
	CategoryEmployerCharge = "employer_charge"

	ComponentBaseSalary   = "base_salary"
	ComponentFixedBonus   = "fixed_bonus"
	ComponentHazardPay    = "hazard_pay"
	ComponentUnhealthyPay = "unhealthy_pay"
	ComponentOther        = "other"

	CodeSocialSecurity    = "inss"
	CodeIncomeTax         = "irrf"
	CodeEmployerFund      = "fgts"
	CodeTransportDiscount = "vt_discount"
	CodeBenefitDiscount   = "benefit_discount"

	TaxKindSocialSecurity = "social_security"
	TaxKindIncomeTax      = "income_tax"
)

var (
	// employerFundRate is the FGTS employer contribution over gross salary.
	employerFundRate = decimal.NewFromFloat(0.08)

	// transportDiscountRate applies over the base-salary component.
	transportDiscountRate = decimal.NewFromFloat(0.06)

	// dependentDeduction is the fixed per-dependent income-tax deduction.
	dependentDeduction = decimal.NewFromFloat(189.59)
)
