package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SocialSecurity computes cumulative-bracket withholding: each bracket taxes
// only the slice of the base between the previous bracket's maximum and its
// own, and the base is capped at the top bracket's maximum (the contribution
// ceiling). Brackets must be ordered by ascending minimum.
func SocialSecurity(base decimal.Decimal, brackets []TaxBracket) decimal.Decimal {
	if base.Sign() <= 0 || len(brackets) == 0 {
		return decimal.Zero
	}

	capped := base
	if top := brackets[len(brackets)-1]; top.Max != nil && capped.GreaterThan(*top.Max) {
		capped = *top.Max
	}

	total := decimal.Zero
	floor := brackets[0].Min
	for _, bracket := range brackets {
		if capped.LessThanOrEqual(floor) {
			break
		}
		upper := capped
		if bracket.Max != nil && upper.GreaterThan(*bracket.Max) {
			upper = *bracket.Max
		}
		if slice := upper.Sub(floor); slice.Sign() > 0 {
			total = total.Add(slice.Mul(bracket.Rate))
		}
		if bracket.Max == nil {
			break
		}
		floor = *bracket.Max
	}
	return total.Round(2)
}

// IncomeTax computes effective-rate withholding: the whole taxable base is
// taxed at the matched bracket's rate, then the bracket's fixed deduction is
// subtracted. The taxable base is gross minus the social-security amount
// minus the fixed per-dependent deduction. Never negative.
func IncomeTax(gross, socialSecurity decimal.Decimal, dependents int, brackets []TaxBracket) decimal.Decimal {
	taxable := gross.
		Sub(socialSecurity).
		Sub(dependentDeduction.Mul(decimal.NewFromInt(int64(dependents))))
	if taxable.Sign() <= 0 {
		return decimal.Zero
	}

	// Scan from the highest minimum downward; first bracket whose minimum
	// is at or below the taxable base wins.
	for i := len(brackets) - 1; i >= 0; i-- {
		if taxable.GreaterThanOrEqual(brackets[i].Min) {
			tax := taxable.Mul(brackets[i].Rate).Sub(brackets[i].Deduction)
			if tax.Sign() <= 0 {
				return decimal.Zero
			}
			return tax.Round(2)
		}
	}
	return decimal.Zero
}

// Fallback tables used while no dynamic bracket rows are configured. Values
// follow the 2024 Brazilian INSS and IRRF tables; replacing them with
// equivalent persisted rows changes nothing.

func FallbackBrackets(kind string) []TaxBracket {
	switch kind {
	case TaxKindSocialSecurity:
		return []TaxBracket{
			fallbackBracket(kind, "0", dec("1412.00"), "0.075", "0"),
			fallbackBracket(kind, "1412.01", dec("2666.68"), "0.09", "0"),
			fallbackBracket(kind, "2666.69", dec("4000.03"), "0.12", "0"),
			fallbackBracket(kind, "4000.04", dec("7786.02"), "0.14", "0"),
		}
	case TaxKindIncomeTax:
		return []TaxBracket{
			fallbackBracket(kind, "0", dec("2259.20"), "0", "0"),
			fallbackBracket(kind, "2259.21", dec("2826.65"), "0.075", "169.44"),
			fallbackBracket(kind, "2826.66", dec("3751.05"), "0.15", "381.44"),
			fallbackBracket(kind, "3751.06", dec("4664.68"), "0.225", "662.77"),
			{Kind: kind, Min: dec("4664.69"), Rate: dec("0.275"), Deduction: dec("896.00")},
		}
	}
	return nil
}

func fallbackBracket(kind, min string, max decimal.Decimal, rate, deduction string) TaxBracket {
	return TaxBracket{Kind: kind, Min: dec(min), Max: &max, Rate: dec(rate), Deduction: dec(deduction)}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// bracketsFor resolves the bracket table for one tax kind: persisted rows
// effective as of now when present, the constant fallback otherwise.
func (s *Service) bracketsFor(ctx context.Context, kind string) ([]TaxBracket, error) {
	rows, err := s.store.BracketsByKind(ctx, kind, time.Now())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return FallbackBrackets(kind), nil
	}
	return rows, nil
}
