package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpay/internal/domain/directory"
)

func activeComponent(employeeID, kind, amount string) Component {
	return Component{
		ID:            uuid.NewString(),
		EmployeeID:    employeeID,
		Type:          kind,
		Description:   kind,
		Amount:        dec(amount),
		Active:        true,
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func transportEnrollment() directory.Enrollment {
	return directory.Enrollment{
		ID:     uuid.NewString(),
		Active: true,
		Plan:   directory.BenefitPlan{ID: uuid.NewString(), Name: "Transport pass", BenefitType: directory.BenefitTypeTransport},
	}
}

func findEntry(t *testing.T, entries []Entry, code string) Entry {
	t.Helper()
	for _, entry := range entries {
		if entry.Code == code {
			return entry
		}
	}
	t.Fatalf("entry %q not found", code)
	return Entry{}
}

func TestComputePeriodSingleEmployee(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	employee := directory.Employee{ID: uuid.NewString(), Name: "Ana", Active: true, Dependents: 0}
	store.employees = []directory.Employee{employee}
	store.components = []Component{activeComponent(employee.ID, ComponentBaseSalary, "1000.00")}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)

	slip := slips[0]
	assert.True(t, slip.GrossSalary.Equal(dec("1000.00")), "gross %s", slip.GrossSalary)
	// 1000 * 7.5% = 75.00 social security, income tax exempt.
	assert.True(t, slip.SocialSecurity.Equal(dec("75.00")), "inss %s", slip.SocialSecurity)
	assert.True(t, slip.IncomeTax.IsZero(), "irrf %s", slip.IncomeTax)
	// Employer fund: 8% of gross, not part of net.
	assert.True(t, slip.EmployerFund.Equal(dec("80.00")), "fgts %s", slip.EmployerFund)
	assert.True(t, slip.NetSalary.Equal(dec("925.00")), "net %s", slip.NetSalary)
	assert.Equal(t, SlipStatusDraft, slip.Status)

	entries, err := store.EntriesFor(context.Background(), period.ID, employee.ID)
	require.NoError(t, err)
	fgts := findEntry(t, entries, CodeEmployerFund)
	assert.Equal(t, CategoryEmployerCharge, fgts.Category)
	require.NotNil(t, fgts.Reference)
	assert.True(t, fgts.Reference.Equal(dec("1000.00")))

	inss := findEntry(t, entries, CodeSocialSecurity)
	assert.Equal(t, CategoryDeduction, inss.Category)
	require.NotNil(t, inss.Reference)
	assert.True(t, inss.Reference.Equal(dec("1000.00")))

	got, err := store.PeriodByID(context.Background(), period.ID)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, got.Status)
}

func TestTransportDiscountUsesBaseSalaryComponent(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	employee := directory.Employee{
		ID: uuid.NewString(), Name: "Bruno", Active: true,
		Benefits: []directory.Enrollment{transportEnrollment()},
	}
	store.employees = []directory.Employee{employee}
	store.components = []Component{
		activeComponent(employee.ID, ComponentBaseSalary, "2000.00"),
		activeComponent(employee.ID, ComponentHazardPay, "1000.00"),
	}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)

	// 6% of the 2000.00 base-salary component, not of the 3000.00 gross.
	assert.True(t, slips[0].Details.TransportDiscount.Equal(dec("120.00")),
		"vt %s", slips[0].Details.TransportDiscount)

	entries, err := store.EntriesFor(context.Background(), period.ID, employee.ID)
	require.NoError(t, err)
	vt := findEntry(t, entries, CodeTransportDiscount)
	require.NotNil(t, vt.Reference)
	assert.True(t, vt.Reference.Equal(dec("2000.00")))
}

func TestTransportDiscountFallsBackToGross(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	employee := directory.Employee{
		ID: uuid.NewString(), Name: "Carla", Active: true,
		Benefits: []directory.Enrollment{transportEnrollment()},
	}
	store.employees = []directory.Employee{employee}
	// Contractor-style: no base-salary component at all.
	store.components = []Component{activeComponent(employee.ID, ComponentOther, "1500.00")}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.True(t, slips[0].Details.TransportDiscount.Equal(dec("90.00")),
		"vt %s", slips[0].Details.TransportDiscount)
}

func TestBenefitDiscounts(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	fixed := dec("150.00")
	percent := dec("0.03")
	employee := directory.Employee{
		ID: uuid.NewString(), Name: "Diego", Active: true,
		Benefits: []directory.Enrollment{
			{ID: uuid.NewString(), Active: true, Plan: directory.BenefitPlan{Name: "Dental", BenefitType: "dental", DiscountValue: &fixed}},
			{ID: uuid.NewString(), Active: true, Plan: directory.BenefitPlan{Name: "Health", BenefitType: "health", DiscountPercent: &percent}},
			{ID: uuid.NewString(), Active: false, Plan: directory.BenefitPlan{Name: "Gym", BenefitType: "wellness", DiscountValue: &fixed}},
		},
	}
	store.employees = []directory.Employee{employee}
	store.components = []Component{activeComponent(employee.ID, ComponentBaseSalary, "4000.00")}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)

	// 150.00 fixed + 3% of 4000.00 = 270.00; the inactive enrollment is skipped.
	assert.True(t, slips[0].Details.BenefitDiscountTotal.Equal(dec("270.00")),
		"benefit total %s", slips[0].Details.BenefitDiscountTotal)
}

func TestComponentsOutsideReferenceMonthExcluded(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	employee := directory.Employee{ID: uuid.NewString(), Name: "Eva", Active: true}
	store.employees = []directory.Employee{employee}

	expired := activeComponent(employee.ID, ComponentFixedBonus, "500.00")
	until := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	expired.EffectiveUntil = &until

	future := activeComponent(employee.ID, ComponentHazardPay, "700.00")
	future.EffectiveFrom = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	inactive := activeComponent(employee.ID, ComponentOther, "900.00")
	inactive.Active = false

	store.components = []Component{
		activeComponent(employee.ID, ComponentBaseSalary, "2000.00"),
		expired,
		future,
		inactive,
	}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.True(t, slips[0].GrossSalary.Equal(dec("2000.00")), "gross %s", slips[0].GrossSalary)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	employee := directory.Employee{
		ID: uuid.NewString(), Name: "Ana", Active: true, Dependents: 1,
		Benefits: []directory.Enrollment{transportEnrollment()},
	}
	store.employees = []directory.Employee{employee}
	store.components = []Component{
		activeComponent(employee.ID, ComponentBaseSalary, "3500.00"),
		activeComponent(employee.ID, ComponentFixedBonus, "400.00"),
	}

	first, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	second, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, first[0].GrossSalary.Equal(second[0].GrossSalary))
	assert.True(t, first[0].TotalEarnings.Equal(second[0].TotalEarnings))
	assert.True(t, first[0].TotalDeductions.Equal(second[0].TotalDeductions))
	assert.True(t, first[0].NetSalary.Equal(second[0].NetSalary))
	assert.True(t, first[0].SocialSecurity.Equal(second[0].SocialSecurity))
	assert.True(t, first[0].IncomeTax.Equal(second[0].IncomeTax))
	assert.True(t, first[0].EmployerFund.Equal(second[0].EmployerFund))

	// No leftover duplicates from the first run.
	entries, err := store.EntriesFor(context.Background(), period.ID, employee.ID)
	require.NoError(t, err)
	firstEntries := map[string]decimal.Decimal{}
	for _, entry := range entries {
		_, seen := firstEntries[entry.Code+"|"+entry.Description]
		assert.False(t, seen, "duplicate entry %s", entry.Code)
		firstEntries[entry.Code+"|"+entry.Description] = entry.Amount
	}
	slips, err := store.SlipsByPeriod(context.Background(), period.ID)
	require.NoError(t, err)
	assert.Len(t, slips, 1)
}

func TestComputeFailureAbortsWholeRun(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	first := directory.Employee{ID: uuid.NewString(), Name: "Ana", Active: true}
	second := directory.Employee{ID: uuid.NewString(), Name: "Bruno", Active: true}
	store.employees = []directory.Employee{first, second}
	store.components = []Component{
		activeComponent(first.ID, ComponentBaseSalary, "1000.00"),
		activeComponent(second.ID, ComponentBaseSalary, "2000.00"),
	}
	store.failSlipAfter = 1

	_, err := service.ComputePeriod(context.Background(), period.ID)
	require.Error(t, err)

	// Nothing committed, not even the first employee.
	slips, listErr := store.SlipsByPeriod(context.Background(), period.ID)
	require.NoError(t, listErr)
	assert.Empty(t, slips)
	entries, listErr := store.EntriesFor(context.Background(), period.ID, "")
	require.NoError(t, listErr)
	assert.Empty(t, entries)

	got, getErr := store.PeriodByID(context.Background(), period.ID)
	require.NoError(t, getErr)
	assert.Equal(t, PeriodStatusOpen, got.Status)
}

func TestComputeUsesDynamicBracketsWhenPresent(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	// A flat 10% single-bracket table replaces the fallback.
	max := dec("100000.00")
	store.brackets = []TaxBracket{{
		Kind: TaxKindSocialSecurity, Min: decimal.Zero, Max: &max,
		Rate:          dec("0.10"),
		EffectiveFrom: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	}}

	employee := directory.Employee{ID: uuid.NewString(), Name: "Ana", Active: true}
	store.employees = []directory.Employee{employee}
	store.components = []Component{activeComponent(employee.ID, ComponentBaseSalary, "1000.00")}

	slips, err := service.ComputePeriod(context.Background(), period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.True(t, slips[0].SocialSecurity.Equal(dec("100.00")), "inss %s", slips[0].SocialSecurity)
}

func TestClosePeriodLifecycle(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusOpen)

	closed, err := service.ClosePeriod(context.Background(), period.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)
	assert.Equal(t, "admin-1", closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)

	// Closing is terminal.
	_, err = service.ClosePeriod(context.Background(), period.ID, "admin-2")
	assert.ErrorIs(t, err, ErrPeriodClosed)

	_, err = service.ComputePeriod(context.Background(), period.ID)
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestClosePeriodRejectedWhileCalculating(t *testing.T) {
	store := newMemStore()
	service := NewService(store)
	period := store.addPeriod(6, 2024, PeriodStatusCalculating)

	_, err := service.ClosePeriod(context.Background(), period.ID, "admin-1")
	assert.ErrorIs(t, err, ErrPeriodCalculating)
}

func TestComputePeriodNotFound(t *testing.T) {
	store := newMemStore()
	service := NewService(store)

	_, err := service.ComputePeriod(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestCreatePeriodValidation(t *testing.T) {
	store := newMemStore()
	service := NewService(store)

	_, err := service.CreatePeriod(context.Background(), 13, 2024)
	assert.Error(t, err)

	_, err = service.CreatePeriod(context.Background(), 6, 2024)
	require.NoError(t, err)
	_, err = service.CreatePeriod(context.Background(), 6, 2024)
	assert.ErrorIs(t, err, ErrPeriodExists)
}
