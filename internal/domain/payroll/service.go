package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// ComputePeriod recomputes every active employee's pay for the period. The
// whole run holds the period lock and writes inside one transaction: either
// all employees commit or none do. Reprocessing is a destructive full
// recompute, so running it twice with unchanged inputs yields the same state.
func (s *Service) ComputePeriod(ctx context.Context, periodID string) ([]PaySlip, error) {
	period, err := s.acquirePeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	slips, err := s.computeLocked(ctx, period)
	if err != nil {
		s.recoverPeriod(ctx, periodID)
		return nil, err
	}

	if err := s.releasePeriod(ctx, periodID); err != nil {
		return slips, err
	}
	slog.Info("payroll period computed",
		"periodId", periodID,
		"month", period.Month,
		"year", period.Year,
		"employees", len(slips),
		"durationMs", time.Since(started).Milliseconds())
	return slips, nil
}

func (s *Service) computeLocked(ctx context.Context, period Period) ([]PaySlip, error) {
	tables, err := s.loadTables(ctx)
	if err != nil {
		return nil, err
	}

	var slips []PaySlip
	err = s.store.InTx(ctx, func(tx RunStore) error {
		if _, err := tx.LockPeriod(ctx, period.ID); err != nil {
			return fmt.Errorf("lock period row: %w", err)
		}
		employees, err := tx.ActiveEmployees(ctx)
		if err != nil {
			return fmt.Errorf("load active employees: %w", err)
		}
		for _, employee := range employees {
			slip, err := s.assemble(ctx, tx, period, tables, employee)
			if err != nil {
				return fmt.Errorf("employee %s: %w", employee.ID, err)
			}
			slips = append(slips, slip)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slips, nil
}

func (s *Service) loadTables(ctx context.Context) (runTables, error) {
	socialSecurity, err := s.bracketsFor(ctx, TaxKindSocialSecurity)
	if err != nil {
		return runTables{}, fmt.Errorf("load social security brackets: %w", err)
	}
	incomeTax, err := s.bracketsFor(ctx, TaxKindIncomeTax)
	if err != nil {
		return runTables{}, fmt.Errorf("load income tax brackets: %w", err)
	}
	return runTables{socialSecurity: socialSecurity, incomeTax: incomeTax}, nil
}

// ClosePeriod is the terminal transition: open -> closed, recording who
// closed it. It is never triggered by the computation itself.
func (s *Service) ClosePeriod(ctx context.Context, periodID, closedBy string) (Period, error) {
	won, err := s.store.ClosePeriod(ctx, periodID, closedBy)
	if err != nil {
		return Period{}, fmt.Errorf("close period: %w", err)
	}
	if !won {
		period, err := s.store.PeriodByID(ctx, periodID)
		if err != nil {
			return Period{}, err
		}
		switch period.Status {
		case PeriodStatusClosed:
			return Period{}, ErrPeriodClosed
		case PeriodStatusCalculating:
			return Period{}, ErrPeriodCalculating
		default:
			return Period{}, fmt.Errorf("%w: status %q", ErrPeriodNotOpen, period.Status)
		}
	}
	return s.store.PeriodByID(ctx, periodID)
}

// ReopenPeriod forces a stuck calculating period back to open. This is the
// manual recovery path for a process that crashed before cleanup ran.
func (s *Service) ReopenPeriod(ctx context.Context, periodID string) (Period, error) {
	won, err := s.store.TransitionPeriod(ctx, periodID, PeriodStatusCalculating, PeriodStatusOpen)
	if err != nil {
		return Period{}, fmt.Errorf("reopen period: %w", err)
	}
	if !won {
		period, err := s.store.PeriodByID(ctx, periodID)
		if err != nil {
			return Period{}, err
		}
		return Period{}, fmt.Errorf("%w: status %q", ErrPeriodNotStuck, period.Status)
	}
	slog.Warn("payroll period forced back to open", "periodId", periodID)
	return s.store.PeriodByID(ctx, periodID)
}

func (s *Service) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid reference month %d", month)
	}
	if year < 2000 || year > 2200 {
		return Period{}, fmt.Errorf("invalid reference year %d", year)
	}
	return s.store.CreatePeriod(ctx, month, year)
}

func (s *Service) PeriodByID(ctx context.Context, id string) (Period, error) {
	return s.store.PeriodByID(ctx, id)
}

func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.store.ListPeriods(ctx)
}

func (s *Service) CreateComponent(ctx context.Context, component Component) (Component, error) {
	if component.Amount.Sign() < 0 {
		return Component{}, fmt.Errorf("component amount must not be negative")
	}
	component.Amount = component.Amount.Round(2)
	return s.store.CreateComponent(ctx, component)
}

func (s *Service) ListComponents(ctx context.Context, employeeID string) ([]Component, error) {
	return s.store.ListComponents(ctx, employeeID)
}

func (s *Service) SetComponentActive(ctx context.Context, id string, active bool) error {
	return s.store.SetComponentActive(ctx, id, active)
}

func (s *Service) EntriesFor(ctx context.Context, periodID, employeeID string) ([]Entry, error) {
	return s.store.EntriesFor(ctx, periodID, employeeID)
}

func (s *Service) SlipsByPeriod(ctx context.Context, periodID string) ([]PaySlip, error) {
	return s.store.SlipsByPeriod(ctx, periodID)
}

func (s *Service) SlipFor(ctx context.Context, periodID, employeeID string) (PaySlip, error) {
	return s.store.SlipFor(ctx, periodID, employeeID)
}

func (s *Service) CreateBracket(ctx context.Context, bracket TaxBracket) (TaxBracket, error) {
	if bracket.Kind != TaxKindSocialSecurity && bracket.Kind != TaxKindIncomeTax {
		return TaxBracket{}, fmt.Errorf("unknown tax kind %q", bracket.Kind)
	}
	return s.store.CreateBracket(ctx, bracket)
}

func (s *Service) BracketsByKind(ctx context.Context, kind string) ([]TaxBracket, error) {
	return s.bracketsFor(ctx, kind)
}
