package payroll

import (
	"context"
	"fmt"
	"log/slog"
)

// The period lock is a single atomic conditional update committed outside the
// computation transaction: open -> calculating on acquire, calculating ->
// open on release. Exactly one caller can win the acquire for a given period;
// a read-then-write check here would race.

func (s *Service) acquirePeriod(ctx context.Context, id string) (Period, error) {
	won, err := s.store.TransitionPeriod(ctx, id, PeriodStatusOpen, PeriodStatusCalculating)
	if err != nil {
		return Period{}, fmt.Errorf("acquire period lock: %w", err)
	}
	if !won {
		// Re-read to tell the caller exactly why the period was unavailable.
		period, err := s.store.PeriodByID(ctx, id)
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
	return s.store.PeriodByID(ctx, id)
}

func (s *Service) releasePeriod(ctx context.Context, id string) error {
	won, err := s.store.TransitionPeriod(ctx, id, PeriodStatusCalculating, PeriodStatusOpen)
	if err != nil {
		return fmt.Errorf("release period lock: %w", err)
	}
	if !won {
		return fmt.Errorf("release period lock: %w", ErrPeriodNotStuck)
	}
	return nil
}

// recoverPeriod is the best-effort cleanup after a failed run. It must never
// mask the original computation error, so its own failure is only logged; a
// period left in calculating can be forced back with ReopenPeriod.
func (s *Service) recoverPeriod(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	won, err := s.store.TransitionPeriod(ctx, id, PeriodStatusCalculating, PeriodStatusOpen)
	if err != nil {
		slog.Error("payroll period cleanup failed, period may be stuck in calculating",
			"periodId", id, "err", err)
		return
	}
	if !won {
		slog.Warn("payroll period cleanup found unexpected status", "periodId", id)
	}
}
