package payroll

import (
	"context"
	"time"

	"hrpay/internal/domain/directory"
)

// StoreAPI is the persistence surface the payroll service depends on.
// Period status transitions are atomic conditional writes committed
// independently of any longer-lived transaction; everything touched during a
// computation run goes through RunStore inside a single transaction.
type StoreAPI interface {
	CreatePeriod(ctx context.Context, month, year int) (Period, error)
	PeriodByID(ctx context.Context, id string) (Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)

	// TransitionPeriod sets status to `to` only if the row currently holds
	// `from`, reporting whether the write won. This is the period lock.
	TransitionPeriod(ctx context.Context, id, from, to string) (bool, error)
	ClosePeriod(ctx context.Context, id, closedBy string) (bool, error)

	BracketsByKind(ctx context.Context, kind string, asOf time.Time) ([]TaxBracket, error)
	CreateBracket(ctx context.Context, bracket TaxBracket) (TaxBracket, error)

	CreateComponent(ctx context.Context, component Component) (Component, error)
	ListComponents(ctx context.Context, employeeID string) ([]Component, error)
	SetComponentActive(ctx context.Context, id string, active bool) error

	EntriesFor(ctx context.Context, periodID, employeeID string) ([]Entry, error)
	SlipsByPeriod(ctx context.Context, periodID string) ([]PaySlip, error)
	SlipFor(ctx context.Context, periodID, employeeID string) (PaySlip, error)

	InTx(ctx context.Context, fn func(RunStore) error) error
}

// RunStore is the transactional view used for one computation run.
type RunStore interface {
	// LockPeriod re-reads the period row under a row-level exclusive lock,
	// serializing against any other transaction touching the same row.
	LockPeriod(ctx context.Context, id string) (Period, error)
	ActiveEmployees(ctx context.Context) ([]directory.Employee, error)
	ComponentsEffectiveIn(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]Component, error)
	PurgeEmployeePeriod(ctx context.Context, periodID, employeeID string) error
	InsertEntries(ctx context.Context, entries []Entry) error
	InsertSlip(ctx context.Context, slip PaySlip) error
}
