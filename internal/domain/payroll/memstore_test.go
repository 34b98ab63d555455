package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hrpay/internal/domain/directory"
)

// memStore is an in-memory StoreAPI used by the service tests. Status
// transitions are serialized by a mutex, mirroring the atomicity the SQL
// conditional update provides; InTx snapshots entries and slips so a failed
// run rolls back.
type memStore struct {
	mu         sync.Mutex
	periods    map[string]*Period
	components []Component
	brackets   []TaxBracket
	employees  []directory.Employee
	entries    map[string][]Entry
	slips      map[string]PaySlip

	failRelease   error // injected on calculating -> open transitions
	failEmployees error // injected when the run loads employees
	failSlipAfter int   // fail InsertSlip once this many slips exist (0 = never)
}

func newMemStore() *memStore {
	return &memStore{
		periods: map[string]*Period{},
		entries: map[string][]Entry{},
		slips:   map[string]PaySlip{},
	}
}

func pairKey(periodID, employeeID string) string {
	return periodID + "|" + employeeID
}

func (m *memStore) addPeriod(month, year int, status string) Period {
	period := Period{ID: uuid.NewString(), Month: month, Year: year, Status: status, CreatedAt: time.Now()}
	m.periods[period.ID] = &period
	return period
}

func (m *memStore) CreatePeriod(ctx context.Context, month, year int) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, period := range m.periods {
		if period.Month == month && period.Year == year {
			return Period{}, ErrPeriodExists
		}
	}
	period := Period{ID: uuid.NewString(), Month: month, Year: year, Status: PeriodStatusOpen, CreatedAt: time.Now()}
	m.periods[period.ID] = &period
	return period, nil
}

func (m *memStore) PeriodByID(ctx context.Context, id string) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[id]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return *period, nil
}

func (m *memStore) ListPeriods(ctx context.Context) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var periods []Period
	for _, period := range m.periods {
		periods = append(periods, *period)
	}
	return periods, nil
}

func (m *memStore) TransitionPeriod(ctx context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if from == PeriodStatusCalculating && to == PeriodStatusOpen && m.failRelease != nil {
		return false, m.failRelease
	}
	period, ok := m.periods[id]
	if !ok || period.Status != from {
		return false, nil
	}
	period.Status = to
	return true, nil
}

func (m *memStore) ClosePeriod(ctx context.Context, id, closedBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[id]
	if !ok || period.Status != PeriodStatusOpen {
		return false, nil
	}
	now := time.Now()
	period.Status = PeriodStatusClosed
	period.ClosedBy = closedBy
	period.ClosedAt = &now
	return true, nil
}

func (m *memStore) BracketsByKind(ctx context.Context, kind string, asOf time.Time) ([]TaxBracket, error) {
	var brackets []TaxBracket
	for _, bracket := range m.brackets {
		if bracket.Kind != kind {
			continue
		}
		if bracket.EffectiveFrom.After(asOf) {
			continue
		}
		if bracket.EffectiveUntil != nil && bracket.EffectiveUntil.Before(asOf) {
			continue
		}
		brackets = append(brackets, bracket)
	}
	return brackets, nil
}

func (m *memStore) CreateBracket(ctx context.Context, bracket TaxBracket) (TaxBracket, error) {
	bracket.ID = uuid.NewString()
	m.brackets = append(m.brackets, bracket)
	return bracket, nil
}

func (m *memStore) CreateComponent(ctx context.Context, component Component) (Component, error) {
	component.ID = uuid.NewString()
	component.CreatedAt = time.Now()
	m.components = append(m.components, component)
	return component, nil
}

func (m *memStore) ListComponents(ctx context.Context, employeeID string) ([]Component, error) {
	var components []Component
	for _, component := range m.components {
		if component.EmployeeID == employeeID {
			components = append(components, component)
		}
	}
	return components, nil
}

func (m *memStore) SetComponentActive(ctx context.Context, id string, active bool) error {
	for i := range m.components {
		if m.components[i].ID == id {
			m.components[i].Active = active
			return nil
		}
	}
	return ErrComponentNotFound
}

func (m *memStore) EntriesFor(ctx context.Context, periodID, employeeID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []Entry
	for key, list := range m.entries {
		if employeeID != "" && key != pairKey(periodID, employeeID) {
			continue
		}
		for _, entry := range list {
			if entry.PeriodID == periodID {
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

func (m *memStore) SlipsByPeriod(ctx context.Context, periodID string) ([]PaySlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var slips []PaySlip
	for _, slip := range m.slips {
		if slip.PeriodID == periodID {
			slips = append(slips, slip)
		}
	}
	return slips, nil
}

func (m *memStore) SlipFor(ctx context.Context, periodID, employeeID string) (PaySlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slip, ok := m.slips[pairKey(periodID, employeeID)]
	if !ok {
		return PaySlip{}, ErrSlipNotFound
	}
	return slip, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(RunStore) error) error {
	m.mu.Lock()
	entrySnapshot := make(map[string][]Entry, len(m.entries))
	for key, list := range m.entries {
		entrySnapshot[key] = append([]Entry(nil), list...)
	}
	slipSnapshot := make(map[string]PaySlip, len(m.slips))
	for key, slip := range m.slips {
		slipSnapshot[key] = slip
	}
	m.mu.Unlock()

	if err := fn(&memRun{store: m}); err != nil {
		m.mu.Lock()
		m.entries = entrySnapshot
		m.slips = slipSnapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type memRun struct {
	store *memStore
}

func (r *memRun) LockPeriod(ctx context.Context, id string) (Period, error) {
	return r.store.PeriodByID(ctx, id)
}

func (r *memRun) ActiveEmployees(ctx context.Context) ([]directory.Employee, error) {
	if r.store.failEmployees != nil {
		return nil, r.store.failEmployees
	}
	var employees []directory.Employee
	for _, employee := range r.store.employees {
		if employee.Active {
			employees = append(employees, employee)
		}
	}
	return employees, nil
}

func (r *memRun) ComponentsEffectiveIn(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]Component, error) {
	var components []Component
	for _, component := range r.store.components {
		if component.EmployeeID != employeeID || !component.Active {
			continue
		}
		if component.EffectiveFrom.After(monthEnd) {
			continue
		}
		if component.EffectiveUntil != nil && component.EffectiveUntil.Before(monthStart) {
			continue
		}
		components = append(components, component)
	}
	return components, nil
}

func (r *memRun) PurgeEmployeePeriod(ctx context.Context, periodID, employeeID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.entries, pairKey(periodID, employeeID))
	delete(r.store.slips, pairKey(periodID, employeeID))
	return nil
}

func (r *memRun) InsertEntries(ctx context.Context, entries []Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, entry := range entries {
		key := pairKey(entry.PeriodID, entry.EmployeeID)
		r.store.entries[key] = append(r.store.entries[key], entry)
	}
	return nil
}

func (r *memRun) InsertSlip(ctx context.Context, slip PaySlip) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failSlipAfter > 0 && len(r.store.slips) >= r.store.failSlipAfter {
		return fmt.Errorf("simulated storage failure")
	}
	r.store.slips[pairKey(slip.PeriodID, slip.EmployeeID)] = slip
	return nil
}
