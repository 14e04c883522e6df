package reporting

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/domain/reporting"
	"github.com/distrib/backend/internal/domain/shared"
)

// memoryReportRepository keeps reports by value so callers never share
// state with the store.
type memoryReportRepository struct {
	mu      sync.Mutex
	reports map[uuid.UUID]reporting.WeeklyReport
	saves   int
}

func newMemoryReportRepository() *memoryReportRepository {
	return &memoryReportRepository{reports: make(map[uuid.UUID]reporting.WeeklyReport)}
}

func cloneReport(r reporting.WeeklyReport) reporting.WeeklyReport {
	r.Details = slices.Clone(r.Details)
	r.ClearDomainEvents()
	return r
}

func (m *memoryReportRepository) FindByID(_ context.Context, id uuid.UUID) (*reporting.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := cloneReport(r)
	return &c, nil
}

func (m *memoryReportRepository) FindAll(_ context.Context, filter shared.Filter) ([]reporting.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reporting.WeeklyReport
	for _, r := range m.reports {
		if id, ok := filter.Filters["distributor_id"].(uuid.UUID); ok && r.DistributorID != id {
			continue
		}
		if status, ok := filter.Filters["status"].(shared.ApprovalStatus); ok && r.Status != status {
			continue
		}
		out = append(out, cloneReport(r))
	}
	return out, nil
}

func (m *memoryReportRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, err := m.FindAll(ctx, filter)
	return int64(len(all)), err
}

func (m *memoryReportRepository) FindByDistributor(_ context.Context, q reporting.ReportQuery) ([]reporting.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reporting.WeeklyReport
	for _, r := range m.reports {
		if r.DistributorID != q.DistributorID {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, r.Status) {
			continue
		}
		if q.AnchorOn != nil && !r.CycleAnchor.Equal(*q.AnchorOn) {
			continue
		}
		if q.AnchorBefore != nil && !r.CycleAnchor.Before(*q.AnchorBefore) {
			continue
		}
		out = append(out, cloneReport(r))
	}
	return out, nil
}

func (m *memoryReportRepository) LatestAnchor(ctx context.Context, q reporting.ReportQuery) (*time.Time, error) {
	reports, _ := m.FindByDistributor(ctx, q)
	var latest *time.Time
	for i := range reports {
		if latest == nil || reports[i].CycleAnchor.After(*latest) {
			anchor := reports[i].CycleAnchor
			latest = &anchor
		}
	}
	return latest, nil
}

func (m *memoryReportRepository) Save(_ context.Context, report *reporting.WeeklyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ID] = cloneReport(*report)
	m.saves++
	return nil
}

func (m *memoryReportRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, id)
	return nil
}

// staticOrderSource serves a fixed order ledger
type staticOrderSource struct {
	orders reconciliation.OrderLedger
}

func (s *staticOrderSource) ListOrderEntries(_ context.Context, q reconciliation.OrderQuery) ([]reconciliation.OrderEntry, error) {
	var out []reconciliation.OrderEntry
	for _, order := range s.orders {
		if order.DistributorID != q.DistributorID || !slices.Contains(q.Statuses, order.Status) {
			continue
		}
		if order.CreatedAt.Before(q.CreatedFrom) || !order.CreatedAt.Before(q.CreatedBefore) {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockCycleLocker is a mock implementation of CycleLocker
type MockCycleLocker struct {
	mock.Mock
}

func (m *MockCycleLocker) Lock(ctx context.Context, distributorID uuid.UUID, cycleAnchor time.Time) (func(), error) {
	args := m.Called(ctx, distributorID, cycleAnchor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// mutexCycleLocker holds one mutex per cycle key
type mutexCycleLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *mutexCycleLocker) Lock(_ context.Context, distributorID uuid.UUID, cycleAnchor time.Time) (func(), error) {
	key := CycleLockKey(distributorID, cycleAnchor)
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type stubExporter struct{}

func (stubExporter) Export(r *reporting.WeeklyReport) ([]byte, error) {
	return []byte(r.ID.String()), nil
}
func (stubExporter) ContentType() string { return "text/plain" }
func (stubExporter) Extension() string   { return "txt" }
