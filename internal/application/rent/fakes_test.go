package rent

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory stand-in for the database. Execute snapshots the
// maps and restores them when fn fails, so tests observe real rollback.
type memStore struct {
	mu        sync.Mutex
	tenancies map[uuid.UUID]rent.Tenancy
	payments  map[uuid.UUID]rent.Payment
	order     []uuid.UUID
	receipts  map[uuid.UUID]rent.Receipt

	failReceiptCreate error
}

func newMemStore() *memStore {
	return &memStore{
		tenancies: make(map[uuid.UUID]rent.Tenancy),
		payments:  make(map[uuid.UUID]rent.Payment),
		receipts:  make(map[uuid.UUID]rent.Receipt),
	}
}

func (s *memStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	tenancies := make(map[uuid.UUID]rent.Tenancy, len(s.tenancies))
	for k, v := range s.tenancies {
		tenancies[k] = v
	}
	payments := make(map[uuid.UUID]rent.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	order := append([]uuid.UUID(nil), s.order...)
	receipts := make(map[uuid.UUID]rent.Receipt, len(s.receipts))
	for k, v := range s.receipts {
		receipts[k] = v
	}
	s.mu.Unlock()

	err := fn(memRepos{s})
	if err != nil {
		s.mu.Lock()
		s.tenancies, s.payments, s.order, s.receipts = tenancies, payments, order, receipts
		s.mu.Unlock()
	}
	return err
}

type memRepos struct{ s *memStore }

func (r memRepos) TenancyRepo() rent.TenancyRepository { return memTenancyRepo{r.s} }
func (r memRepos) PaymentRepo() rent.PaymentRepository { return memPaymentRepo{r.s} }
func (r memRepos) ReceiptRepo() rent.ReceiptRepository { return memReceiptRepo{r.s} }

func cloneTenancy(t rent.Tenancy) *rent.Tenancy {
	t.ClearDomainEvents()
	return &t
}

func clonePayment(p rent.Payment) *rent.Payment {
	p.BillingMonths = append(p.BillingMonths[:0:0], p.BillingMonths...)
	return &p
}

type memTenancyRepo struct{ s *memStore }

func (r memTenancyRepo) FindByID(_ context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenancies[id]
	if !ok {
		return nil, nil
	}
	return cloneTenancy(t), nil
}

func (r memTenancyRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	return r.FindByID(ctx, id)
}

func (r memTenancyRepo) FindActiveByUnit(_ context.Context, unitID uuid.UUID) (*rent.Tenancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenancies {
		if t.UnitID == unitID && t.IsActive() {
			return cloneTenancy(t), nil
		}
	}
	return nil, nil
}

func (r memTenancyRepo) FindAll(_ context.Context, f rent.TenancyFilter) ([]rent.Tenancy, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]rent.Tenancy, 0)
	for _, t := range r.s.tenancies {
		if f.UnitID != nil && t.UnitID != *f.UnitID {
			continue
		}
		if f.TenantID != nil && t.TenantID != *f.TenantID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, *cloneTenancy(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, int64(len(out)), nil
}

func (r memTenancyRepo) Create(_ context.Context, t *rent.Tenancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tenancies[t.ID]; ok {
		return shared.NewConflictError("tenancy %s exists", t.ID)
	}
	r.s.tenancies[t.ID] = *cloneTenancy(*t)
	return nil
}

func (r memTenancyRepo) SaveWithLock(_ context.Context, t *rent.Tenancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tenancies[t.ID]
	if !ok || stored.Version != t.Version-1 {
		return shared.NewConflictError("tenancy %s was modified", t.ID)
	}
	r.s.tenancies[t.ID] = *cloneTenancy(*t)
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*rent.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r memPaymentRepo) FindByTenancy(_ context.Context, tenancyID uuid.UUID) ([]*rent.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*rent.Payment
	for _, id := range r.s.order {
		if p := r.s.payments[id]; p.TenancyID == tenancyID {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (r memPaymentRepo) FindByIdempotencyKey(_ context.Context, tenancyID uuid.UUID, key string) (*rent.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.TenancyID == tenancyID && p.IdempotencyKey == key {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (r memPaymentRepo) Create(_ context.Context, p *rent.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.TransactionID == p.TransactionID {
			return shared.NewConflictError("transaction %s exists", p.TransactionID)
		}
	}
	r.s.payments[p.ID] = *clonePayment(*p)
	r.s.order = append(r.s.order, p.ID)
	return nil
}

func (r memPaymentRepo) UpdateStatus(_ context.Context, p *rent.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return shared.NewNotFoundError("payment %s not found", p.ID)
	}
	stored.Status = p.Status
	stored.RefundedAt = p.RefundedAt
	stored.RefundReason = p.RefundReason
	r.s.payments[p.ID] = stored
	return nil
}

type memReceiptRepo struct{ s *memStore }

func (r memReceiptRepo) FindByPaymentID(_ context.Context, paymentID uuid.UUID) (*rent.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.receipts[paymentID]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (r memReceiptRepo) Create(_ context.Context, rc *rent.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failReceiptCreate != nil {
		return r.s.failReceiptCreate
	}
	r.s.receipts[rc.PaymentID] = *rc
	return nil
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

var errStoreDown = errors.New("store down")

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockTenantDirectory mocks tenant identity lookup
type MockTenantDirectory struct {
	mock.Mock
}

func (m *MockTenantDirectory) Lookup(ctx context.Context, tenantID, unitID uuid.UUID) (rent.TenantSnapshot, error) {
	args := m.Called(ctx, tenantID, unitID)
	return args.Get(0).(rent.TenantSnapshot), args.Error(1)
}
