package payment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory payment and user store with undo-log transactions.
// Compare-and-set is atomic; reads take no locks, so racing reconciliations are
// decided by the CAS exactly as they would be without row locks.
type memStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
	byTx     map[string]uuid.UUID
	users    map[uuid.UUID]*models.User
	credits  []FundCredit

	// afterRead, when set, runs after every locked read; tests use it to line
	// concurrent reconciliations up before either writes.
	afterRead func()
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[uuid.UUID]*models.Payment),
		byTx:     make(map[string]uuid.UUID),
		users:    make(map[uuid.UUID]*models.User),
	}
}

type undoKey struct{}

type undoLog struct {
	ops []func()
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log))
	if err != nil {
		s.mu.Lock()
		for i := len(log.ops) - 1; i >= 0; i-- {
			log.ops[i]()
		}
		s.mu.Unlock()
	}
	return err
}

// onRollback must be called with s.mu held.
func (s *memStore) onRollback(ctx context.Context, op func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.ops = append(log.ops, op)
	}
}

func (s *memStore) addUser(role models.Role, status models.UserStatus) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: uuid.New(), Name: "Rahim Uddin", Email: uuid.NewString() + "@example.org", Phone: "01700000000", Role: role, Status: status}
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *memStore) user(id uuid.UUID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) payment(txID string) models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.payments[s.byTx[txID]]
}

func (s *memStore) seedPayment(userID uuid.UUID, purpose models.PaymentPurpose, amount int64, status models.PaymentStatus) models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Payment{
		ID:            uuid.New(),
		TransactionID: "TXN26" + strings.ToUpper(uuid.NewString()[:6]) + "18",
		UserID:        userID,
		Amount:        decimalFromInt(amount),
		Method:        models.PaymentMethodSSLCommerz,
		Purpose:       purpose,
		Status:        status,
		CreatedAt:     time.Now(),
	}
	s.payments[p.ID] = p
	s.byTx[p.TransactionID] = p.ID
	return *p
}

func (s *memStore) creditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.credits)
}

func (s *memStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byTx[p.TransactionID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	s.payments[p.ID] = &cp
	s.byTx[p.TransactionID] = p.ID
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	if u, ok := s.users[p.UserID]; ok {
		uc := *u
		cp.User = &uc
	}
	return &cp, nil
}

func (s *memStore) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byTx[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.payments[id]
	return &cp, nil
}

func (s *memStore) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error) {
	p, err := s.FindByTransactionID(ctx, transactionID)
	if err == nil && s.afterRead != nil {
		s.afterRead()
	}
	return p, err
}

func (s *memStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, paidAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	prevStatus, prevPaidAt := p.Status, p.PaidAt
	p.Status = to
	if paidAt != nil {
		t := *paidAt
		p.PaidAt = &t
	}
	s.onRollback(ctx, func() {
		p.Status = prevStatus
		p.PaidAt = prevPaidAt
	})
	return true, nil
}

func (s *memStore) List(ctx context.Context, filter repository.PaymentFilter) ([]models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Payment
	for _, p := range s.payments {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.TransactionID), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []models.Payment{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

// UserLookup
type memUsers struct{ s *memStore }

func (u memUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// memLedger applies effects to the memStore inside the caller's transaction.
type memLedger struct {
	s          *memStore
	creditErr  error
	elevations int
}

func (l *memLedger) CreditFund(ctx context.Context, credit FundCredit) error {
	if l.creditErr != nil {
		return l.creditErr
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.credits = append(l.s.credits, credit)
	l.s.onRollback(ctx, func() {
		l.s.credits = l.s.credits[:len(l.s.credits)-1]
	})
	return nil
}

func (l *memLedger) ElevateToMember(ctx context.Context, userID uuid.UUID) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	u, ok := l.s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	if u.Role != models.RoleUser {
		return false, nil
	}
	prevRole, prevStatus := u.Role, u.Status
	u.Role = models.RoleMember
	u.Status = models.UserStatusActive
	l.elevations++
	l.s.onRollback(ctx, func() {
		u.Role = prevRole
		u.Status = prevStatus
		l.elevations--
	})
	return true, nil
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) CreditFund(ctx context.Context, credit FundCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockLedger) ElevateToMember(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreatePayment(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayResponse), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
