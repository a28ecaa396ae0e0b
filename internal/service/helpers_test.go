package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"compsystem/internal/infrastructure/lock"
	"compsystem/internal/infrastructure/metrics"
	"compsystem/internal/model"
	"compsystem/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLoc = time.FixedZone("IST", 2*60*60)

// stepClock 每次调用前进一秒，保证记录的创建时间严格递增
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 1, 15, 9, 0, 0, 0, testLoc)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// spyStore 统计调用次数，并可注入存储错误
type spyStore struct {
	*repository.MemoryCompensationRepository

	mu        sync.Mutex
	calls     map[string]int
	failWith  error
	redeemErr error
}

func newSpyStore() *spyStore {
	return &spyStore{
		MemoryCompensationRepository: repository.NewMemoryCompensationRepository(),
		calls:                        map[string]int{},
	}
}

func (s *spyStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failWith
}

func (s *spyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *spyStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.calls {
		n += v
	}
	return n
}

func (s *spyStore) Create(ctx context.Context, c *model.Compensation) error {
	if err := s.record("Create"); err != nil {
		return err
	}
	return s.MemoryCompensationRepository.Create(ctx, c)
}

func (s *spyStore) CreateBatch(ctx context.Context, items []*model.Compensation) (int64, error) {
	if err := s.record("CreateBatch"); err != nil {
		return 0, err
	}
	return s.MemoryCompensationRepository.CreateBatch(ctx, items)
}

func (s *spyStore) GetByID(ctx context.Context, id int64) (*model.Compensation, error) {
	if err := s.record("GetByID"); err != nil {
		return nil, err
	}
	return s.MemoryCompensationRepository.GetByID(ctx, id)
}

func (s *spyStore) Redeem(ctx context.Context, id int64, by string, at time.Time) error {
	if err := s.record("Redeem"); err != nil {
		return err
	}
	if s.redeemErr != nil {
		return s.redeemErr
	}
	return s.MemoryCompensationRepository.Redeem(ctx, id, by, at)
}

func (s *spyStore) ListByPhone(ctx context.Context, phone string) ([]*model.Compensation, error) {
	if err := s.record("ListByPhone"); err != nil {
		return nil, err
	}
	return s.MemoryCompensationRepository.ListByPhone(ctx, phone)
}

func (s *spyStore) Count(ctx context.Context, q model.Query) (int64, error) {
	if err := s.record("Count"); err != nil {
		return 0, err
	}
	return s.MemoryCompensationRepository.Count(ctx, q)
}

func (s *spyStore) Find(ctx context.Context, q model.Query) ([]*model.Compensation, error) {
	if err := s.record("Find"); err != nil {
		return nil, err
	}
	return s.MemoryCompensationRepository.Find(ctx, q)
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func newTestService(t *testing.T, policy model.CompensationPolicy) (*CompensationService, *spyStore) {
	t.Helper()
	if policy.CatalogVariant == "" {
		policy.CatalogVariant = model.VariantTwoToppings
	}
	store := newSpyStore()
	svc, err := NewCompensationService(store, lock.NewLocalLocker(), testMetrics(), zap.NewNop(), CompensationOptions{
		Policy:   policy,
		PageSize: 50,
		Location: testLoc,
		Now:      newStepClock().Now,
	})
	require.NoError(t, err)
	return svc, store
}

func authedCtx() context.Context {
	return WithSession(context.Background(), &model.Session{ID: "sess-1", OperatorID: 1, Email: "host@cafe.test"})
}
