package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"compsystem/internal/model"
)

// MemoryCompensationRepository 不接数据库时（storage.driver=memory）的实现，
// 查询语义与 MySQL 实现一致，进程重启数据即丢失。
type MemoryCompensationRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*model.Compensation
}

func NewMemoryCompensationRepository() *MemoryCompensationRepository {
	return &MemoryCompensationRepository{
		items: map[int64]*model.Compensation{},
	}
}

func (r *MemoryCompensationRepository) Create(_ context.Context, c *model.Compensation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(c)
	return nil
}

func (r *MemoryCompensationRepository) CreateBatch(_ context.Context, items []*model.Compensation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range items {
		r.insertLocked(c)
	}
	return int64(len(items)), nil
}

func (r *MemoryCompensationRepository) insertLocked(c *model.Compensation) {
	r.nextID++
	c.ID = r.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	stored := *c
	r.items[c.ID] = &stored
}

func (r *MemoryCompensationRepository) GetByID(_ context.Context, id int64) (*model.Compensation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, model.ErrCompensationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCompensationRepository) Redeem(_ context.Context, id int64, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || !c.CanRedeem() {
		// 与条件更新一致：不存在或已兑换都是影响 0 行
		return model.ErrAlreadyRedeemed
	}
	c.MarkRedeemed(by, at)
	return nil
}

func (r *MemoryCompensationRepository) ListByPhone(ctx context.Context, phone string) ([]*model.Compensation, error) {
	return r.Find(ctx, model.CardQuery(phone))
}

func (r *MemoryCompensationRepository) Count(_ context.Context, q model.Query) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, c := range r.items {
		if q.Matches(c) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryCompensationRepository) Find(_ context.Context, q model.Query) ([]*model.Compensation, error) {
	r.mu.RLock()
	all := make([]*model.Compensation, 0, len(r.items))
	for _, c := range r.items {
		if q.Matches(c) {
			cp := *c
			all = append(all, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if q.Limit <= 0 {
		return all, nil
	}
	start := q.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}
