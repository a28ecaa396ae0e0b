package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"compsystem/internal/model"

	"gorm.io/gorm"
)

var ErrOperatorNotFound = errors.New("操作员不存在")

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, op *model.Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryOperatorRepository 内存版操作员表
type MemoryOperatorRepository struct {
	mu     sync.RWMutex
	nextID int64
	byMail map[string]model.Operator
}

func NewMemoryOperatorRepository() *MemoryOperatorRepository {
	return &MemoryOperatorRepository{byMail: map[string]model.Operator{}}
}

func (r *MemoryOperatorRepository) Create(_ context.Context, op *model.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeEmail(op.Email)
	if _, exists := r.byMail[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	r.nextID++
	op.ID = r.nextID
	now := time.Now()
	op.CreatedAt, op.UpdatedAt = now, now
	r.byMail[key] = *op
	return nil
}

func (r *MemoryOperatorRepository) GetByEmail(_ context.Context, email string) (*model.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byMail[normalizeEmail(email)]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	return &op, nil
}
