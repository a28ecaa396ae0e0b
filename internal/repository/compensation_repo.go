package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"compsystem/internal/model"

	"gorm.io/gorm"
)

// importBatchSize 单条 INSERT 语句最多携带的行数
const importBatchSize = 500

// CompensationRepository 补偿记录的 MySQL 实现。
// 每次写入都在同一事务里追加一条 outbox 事件。
type CompensationRepository struct {
	db     *gorm.DB
	outbox *OutboxRepository
	topic  string
}

func NewCompensationRepository(db *gorm.DB, outbox *OutboxRepository, topic string) *CompensationRepository {
	return &CompensationRepository{db: db, outbox: outbox, topic: topic}
}

func (r *CompensationRepository) Create(ctx context.Context, c *model.Compensation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return r.appendEvent(ctx, tx, strconv.FormatInt(c.ID, 10), model.CompensationEvent{
			Event:      model.EventCompensationCreated,
			ID:         c.ID,
			Phone:      c.Phone,
			CouponType: c.CouponType,
			At:         c.CreatedAt,
		})
	})
}

// CreateBatch 多行插入，整体成功或整体回滚
func (r *CompensationRepository) CreateBatch(ctx context.Context, items []*model.Compensation) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.CreateInBatches(items, importBatchSize)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected

		first := items[0]
		key := strconv.FormatInt(first.ID, 10)
		if first.ImportBatch != nil {
			key = *first.ImportBatch
		}
		return r.appendEvent(ctx, tx, key, model.CompensationEvent{
			Event:   model.EventCompensationImported,
			BatchNo: key,
			Count:   len(items),
			At:      first.CreatedAt,
		})
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *CompensationRepository) GetByID(ctx context.Context, id int64) (*model.Compensation, error) {
	var c model.Compensation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCompensationNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Redeem 条件更新：只有仍未兑换的记录会被修改。
// 影响行数为 0 说明已被其他请求兑换，返回 ErrAlreadyRedeemed。
func (r *CompensationRepository) Redeem(ctx context.Context, id int64, by string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := redeemStatement(tx, id, by, at)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return model.ErrAlreadyRedeemed
		}
		return r.appendEvent(ctx, tx, strconv.FormatInt(id, 10), model.CompensationEvent{
			Event:      model.EventCompensationRedeemed,
			ID:         id,
			RedeemedBy: by,
			At:         at,
		})
	})
}

func redeemStatement(tx *gorm.DB, id int64, by string, at time.Time) *gorm.DB {
	return tx.Model(&model.Compensation{}).
		Where("id = ? AND redeemed = ?", id, false).
		Updates(map[string]interface{}{
			"redeemed":    true,
			"redeemed_at": at,
			"redeemed_by": by,
			"updated_at":  at,
		})
}

func (r *CompensationRepository) ListByPhone(ctx context.Context, phone string) ([]*model.Compensation, error) {
	return r.Find(ctx, model.CardQuery(phone))
}

func (r *CompensationRepository) Count(ctx context.Context, q model.Query) (int64, error) {
	var total int64
	err := applyFilter(r.db.WithContext(ctx).Model(&model.Compensation{}), q).Count(&total).Error
	return total, err
}

func (r *CompensationRepository) Find(ctx context.Context, q model.Query) ([]*model.Compensation, error) {
	var items []*model.Compensation
	err := findStatement(r.db.WithContext(ctx), q).Find(&items).Error
	return items, err
}

// findStatement 过滤 + 固定排序 + 分页
func findStatement(db *gorm.DB, q model.Query) *gorm.DB {
	stmt := applyFilter(db.Model(&model.Compensation{}), q).
		Order("created_at DESC").
		Order("id DESC")
	if q.Limit > 0 {
		stmt = stmt.Offset(q.Offset).Limit(q.Limit)
	}
	return stmt
}

func applyFilter(db *gorm.DB, q model.Query) *gorm.DB {
	if q.Phone != nil {
		db = db.Where("phone = ?", *q.Phone)
	}
	if q.NameLike != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+escapeLike(strings.ToLower(q.NameLike))+"%")
	}
	if q.Redeemed != nil {
		db = db.Where("redeemed = ?", *q.Redeemed)
	}
	if q.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		db = db.Where("created_at <= ?", *q.CreatedTo)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 转义 LIKE 通配符，MySQL 默认转义符为反斜杠
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *CompensationRepository) appendEvent(ctx context.Context, tx *gorm.DB, key string, event model.CompensationEvent) error {
	msg, err := NewOutboxMessage(r.topic, key, event)
	if err != nil {
		return err
	}
	return r.outbox.Create(ctx, tx, msg)
}
