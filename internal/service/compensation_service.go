package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"compsystem/internal/infrastructure/lock"
	"compsystem/internal/infrastructure/metrics"
	"compsystem/internal/model"
	"compsystem/pkg/phone"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompensationStore 补偿记录的存储接口，MySQL 与内存实现都满足它
type CompensationStore interface {
	Create(ctx context.Context, c *model.Compensation) error
	CreateBatch(ctx context.Context, items []*model.Compensation) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Compensation, error)
	Redeem(ctx context.Context, id int64, by string, at time.Time) error
	ListByPhone(ctx context.Context, phone string) ([]*model.Compensation, error)
	Count(ctx context.Context, q model.Query) (int64, error)
	Find(ctx context.Context, q model.Query) ([]*model.Compensation, error)
}

// CompensationOptions 部署相关的参数
type CompensationOptions struct {
	Policy   model.CompensationPolicy
	PageSize int
	Location *time.Location
	Now      func() time.Time
}

type CompensationService struct {
	store    CompensationStore
	locker   lock.Locker
	catalog  *model.Catalog
	policy   model.CompensationPolicy
	pageSize int
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewCompensationService(
	store CompensationStore,
	locker lock.Locker,
	m *metrics.Metrics,
	log *zap.Logger,
	opts CompensationOptions,
) (*CompensationService, error) {
	catalog, err := model.NewCatalog(opts.Policy.CatalogVariant)
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultPageSize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CompensationService{
		store:    store,
		locker:   locker,
		catalog:  catalog,
		policy:   opts.Policy,
		pageSize: opts.PageSize,
		loc:      opts.Location,
		now:      opts.Now,
		metrics:  m,
		log:      log,
	}, nil
}

type CreateCompensationRequest struct {
	Phone        string           `json:"phone"`
	Name         string           `json:"name"`
	CouponKind   string           `json:"coupon_kind"`
	CreditAmount model.AmountText `json:"credit_amount"`
	Reason       string           `json:"reason"`
	CreatedBy    string           `json:"created_by"`
}

type RedeemRequest struct {
	ID       int64  `json:"id" binding:"required"`
	Approver string `json:"approver"`
}

// Card 一个顾客（手机号）名下的所有补偿券，最新的在前
type Card struct {
	Phone     string                `json:"phone"`
	Name      string                `json:"name"`
	OpenCount int                   `json:"open_count"`
	Items     []*model.Compensation `json:"items"`
}

// Page 列表页结果。到达首页或末页时 PrevPage/NextPage 停在当前页
type Page struct {
	Items      []*model.Compensation `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	HasPrev    bool                  `json:"has_prev"`
	HasNext    bool                  `json:"has_next"`
	PrevPage   int                   `json:"prev_page"`
	NextPage   int                   `json:"next_page"`
}

// Catalog 当前部署可选的券种
func (s *CompensationService) Catalog() []model.CouponOption {
	return s.catalog.Options()
}

// Variant 当前部署的券种组合
func (s *CompensationService) Variant() model.CatalogVariant {
	return s.catalog.Variant()
}

// Location 业务时区
func (s *CompensationService) Location() *time.Location {
	return s.loc
}

// Create 校验输入并新增一条补偿记录。校验按字段顺序进行，第一个失败即返回，
// 全部在访问存储之前完成。相同输入重复提交会生成两条记录。
func (s *CompensationService) Create(ctx context.Context, req *CreateCompensationRequest) (*model.Compensation, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}

	c, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, c); err != nil {
		s.log.Error("新增补偿失败", zap.String("phone", c.Phone), zap.Error(err))
		return nil, storeErr(err)
	}

	s.metrics.Created.WithLabelValues(c.CouponType).Inc()
	s.log.Info("新增补偿",
		zap.Int64("id", c.ID),
		zap.String("phone", c.Phone),
		zap.String("coupon", c.CouponType),
	)
	return c, nil
}

func (s *CompensationService) validateCreate(req *CreateCompensationRequest) (*model.Compensation, error) {
	ph := phone.Normalize(req.Phone)
	if !phone.IsValid(ph) {
		return nil, model.ErrInvalidPhone
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.ErrMissingName
	}

	kind := model.CouponKind(strings.TrimSpace(req.CouponKind))
	if kind == "" {
		return nil, model.ErrMissingCoupon
	}
	coupon, err := s.catalog.Encode(kind, string(req.CreditAmount))
	if err != nil {
		return nil, err
	}

	reason := model.OptionalString(req.Reason)
	createdBy := model.OptionalString(req.CreatedBy)
	if s.policy.RequireReasonAndApprover {
		if reason == nil {
			return nil, model.ErrMissingReason
		}
		if createdBy == nil {
			return nil, model.ErrMissingActor
		}
	}

	now := s.now()
	return &model.Compensation{
		Phone:      ph,
		Name:       name,
		CouponType: coupon,
		Reason:     reason,
		CreatedBy:  createdBy,
		Redeemed:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Redeem 兑换一张补偿券。
//
// 已兑换的券返回 ErrAlreadyRedeemed 和当前记录，调用方按成功处理（静默空操作）。
// 并发兑换时只有一个请求的条件更新会生效，其余请求同样得到 ErrAlreadyRedeemed。
func (s *CompensationService) Redeem(ctx context.Context, req *RedeemRequest) (*model.Compensation, error) {
	sess, err := RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	approver := strings.TrimSpace(req.Approver)
	if approver == "" {
		return nil, model.ErrMissingApprover
	}

	c, err := s.store.GetByID(ctx, req.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !c.CanRedeem() {
		s.metrics.RedeemNoop.Inc()
		return c, model.ErrAlreadyRedeemed
	}

	release, err := s.locker.Acquire(ctx, lock.RedeemLockKey(c.ID), sess.ID+":"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer release()

	at := s.now()
	if err := s.store.Redeem(ctx, c.ID, approver, at); err != nil {
		if errors.Is(err, model.ErrAlreadyRedeemed) {
			s.metrics.RedeemNoop.Inc()
			s.log.Info("补偿已被兑换，忽略", zap.Int64("id", c.ID), zap.String("approver", approver))
			current, getErr := s.store.GetByID(ctx, c.ID)
			if getErr != nil {
				return nil, storeErr(getErr)
			}
			return current, model.ErrAlreadyRedeemed
		}
		s.log.Error("兑换补偿失败", zap.Int64("id", c.ID), zap.Error(err))
		return nil, storeErr(err)
	}

	c.MarkRedeemed(approver, at)
	s.metrics.Redeemed.Inc()
	s.log.Info("兑换补偿",
		zap.Int64("id", c.ID),
		zap.String("phone", c.Phone),
		zap.String("approver", approver),
	)
	return c, nil
}

// Card 按手机号查询顾客卡片。空号码直接返回空卡片，不访问存储。
// 只做规范化不校验格式，导入的历史号码（如座机）也能查到。
func (s *CompensationService) Card(ctx context.Context, rawPhone string) (*Card, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}

	ph := phone.Normalize(rawPhone)
	if ph == "" {
		return &Card{Items: []*model.Compensation{}}, nil
	}

	items, err := s.store.ListByPhone(ctx, ph)
	if err != nil {
		return nil, storeErr(err)
	}
	return newCard(ph, items), nil
}

// CardOf 刷新某条记录所属顾客的卡片
func (s *CompensationService) CardOf(ctx context.Context, c *model.Compensation) (*Card, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}
	items, err := s.store.ListByPhone(ctx, c.Phone)
	if err != nil {
		return nil, storeErr(err)
	}
	return newCard(c.Phone, items), nil
}

func newCard(ph string, items []*model.Compensation) *Card {
	card := &Card{Phone: ph, Items: items}
	if card.Items == nil {
		card.Items = []*model.Compensation{}
	}
	for _, c := range items {
		// 最新一条有姓名的记录作为展示名
		if card.Name == "" && c.Name != "" {
			card.Name = c.Name
		}
		if c.CanRedeem() {
			card.OpenCount++
		}
	}
	return card
}

// Browse 分页浏览。先查总数，页码越界时不再发起区间查询
func (s *CompensationService) Browse(ctx context.Context, filter model.ListFilter, page int) (*Page, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}

	q, err := model.BuildQuery(filter, s.loc)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, model.ErrPageOutOfRange
	}

	total, err := s.store.Count(ctx, q)
	if err != nil {
		return nil, storeErr(err)
	}
	pager := model.Pager{Page: page, PageSize: s.pageSize, Total: total}
	totalPages := pager.TotalPages()
	if err := model.CheckPage(page, totalPages); err != nil {
		return nil, err
	}

	items, err := s.store.Find(ctx, q.WithPage(page, s.pageSize))
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []*model.Compensation{}
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		HasPrev:    pager.HasPrev(),
		HasNext:    pager.HasNext(),
		PrevPage:   pager.Prev().Page,
		NextPage:   pager.Next().Page,
	}, nil
}

// storeErr 存储层错误统一包装成 PersistenceError，业务语义的哨兵错误原样返回
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrAlreadyRedeemed) || errors.Is(err, model.ErrCompensationNotFound) {
		return err
	}
	return model.Persistence(err)
}
