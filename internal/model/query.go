package model

import (
	"strings"
	"time"

	"compsystem/pkg/phone"
)

const (
	StatusAll      = "all"
	StatusOpen     = "open"
	StatusRedeemed = "redeemed"
)

// DefaultPageSize 列表固定页大小
const DefaultPageSize = 50

// DateLayout 筛选日期格式
const DateLayout = "2006-01-02"

// ListFilter 列表页的筛选条件（原始输入）
type ListFilter struct {
	Phone    string `form:"phone" json:"phone"`
	Name     string `form:"name" json:"name"`
	Status   string `form:"status" json:"status"`
	DateFrom string `form:"date_from" json:"date_from"`
	DateTo   string `form:"date_to" json:"date_to"`
}

// Query 翻译后的存储查询参数。
// 排序固定为 created_at DESC, id DESC，重复查询未变化的数据顺序一致。
type Query struct {
	Phone       *string
	NameLike    string
	Redeemed    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Offset      int
	Limit       int // 0 表示不分页
}

// CardQuery 顾客卡片：按手机号精确查询，不分页
func CardQuery(normalizedPhone string) Query {
	return Query{Phone: &normalizedPhone}
}

// BuildQuery 把筛选条件翻译成查询参数
func BuildQuery(f ListFilter, loc *time.Location) (Query, error) {
	if loc == nil {
		loc = time.Local
	}
	var q Query

	// 手机号至少 9 位才参与过滤，避免部分号码匹配出大量记录
	if ph := phone.Normalize(f.Phone); phone.UsableForFilter(ph) {
		q.Phone = &ph
	}

	q.NameLike = strings.TrimSpace(f.Name)

	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", StatusAll:
	case StatusOpen:
		v := false
		q.Redeemed = &v
	case StatusRedeemed:
		v := true
		q.Redeemed = &v
	default:
		return Query{}, ErrInvalidStatus
	}

	if s := strings.TrimSpace(f.DateFrom); s != "" {
		day, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return Query{}, ErrInvalidDate
		}
		q.CreatedFrom = &day
	}
	if s := strings.TrimSpace(f.DateTo); s != "" {
		day, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return Query{}, ErrInvalidDate
		}
		// 结束日期包含当天：延伸到当天最后一毫秒
		end := day.AddDate(0, 0, 1).Add(-time.Millisecond)
		q.CreatedTo = &end
	}

	return q, nil
}

// WithPage 设置分页区间，page 从 1 开始
func (q Query) WithPage(page, pageSize int) Query {
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize
	return q
}

// Matches 判断记录是否满足查询条件（内存实现与 SQL 实现语义一致）
func (q Query) Matches(c *Compensation) bool {
	if q.Phone != nil && c.Phone != *q.Phone {
		return false
	}
	if q.NameLike != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(q.NameLike)) {
		return false
	}
	if q.Redeemed != nil && c.Redeemed != *q.Redeemed {
		return false
	}
	if q.CreatedFrom != nil && c.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && c.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	return true
}

// TotalPages ceil(total/pageSize)，至少 1 页
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

// Pager 翻页状态，越过首页或末页的操作是空操作
type Pager struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func (p Pager) TotalPages() int {
	return TotalPages(p.Total, p.PageSize)
}

func (p Pager) HasPrev() bool {
	return p.Page > 1
}

func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages()
}

func (p Pager) Prev() Pager {
	if p.HasPrev() {
		p.Page--
	}
	return p
}

func (p Pager) Next() Pager {
	if p.HasNext() {
		p.Page++
	}
	return p
}

// CheckPage 页码必须落在 [1, totalPages]
func CheckPage(page, totalPages int) error {
	if page < 1 || page > totalPages {
		return ErrPageOutOfRange
	}
	return nil
}
