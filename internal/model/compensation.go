package model

import (
	"strings"
	"time"
)

// ImportPlaceholderCoupon 导入时描述列为空的记录使用的券面文字
const ImportPlaceholderCoupon = "Compensation (free text)"

// Compensation 顾客补偿券，每发放一张一行
//
// 顾客身份只认规范化后的手机号，姓名仅用于展示。
// 生命周期：创建一次（未兑换）-> 兑换一次（已兑换），不删除，不回退。
type Compensation struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone       string     `gorm:"type:varchar(16);index;not null" json:"phone"`
	Name        string     `gorm:"type:varchar(128);not null;default:''" json:"name"`
	CouponType  string     `gorm:"type:varchar(255);not null" json:"coupon_type"`
	Reason      *string    `gorm:"type:text" json:"reason"`
	CreatedBy   *string    `gorm:"type:varchar(128)" json:"created_by"`
	Redeemed    bool       `gorm:"not null;default:false;index" json:"redeemed"`
	RedeemedAt  *time.Time `json:"redeemed_at"`
	RedeemedBy  *string    `gorm:"type:varchar(128)" json:"redeemed_by"`
	ImportBatch *string    `gorm:"type:varchar(64);index" json:"import_batch,omitempty"`
	CreatedAt   time.Time  `gorm:"index;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Compensation) TableName() string {
	return "customers_coupons"
}

// Status 状态文字
func (c *Compensation) Status() string {
	if c.Redeemed {
		return StatusRedeemed
	}
	return StatusOpen
}

// CanRedeem 只有未兑换的记录可以兑换
func (c *Compensation) CanRedeem() bool {
	return !c.Redeemed
}

// MarkRedeemed 兑换相关的三个字段必须一起设置
func (c *Compensation) MarkRedeemed(by string, at time.Time) {
	c.Redeemed = true
	c.RedeemedAt = &at
	c.RedeemedBy = &by
	c.UpdatedAt = at
}

// OptionalString 去掉首尾空白，空串返回 nil
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
