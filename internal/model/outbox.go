package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 补偿记录相关事件
const (
	EventCompensationCreated  = "COMPENSATION_CREATED"
	EventCompensationRedeemed = "COMPENSATION_REDEEMED"
	EventCompensationImported = "COMPENSATION_IMPORTED"
)

// OutboxMessage 与业务写入同一事务落库，由 OutboxSender 异步投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(32);not null" json:"event_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// CompensationEvent 事件负载
type CompensationEvent struct {
	Event      string    `json:"event"`
	ID         int64     `json:"id,omitempty"`
	BatchNo    string    `json:"batch_no,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CouponType string    `json:"coupon_type,omitempty"`
	RedeemedBy string    `json:"redeemed_by,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}
