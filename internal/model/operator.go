package model

import (
	"time"
)

// Operator 可以登录后台的客服人员
type Operator struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	DisplayName  string    `gorm:"type:varchar(128);not null;default:''" json:"display_name"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Operator) TableName() string {
	return "operator"
}

// Session 一次登录会话
type Session struct {
	ID         string    `json:"id"`
	OperatorID int64     `json:"operator_id"`
	Email      string    `json:"email"`
	Anonymous  bool      `json:"anonymous,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}
