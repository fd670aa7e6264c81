package model

import (
	"time"

	"github.com/google/uuid"
)

// User 用户记录
type User struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Username           string     `json:"username" gorm:"size:100;not null"`
	Email              string     `json:"email" gorm:"size:255;not null"`
	FullName           string     `json:"fullName" gorm:"size:255"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastContentUpdated *time.Time `json:"lastContentUpdated,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Clone 返回副本
func (u *User) Clone() *User {
	cp := *u
	if u.LastContentUpdated != nil {
		ts := *u.LastContentUpdated
		cp.LastContentUpdated = &ts
	}
	return &cp
}

// UserRequest 创建或更新用户的请求
type UserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
}

// LastContentUpdatedRequest 更新最后内容更新时间的请求
type LastContentUpdatedRequest struct {
	LastContentUpdated time.Time `json:"lastContentUpdated" validate:"required"`
}
