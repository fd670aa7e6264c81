package model

import (
	"time"

	"github.com/google/uuid"
)

// Content 内容记录
type Content struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title           string    `json:"title" gorm:"size:255;not null"`
	Body            string    `json:"body" gorm:"type:text;not null"`
	CreatedByUserID uuid.UUID `json:"createdByUserId" gorm:"type:char(36);index"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Content) TableName() string {
	return "contents"
}

// Clone 返回副本
func (c *Content) Clone() *Content {
	cp := *c
	return &cp
}

// ContentRequest 创建或整体更新内容的请求
type ContentRequest struct {
	Title           string    `json:"title" validate:"required,max=255"`
	Body            string    `json:"body" validate:"required"`
	CreatedByUserID uuid.UUID `json:"createdByUserId"`
}

// ContentUpdateRequest 更新内容并通知用户的请求
type ContentUpdateRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Body  string `json:"body" validate:"required"`
}
