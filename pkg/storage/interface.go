package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
)

// ContentStorage 定义内容存储接口
type ContentStorage interface {
	// ListContents 获取所有内容
	ListContents(ctx context.Context) ([]*model.Content, error)

	// GetContent 获取内容，不存在时返回NotFound错误
	GetContent(ctx context.Context, id uuid.UUID) (*model.Content, error)

	// CreateContent 保存新内容
	CreateContent(ctx context.Context, content *model.Content) error

	// SaveContent 持久化已存在内容的修改，提交后即为最终结果
	SaveContent(ctx context.Context, content *model.Content) error

	// DeleteContent 删除内容
	DeleteContent(ctx context.Context, id uuid.UUID) error
}

// UserStorage 定义用户存储接口
type UserStorage interface {
	// ListUsers 获取所有用户
	ListUsers(ctx context.Context) ([]*model.User, error)

	// GetUser 获取用户，不存在时返回NotFound错误
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// CreateUser 保存新用户
	CreateUser(ctx context.Context, user *model.User) error

	// SaveUser 持久化已存在用户的修改
	SaveUser(ctx context.Context, user *model.User) error

	// DeleteUser 删除用户
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// NewContentNotFoundError 创建内容不存在错误
func NewContentNotFoundError(id uuid.UUID) error {
	return failure.NewNotFound("content", "内容不存在: %s", id)
}

// NewUserNotFoundError 创建用户不存在错误
func NewUserNotFoundError(id uuid.UUID) error {
	return failure.NewNotFound("user", "用户不存在: %s", id)
}

// NewInvalidArgumentError 创建参数无效错误
func NewInvalidArgumentError(message string) error {
	return failure.Newf(failure.Permanent, "storage", "%s", message)
}
