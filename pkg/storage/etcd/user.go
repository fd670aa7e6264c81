package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/pkg/storage"
)

const userKind = "users"

var _ storage.UserStorage = (*UserStorage)(nil)

// UserStorage 基于etcd的用户存储
type UserStorage struct {
	client *Client
}

// NewUserStorage 创建etcd用户存储
func NewUserStorage(client *Client) *UserStorage {
	return &UserStorage{client: client}
}

// ListUsers 获取所有用户，按ID排序
func (s *UserStorage) ListUsers(ctx context.Context) ([]*model.User, error) {
	values, err := s.client.list(ctx, userKind)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(values))
	for _, v := range values {
		var u model.User
		if err := json.Unmarshal(v, &u); err != nil {
			return nil, fmt.Errorf("解析用户失败: %w", err)
		}
		users = append(users, &u)
	}
	return users, nil
}

// GetUser 获取用户
func (s *UserStorage) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.client.get(ctx, userKind, id.String(), &u); err != nil {
		return nil, s.wrap(id, err)
	}
	return &u, nil
}

// CreateUser 保存新用户
func (s *UserStorage) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		return storage.NewInvalidArgumentError("用户ID不能为空")
	}
	return s.client.create(ctx, userKind, user.ID.String(), user)
}

// SaveUser 持久化已存在用户的修改
func (s *UserStorage) SaveUser(ctx context.Context, user *model.User) error {
	return s.wrap(user.ID, s.client.update(ctx, userKind, user.ID.String(), user))
}

// DeleteUser 删除用户
func (s *UserStorage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.wrap(id, s.client.remove(ctx, userKind, id.String()))
}

func (s *UserStorage) wrap(id uuid.UUID, err error) error {
	if errors.Is(err, errNotFound) {
		return storage.NewUserNotFoundError(id)
	}
	return err
}
