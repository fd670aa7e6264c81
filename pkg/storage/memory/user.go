package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/pkg/storage"
)

var _ storage.UserStorage = (*UserStorage)(nil)

// UserStorage 是基于内存的用户存储实现
type UserStorage struct {
	users map[uuid.UUID]*model.User
	mutex sync.RWMutex
}

// NewUserStorage 创建内存用户存储
func NewUserStorage() *UserStorage {
	return &UserStorage{
		users: make(map[uuid.UUID]*model.User),
	}
}

// ListUsers 获取所有用户，按创建时间排序
func (m *UserStorage) ListUsers(ctx context.Context) ([]*model.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// GetUser 获取用户
func (m *UserStorage) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, storage.NewUserNotFoundError(id)
	}
	return u.Clone(), nil
}

// CreateUser 保存新用户
func (m *UserStorage) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		return storage.NewInvalidArgumentError("用户ID不能为空")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return storage.NewInvalidArgumentError("用户已存在: " + user.ID.String())
	}
	m.users[user.ID] = user.Clone()
	return nil
}

// SaveUser 持久化已存在用户的修改
func (m *UserStorage) SaveUser(ctx context.Context, user *model.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return storage.NewUserNotFoundError(user.ID)
	}
	m.users[user.ID] = user.Clone()
	return nil
}

// DeleteUser 删除用户
func (m *UserStorage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[id]; !exists {
		return storage.NewUserNotFoundError(id)
	}
	delete(m.users, id)
	return nil
}
