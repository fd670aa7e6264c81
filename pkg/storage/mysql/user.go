package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/pkg/storage"
	"gorm.io/gorm"
)

var _ storage.UserStorage = (*UserStorage)(nil)

// UserStorage 基于MySQL的用户存储
type UserStorage struct {
	db *gorm.DB
}

// NewUserStorage 创建MySQL用户存储
func NewUserStorage(db *gorm.DB) *UserStorage {
	return &UserStorage{db: db}
}

// ListUsers 获取所有用户
func (s *UserStorage) ListUsers(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser 获取用户
func (s *UserStorage) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser 保存新用户
func (s *UserStorage) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// SaveUser 持久化已存在用户的修改
func (s *UserStorage) SaveUser(ctx context.Context, user *model.User) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":             user.Username,
			"email":                user.Email,
			"full_name":            user.FullName,
			"last_content_updated": user.LastContentUpdated,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, user.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser 删除用户
func (s *UserStorage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.NewUserNotFoundError(id)
	}
	return nil
}
