// Package user 实现用户服务的业务逻辑
package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/hewenyu/contentmesh/pkg/storage"
	"go.uber.org/zap"
)

// Service 用户服务
type Service struct {
	storage storage.UserStorage
	logger  config.Logger
	nowFn   func() time.Time
}

// NewService 创建用户服务
func NewService(store storage.UserStorage, logger config.Logger) *Service {
	return &Service{
		storage: store,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// ListUsers 获取所有用户
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, s.unexpected("list_users", err)
	}
	return users, nil
}

// GetUser 获取用户
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return nil, s.classify("get_user", err)
	}
	return user, nil
}

// CreateUser 创建用户
func (s *Service) CreateUser(ctx context.Context, req model.UserRequest) (*model.User, error) {
	user := &model.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		CreatedAt: s.nowFn().UTC(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, s.unexpected("create_user", err)
	}
	s.logger.Info("用户已创建", zap.String("user_id", user.ID.String()))
	return user, nil
}

// UpdateUser 更新用户资料，不影响最后内容更新时间
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req model.UserRequest) error {
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return s.classify("load_user", err)
	}

	user.Username = req.Username
	user.Email = req.Email
	user.FullName = req.FullName
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return s.classify("save_user", err)
	}
	return nil
}

// DeleteUser 删除用户
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.storage.DeleteUser(ctx, id); err != nil {
		return s.classify("delete_user", err)
	}
	return nil
}

// UpdateLastContentUpdated 记录用户最后一次内容更新的时间
//
// 重复投递同一时间戳的结果相同。
func (s *Service) UpdateLastContentUpdated(ctx context.Context, id uuid.UUID, ts time.Time) error {
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		return s.classify("load_user", err)
	}

	utc := ts.UTC()
	user.LastContentUpdated = &utc
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return s.classify("save_user", err)
	}

	s.logger.Info("已更新用户最后内容更新时间",
		zap.String("user_id", id.String()),
		zap.Time("last_content_updated", utc))
	return nil
}

func (s *Service) classify(op string, err error) error {
	if failure.IsNotFound(err) {
		s.logger.Error("用户不存在", zap.String("op", op), zap.Error(err))
		return err
	}
	return s.unexpected(op, err)
}

func (s *Service) unexpected(op string, err error) error {
	s.logger.Error("用户服务操作失败", zap.String("op", op), zap.Error(err))
	return failure.NewUnexpected(op, err)
}
