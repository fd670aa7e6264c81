// Package content 实现内容服务的业务逻辑，包括"更新内容并通知用户"的编排流程
package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/hewenyu/contentmesh/internal/userclient"
	"github.com/hewenyu/contentmesh/pkg/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("contentmesh/content")

// Service 内容服务
type Service struct {
	storage  storage.ContentStorage
	notifier userclient.Notifier
	logger   config.Logger
	nowFn    func() time.Time
}

// NewService 创建内容服务
func NewService(store storage.ContentStorage, notifier userclient.Notifier, logger config.Logger) *Service {
	return &Service{
		storage:  store,
		notifier: notifier,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// ListContents 获取所有内容
func (s *Service) ListContents(ctx context.Context) ([]*model.Content, error) {
	contents, err := s.storage.ListContents(ctx)
	if err != nil {
		return nil, s.unexpected("list_contents", err)
	}
	return contents, nil
}

// GetContent 获取内容
func (s *Service) GetContent(ctx context.Context, id uuid.UUID) (*model.Content, error) {
	content, err := s.storage.GetContent(ctx, id)
	if err != nil {
		if failure.IsNotFound(err) {
			return nil, err
		}
		return nil, s.unexpected("get_content", err)
	}
	return content, nil
}

// CreateContent 创建内容
func (s *Service) CreateContent(ctx context.Context, req model.ContentRequest) (*model.Content, error) {
	content := &model.Content{
		ID:              uuid.New(),
		Title:           req.Title,
		Body:            req.Body,
		CreatedByUserID: req.CreatedByUserID,
		CreatedAt:       s.nowFn().UTC(),
	}
	if err := s.storage.CreateContent(ctx, content); err != nil {
		return nil, s.unexpected("create_content", err)
	}
	s.logger.Info("内容已创建", zap.String("content_id", content.ID.String()))
	return content, nil
}

// UpdateContent 整体更新内容，不通知用户服务
func (s *Service) UpdateContent(ctx context.Context, id uuid.UUID, req model.ContentRequest) error {
	content, err := s.storage.GetContent(ctx, id)
	if err != nil {
		if failure.IsNotFound(err) {
			s.logger.Error("内容不存在", zap.String("content_id", id.String()))
			return err
		}
		return s.unexpected("load_content", err)
	}

	content.Title = req.Title
	content.Body = req.Body
	content.CreatedByUserID = req.CreatedByUserID
	if err := s.storage.SaveContent(ctx, content); err != nil {
		return s.persistError(err)
	}
	return nil
}

// DeleteContent 删除内容
func (s *Service) DeleteContent(ctx context.Context, id uuid.UUID) error {
	if err := s.storage.DeleteContent(ctx, id); err != nil {
		if failure.IsNotFound(err) {
			s.logger.Error("内容不存在", zap.String("content_id", id.String()))
			return err
		}
		return s.unexpected("delete_content", err)
	}
	return nil
}

// UpdateAndNotify 更新内容后通知所属用户
//
// 流程：加载内容（不存在则中止，无任何副作用）-> 修改标题和正文 -> 持久化 -> 通知用户服务。
// 持久化成功后修改即为最终结果，不会回滚；通知失败时错误原样返回给调用方，
// 两个服务之间的不一致会保持到下一次独立更新。
func (s *Service) UpdateAndNotify(ctx context.Context, contentID uuid.UUID, req model.ContentUpdateRequest, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "content.UpdateAndNotify")
	defer span.End()
	span.SetAttributes(
		attribute.String("content_id", contentID.String()),
		attribute.String("user_id", userID.String()),
	)

	err := s.updateAndNotify(ctx, contentID, req, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failure.KindOf(err).String())
	}
	return err
}

func (s *Service) updateAndNotify(ctx context.Context, contentID uuid.UUID, req model.ContentUpdateRequest, userID uuid.UUID) error {
	content, err := s.storage.GetContent(ctx, contentID)
	if err != nil {
		if failure.IsNotFound(err) {
			s.logger.Error("内容不存在", zap.String("content_id", contentID.String()))
			return err
		}
		return s.unexpected("load_content", err)
	}

	content.Title = req.Title
	content.Body = req.Body
	if err := s.storage.SaveContent(ctx, content); err != nil {
		return s.persistError(err)
	}
	s.logger.Info("内容已更新", zap.String("content_id", contentID.String()))

	signal := userclient.UpdateSignal{
		UserID:             userID,
		LastContentUpdated: s.nowFn().UTC(),
	}
	if err := s.notifier.Notify(ctx, signal); err != nil {
		s.logger.Error("通知用户服务失败，内容修改已提交",
			zap.String("content_id", contentID.String()),
			zap.String("user_id", userID.String()),
			zap.String("kind", failure.KindOf(err).String()),
			zap.Error(err))
		return err
	}
	return nil
}

// persistError 持久化失败不做特殊重试，记录不存在之外的错误均视为未预期错误
func (s *Service) persistError(err error) error {
	if failure.IsNotFound(err) {
		return err
	}
	return s.unexpected("persist_content", err)
}

func (s *Service) unexpected(op string, err error) error {
	s.logger.Error("内容服务操作失败", zap.String("op", op), zap.Error(err))
	return failure.NewUnexpected(op, err)
}
