package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/pkg/storage"
	"gorm.io/gorm"
)

var _ storage.ContentStorage = (*ContentStorage)(nil)

// ContentStorage 基于MySQL的内容存储
type ContentStorage struct {
	db *gorm.DB
}

// NewContentStorage 创建MySQL内容存储
func NewContentStorage(db *gorm.DB) *ContentStorage {
	return &ContentStorage{db: db}
}

// ListContents 获取所有内容
func (s *ContentStorage) ListContents(ctx context.Context) ([]*model.Content, error) {
	var contents []*model.Content
	if err := s.db.WithContext(ctx).Order("created_at").Find(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}

// GetContent 获取内容
func (s *ContentStorage) GetContent(ctx context.Context, id uuid.UUID) (*model.Content, error) {
	var content model.Content
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NewContentNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// CreateContent 保存新内容
func (s *ContentStorage) CreateContent(ctx context.Context, content *model.Content) error {
	return s.db.WithContext(ctx).Create(content).Error
}

// SaveContent 持久化已存在内容的修改
func (s *ContentStorage) SaveContent(ctx context.Context, content *model.Content) error {
	result := s.db.WithContext(ctx).
		Model(&model.Content{}).
		Where("id = ?", content.ID).
		Updates(map[string]interface{}{
			"title":              content.Title,
			"body":               content.Body,
			"created_by_user_id": content.CreatedByUserID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 值未变化时MySQL也返回0，需要确认记录是否存在
		if _, err := s.GetContent(ctx, content.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteContent 删除内容
func (s *ContentStorage) DeleteContent(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Content{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.NewContentNotFoundError(id)
	}
	return nil
}
