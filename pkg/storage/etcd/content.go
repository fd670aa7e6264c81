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

const contentKind = "contents"

var _ storage.ContentStorage = (*ContentStorage)(nil)

// ContentStorage 基于etcd的内容存储
type ContentStorage struct {
	client *Client
}

// NewContentStorage 创建etcd内容存储
func NewContentStorage(client *Client) *ContentStorage {
	return &ContentStorage{client: client}
}

// ListContents 获取所有内容，按ID排序
func (s *ContentStorage) ListContents(ctx context.Context) ([]*model.Content, error) {
	values, err := s.client.list(ctx, contentKind)
	if err != nil {
		return nil, err
	}
	contents := make([]*model.Content, 0, len(values))
	for _, v := range values {
		var c model.Content
		if err := json.Unmarshal(v, &c); err != nil {
			return nil, fmt.Errorf("解析内容失败: %w", err)
		}
		contents = append(contents, &c)
	}
	return contents, nil
}

// GetContent 获取内容
func (s *ContentStorage) GetContent(ctx context.Context, id uuid.UUID) (*model.Content, error) {
	var c model.Content
	if err := s.client.get(ctx, contentKind, id.String(), &c); err != nil {
		return nil, s.wrap(id, err)
	}
	return &c, nil
}

// CreateContent 保存新内容
func (s *ContentStorage) CreateContent(ctx context.Context, content *model.Content) error {
	if content.ID == uuid.Nil {
		return storage.NewInvalidArgumentError("内容ID不能为空")
	}
	return s.client.create(ctx, contentKind, content.ID.String(), content)
}

// SaveContent 持久化已存在内容的修改
func (s *ContentStorage) SaveContent(ctx context.Context, content *model.Content) error {
	return s.wrap(content.ID, s.client.update(ctx, contentKind, content.ID.String(), content))
}

// DeleteContent 删除内容
func (s *ContentStorage) DeleteContent(ctx context.Context, id uuid.UUID) error {
	return s.wrap(id, s.client.remove(ctx, contentKind, id.String()))
}

func (s *ContentStorage) wrap(id uuid.UUID, err error) error {
	if errors.Is(err, errNotFound) {
		return storage.NewContentNotFoundError(id)
	}
	return err
}
