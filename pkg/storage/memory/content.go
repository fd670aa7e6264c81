package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/pkg/storage"
)

var _ storage.ContentStorage = (*ContentStorage)(nil)

// ContentStorage 是基于内存的内容存储实现，用于测试和单机运行
type ContentStorage struct {
	contents map[uuid.UUID]*model.Content
	mutex    sync.RWMutex
}

// NewContentStorage 创建内存内容存储
func NewContentStorage() *ContentStorage {
	return &ContentStorage{
		contents: make(map[uuid.UUID]*model.Content),
	}
}

// ListContents 获取所有内容，按创建时间排序
func (m *ContentStorage) ListContents(ctx context.Context) ([]*model.Content, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	contents := make([]*model.Content, 0, len(m.contents))
	for _, c := range m.contents {
		contents = append(contents, c.Clone())
	}
	sort.Slice(contents, func(i, j int) bool {
		return contents[i].CreatedAt.Before(contents[j].CreatedAt)
	})
	return contents, nil
}

// GetContent 获取内容
func (m *ContentStorage) GetContent(ctx context.Context, id uuid.UUID) (*model.Content, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	c, exists := m.contents[id]
	if !exists {
		return nil, storage.NewContentNotFoundError(id)
	}
	return c.Clone(), nil
}

// CreateContent 保存新内容
func (m *ContentStorage) CreateContent(ctx context.Context, content *model.Content) error {
	if content.ID == uuid.Nil {
		return storage.NewInvalidArgumentError("内容ID不能为空")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.contents[content.ID]; exists {
		return storage.NewInvalidArgumentError("内容已存在: " + content.ID.String())
	}
	m.contents[content.ID] = content.Clone()
	return nil
}

// SaveContent 持久化已存在内容的修改
func (m *ContentStorage) SaveContent(ctx context.Context, content *model.Content) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.contents[content.ID]; !exists {
		return storage.NewContentNotFoundError(content.ID)
	}
	m.contents[content.ID] = content.Clone()
	return nil
}

// DeleteContent 删除内容
func (m *ContentStorage) DeleteContent(ctx context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.contents[id]; !exists {
		return storage.NewContentNotFoundError(id)
	}
	delete(m.contents, id)
	return nil
}
