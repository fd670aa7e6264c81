package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStorage_CRUD(t *testing.T) {
	s := NewContentStorage()
	ctx := context.Background()

	content := &model.Content{
		ID:              uuid.New(),
		Title:           "Old",
		Body:            "body",
		CreatedByUserID: uuid.New(),
		CreatedAt:       time.Now().UTC(),
	}

	// 创建
	require.NoError(t, s.CreateContent(ctx, content))
	assert.Error(t, s.CreateContent(ctx, content), "重复创建应失败")

	// 读取
	saved, err := s.GetContent(ctx, content.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old", saved.Title)

	// 修改返回的副本不影响存储
	saved.Title = "mutated"
	again, err := s.GetContent(ctx, content.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old", again.Title)

	// 保存
	again.Title = "New"
	require.NoError(t, s.SaveContent(ctx, again))
	updated, err := s.GetContent(ctx, content.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)

	// 列表
	list, err := s.ListContents(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// 删除
	require.NoError(t, s.DeleteContent(ctx, content.ID))
	_, err = s.GetContent(ctx, content.ID)
	assert.True(t, failure.IsNotFound(err))
	assert.True(t, failure.IsNotFound(s.DeleteContent(ctx, content.ID)))
}

func TestContentStorage_SaveMissing(t *testing.T) {
	s := NewContentStorage()
	err := s.SaveContent(context.Background(), &model.Content{ID: uuid.New()})
	assert.True(t, failure.IsNotFound(err))

	err = s.CreateContent(context.Background(), &model.Content{})
	assert.Error(t, err, "空ID应返回错误")
}

func TestUserStorage_CRUD(t *testing.T) {
	s := NewUserStorage()
	ctx := context.Background()

	user := &model.User{
		ID:        uuid.New(),
		Username:  "ada",
		Email:     "ada@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	ts := time.Now().UTC()
	saved, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	saved.LastContentUpdated = &ts
	require.NoError(t, s.SaveUser(ctx, saved))

	// 修改原指针不影响存储
	ts2 := ts.Add(time.Hour)
	*saved.LastContentUpdated = ts2

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContentUpdated)
	assert.True(t, ts.Equal(*got.LastContentUpdated))

	list, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteUser(ctx, user.ID))
	_, err = s.GetUser(ctx, user.ID)
	assert.True(t, failure.IsNotFound(err))
}
