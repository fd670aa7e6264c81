package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/hewenyu/contentmesh/internal/resilience"
	"github.com/hewenyu/contentmesh/internal/userclient"
	"github.com/hewenyu/contentmesh/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeNotifier 记录通知调用
type fakeNotifier struct {
	mu      sync.Mutex
	err     error
	signals []userclient.UpdateSignal
}

func (f *fakeNotifier) Notify(ctx context.Context, signal userclient.UpdateSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, signal)
	return f.err
}

func (f *fakeNotifier) FetchUser(ctx context.Context, userID uuid.UUID) (*userclient.User, error) {
	return nil, failure.NewNotFound("fetch_user", "用户不存在: %s", userID)
}

func (f *fakeNotifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signals)
}

// failingStorage 持久化总是失败
type failingStorage struct {
	*memory.ContentStorage
}

func (f failingStorage) SaveContent(ctx context.Context, c *model.Content) error {
	return errors.New("database is locked")
}

func seedContent(t *testing.T, store *memory.ContentStorage, title string) *model.Content {
	t.Helper()
	c := &model.Content{
		ID:              uuid.New(),
		Title:           title,
		Body:            "old body",
		CreatedByUserID: uuid.New(),
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.CreateContent(context.Background(), c))
	return c
}

func nopLogger() config.Logger {
	return config.NewFromZap(zap.NewNop())
}

func TestUpdateAndNotifySuccess(t *testing.T) {
	store := memory.NewContentStorage()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, nopLogger())
	fixed := time.Date(2025, 7, 22, 21, 55, 10, 0, time.UTC)
	svc.nowFn = func() time.Time { return fixed }

	c1 := seedContent(t, store, "Old")
	userID := uuid.New()

	err := svc.UpdateAndNotify(context.Background(), c1.ID, model.ContentUpdateRequest{Title: "New", Body: "new body"}, userID)
	require.NoError(t, err)

	saved, err := store.GetContent(context.Background(), c1.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", saved.Title)
	assert.Equal(t, "new body", saved.Body)
	assert.Equal(t, c1.CreatedByUserID, saved.CreatedByUserID, "编排流程不修改所属用户")

	require.Equal(t, 1, notifier.calls())
	assert.Equal(t, userID, notifier.signals[0].UserID)
	assert.Equal(t, fixed, notifier.signals[0].LastContentUpdated)
}

func TestUpdateAndNotifyKeepsCommitWhenNotifyFails(t *testing.T) {
	store := memory.NewContentStorage()
	notifyErr := failure.New(failure.CircuitOpen, "userservice", errors.New("熔断器已打开"))
	notifier := &fakeNotifier{err: notifyErr}

	core, logs := observer.New(zap.InfoLevel)
	svc := NewService(store, notifier, config.NewFromZap(zap.New(core)))

	c1 := seedContent(t, store, "Old")
	err := svc.UpdateAndNotify(context.Background(), c1.ID, model.ContentUpdateRequest{Title: "New", Body: "b"}, uuid.New())

	require.Error(t, err)
	assert.Same(t, notifyErr, err, "通知错误应原样返回")

	saved, getErr := store.GetContent(context.Background(), c1.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "New", saved.Title, "通知失败不回滚已提交的修改")

	assert.Equal(t, 1, logs.FilterMessage("内容已更新").Len(), "提交成功的日志与通知结果无关")
	assert.Equal(t, 1, logs.FilterMessage("通知用户服务失败，内容修改已提交").Len())
}

func TestUpdateAndNotifyNotFound(t *testing.T) {
	store := memory.NewContentStorage()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, nopLogger())

	err := svc.UpdateAndNotify(context.Background(), uuid.New(), model.ContentUpdateRequest{Title: "New", Body: "b"}, uuid.New())

	require.Error(t, err)
	assert.True(t, failure.IsNotFound(err))
	assert.Equal(t, 0, notifier.calls(), "内容不存在时不应调用下游")
}

func TestUpdateAndNotifyPersistFailure(t *testing.T) {
	mem := memory.NewContentStorage()
	c1 := seedContent(t, mem, "Old")
	notifier := &fakeNotifier{}
	svc := NewService(failingStorage{mem}, notifier, nopLogger())

	err := svc.UpdateAndNotify(context.Background(), c1.ID, model.ContentUpdateRequest{Title: "New", Body: "b"}, uuid.New())

	require.Error(t, err)
	assert.Equal(t, failure.Unexpected, failure.KindOf(err))
	assert.Equal(t, 0, notifier.calls(), "持久化失败时不应通知")
}

// 端到端：真实的策略管道和HTTP客户端，下游持续返回503
func TestUpdateAndNotifyWithFailingDownstream(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := resilience.NewBreaker("userservice", 2, 30*time.Second, nil)
	pipeline := resilience.NewPipeline(resilience.Options{
		Timeout: 2 * time.Second,
		Retry:   resilience.RetryPolicy{MaxRetries: 3, BackoffBase: time.Millisecond},
	}, breaker, nil)
	client := userclient.NewClient(server.URL, "key", pipeline, nopLogger())

	store := memory.NewContentStorage()
	svc := NewService(store, client, nopLogger())
	c1 := seedContent(t, store, "Old")

	err := svc.UpdateAndNotify(context.Background(), c1.ID, model.ContentUpdateRequest{Title: "New", Body: "b"}, uuid.New())
	require.Error(t, err)
	assert.True(t, failure.IsCircuitOpen(err), "连续两次503后熔断器打开")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	saved, _ := store.GetContent(context.Background(), c1.ID)
	assert.Equal(t, "New", saved.Title)

	// 内容不存在：零下游调用
	err = svc.UpdateAndNotify(context.Background(), uuid.New(), model.ContentUpdateRequest{Title: "x", Body: "y"}, uuid.New())
	assert.True(t, failure.IsNotFound(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestContentCRUD(t *testing.T) {
	store := memory.NewContentStorage()
	svc := NewService(store, &fakeNotifier{}, nopLogger())
	ctx := context.Background()

	created, err := svc.CreateContent(ctx, model.ContentRequest{Title: "t", Body: "b", CreatedByUserID: uuid.New()})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	owner := uuid.New()
	require.NoError(t, svc.UpdateContent(ctx, created.ID, model.ContentRequest{Title: "t2", Body: "b2", CreatedByUserID: owner}))
	got, err := svc.GetContent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t2", got.Title)
	assert.Equal(t, owner, got.CreatedByUserID)

	list, err := svc.ListContents(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteContent(ctx, created.ID))
	assert.True(t, failure.IsNotFound(svc.DeleteContent(ctx, created.ID)))
	assert.True(t, failure.IsNotFound(svc.UpdateContent(ctx, created.ID, model.ContentRequest{Title: "x", Body: "y"})))
}
