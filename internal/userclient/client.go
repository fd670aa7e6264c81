package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/hewenyu/contentmesh/internal/resilience"
	"go.uber.org/zap"
)

// API Key请求头
const APIKeyHeader = "X-Api-Key"

// User 用户服务返回的用户记录
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	FullName           string     `json:"fullName"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastContentUpdated *time.Time `json:"lastContentUpdated,omitempty"`
}

// UpdateSignal 通知用户服务内容已更新
type UpdateSignal struct {
	UserID             uuid.UUID `json:"-"`
	LastContentUpdated time.Time `json:"lastContentUpdated"`
}

// Notifier 定义远程通知接口
type Notifier interface {
	// Notify 更新用户的最后内容更新时间
	Notify(ctx context.Context, signal UpdateSignal) error

	// FetchUser 获取用户记录，不存在时返回NotFound错误
	FetchUser(ctx context.Context, userID uuid.UUID) (*User, error)
}

// Client 通过策略管道调用用户服务
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pipeline   *resilience.Pipeline
	logger     config.Logger
}

// NewClient 创建用户服务客户端
// Notify和FetchUser共享同一个pipeline，因此共享同一个熔断器
func NewClient(baseURL, apiKey string, pipeline *resilience.Pipeline, logger config.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		pipeline:   pipeline,
		logger:     logger,
	}
}

// Notify 发送PATCH /api/users/{id}/lastcontentupdated
func (c *Client) Notify(ctx context.Context, signal UpdateSignal) error {
	const op = "notify_user"

	body, err := json.Marshal(signal)
	if err != nil {
		return failure.NewUnexpected(op, fmt.Errorf("序列化请求体失败: %w", err))
	}
	path := fmt.Sprintf("/api/users/%s/lastcontentupdated", signal.UserID)

	err = c.pipeline.Execute(ctx, op, func(ctx context.Context) error {
		resp, err := c.do(ctx, op, http.MethodPatch, path, body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return failure.FromStatus(op, resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("通知用户服务成功", zap.String("user_id", signal.UserID.String()))
	return nil
}

// FetchUser 发送GET /users/{id}
func (c *Client) FetchUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	const op = "fetch_user"

	var user User
	err := c.pipeline.Execute(ctx, op, func(ctx context.Context) error {
		resp, err := c.do(ctx, op, http.MethodGet, "/users/"+userID.String(), nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			_, _ = io.Copy(io.Discard, resp.Body)
			return failure.NewNotFound(op, "用户不存在: %s", userID)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return failure.FromStatus(op, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return failure.NewUnexpected(op, fmt.Errorf("解析用户记录失败: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// do 发送一次HTTP请求，网络错误归类为瞬时错误
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, failure.NewUnexpected(op, fmt.Errorf("创建HTTP请求失败: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure.New(failure.Transient, op, fmt.Errorf("发送HTTP请求失败: %w", err))
	}
	return resp, nil
}
