package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager 服务发现生命周期管理
//
// Start和Stop都是尽力而为：注册中心不可用时只记录日志，服务照常启动和退出。
type Manager struct {
	registry   Registry
	reg        *Registration
	logger     config.Logger
	httpClient *http.Client

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewManager 创建生命周期管理器
func NewManager(registry Registry, reg *Registration, logger config.Logger) *Manager {
	return &Manager{
		registry:   registry,
		reg:        reg,
		logger:     logger.With(zap.String("instance_id", reg.ID)),
		httpClient: &http.Client{Timeout: reg.Check.Timeout},
	}
}

// Registration 返回当前实例的注册信息
func (m *Manager) Registration() *Registration {
	return m.reg
}

// Start 注册实例并启动周期健康检查
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	if err := m.registry.Register(ctx, m.reg); err != nil {
		// 健康检查成功后会重新注册
		m.logger.Warn("服务注册失败，服务继续运行", zap.Error(err))
	} else {
		m.logger.Info("服务已注册",
			zap.String("service", m.reg.Name),
			zap.String("address", m.reg.Address),
			zap.Int("port", m.reg.Port))
	}

	if m.reg.Check.Interval <= 0 {
		return
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %s", m.reg.Check.Interval)
	if _, err := c.AddFunc(spec, m.probe); err != nil {
		m.logger.Error("注册健康检查任务失败", zap.String("spec", spec), zap.Error(err))
		return
	}
	c.Start()
	m.cron = c
	m.logger.Debug("健康检查任务已启动", zap.Duration("interval", m.reg.Check.Interval))
}

// Stop 停止健康检查并注销实例
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false

	if m.cron != nil {
		// 等待正在执行的检查结束
		select {
		case <-m.cron.Stop().Done():
		case <-ctx.Done():
		}
		m.cron = nil
	}

	// 注销受检查超时约束，注册中心不可达时不占用整个关闭时间
	ctx, cancel := context.WithTimeout(ctx, m.checkTimeout())
	defer cancel()
	if err := m.registry.Deregister(ctx, m.reg); err != nil {
		m.logger.Warn("服务注销失败", zap.Error(err))
		return
	}
	m.logger.Info("服务已注销")
}

// probe 执行一次健康检查，成功则向注册中心上报心跳
func (m *Manager) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.checkTimeout())
	defer cancel()

	if err := m.check(ctx); err != nil {
		m.logger.Warn("健康检查失败", zap.String("url", m.reg.Check.HTTP), zap.Error(err))
		return
	}

	if err := m.registry.Heartbeat(ctx, m.reg); err != nil {
		m.logger.Warn("心跳上报失败，将在下一个周期重试", zap.Error(err))
	}
}

func (m *Manager) checkTimeout() time.Duration {
	if m.reg.Check.Timeout <= 0 {
		return 5 * time.Second
	}
	return m.reg.Check.Timeout
}

func (m *Manager) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.reg.Check.HTTP, nil)
	if err != nil {
		return fmt.Errorf("创建健康检查请求失败: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("健康检查请求失败: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("健康检查返回状态码: %d", resp.StatusCode)
	}
	return nil
}
