// Package discovery 管理服务实例在注册中心的生命周期
package discovery

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hewenyu/contentmesh/internal/config"
)

// Check 健康检查定义
type Check struct {
	HTTP                    string        // 健康检查地址
	Interval                time.Duration // 检查间隔
	Timeout                 time.Duration // 单次检查超时
	DeregisterCriticalAfter time.Duration // 持续不健康超过该时长后从注册中心移除
}

// Registration 服务实例注册信息
type Registration struct {
	ID      string
	Name    string
	Address string
	Port    int
	Check   Check
}

// NewRegistration 根据配置生成注册信息，实例ID格式为 <服务名>-<uuid>
func NewRegistration(cfg *config.Config) *Registration {
	return &Registration{
		ID:      fmt.Sprintf("%s-%s", cfg.Service.Name, uuid.NewString()),
		Name:    cfg.Service.Name,
		Address: cfg.Service.AdvertiseAddress,
		Port:    cfg.Service.Port,
		Check: Check{
			HTTP:                    cfg.Discovery.HealthURL,
			Interval:                cfg.Discovery.Interval,
			Timeout:                 cfg.Discovery.Timeout,
			DeregisterCriticalAfter: cfg.Discovery.DeregisterCriticalAfter,
		},
	}
}
