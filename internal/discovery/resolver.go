package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/etcdclient"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// InstanceLister 从注册中心查询服务实例
type InstanceLister interface {
	GetServiceInstances(ctx context.Context, serviceName string) ([]*etcdclient.ServiceInstance, error)
}

// Resolver 解析用户服务地址
//
// 解析顺序：注册中心中的实例 -> DNS SRV记录 -> 配置的base_url。
type Resolver struct {
	serviceName string
	instances   InstanceLister
	dnsServer   string
	srvName     string
	fallback    string
	timeout     time.Duration
	logger      config.Logger
}

// NewResolver 创建解析器
func NewResolver(cfg *config.Config, logger config.Logger) *Resolver {
	return &Resolver{
		serviceName: cfg.UserService.Name,
		dnsServer:   cfg.UserService.DNSServer,
		srvName:     cfg.UserService.SRVName,
		fallback:    cfg.UserService.BaseURL,
		timeout:     5 * time.Second,
		logger:      logger,
	}
}

// WithInstances 优先从注册中心查询实例
func (r *Resolver) WithInstances(lister InstanceLister) *Resolver {
	r.instances = lister
	return r
}

// ResolveBaseURL 返回用户服务的基础地址
func (r *Resolver) ResolveBaseURL(ctx context.Context) string {
	if r.instances != nil && r.serviceName != "" {
		inst, err := r.lookupInstance(ctx)
		if err == nil {
			baseURL := "http://" + net.JoinHostPort(inst.Address, strconv.Itoa(inst.Port))
			r.logger.Info("通过注册中心解析用户服务",
				zap.String("service", r.serviceName),
				zap.String("instance_id", inst.InstanceID),
				zap.String("base_url", baseURL))
			return baseURL
		}
		r.logger.Warn("注册中心中没有可用实例", zap.String("service", r.serviceName), zap.Error(err))
	}

	if r.dnsServer == "" || r.srvName == "" {
		return r.fallback
	}

	srv, err := r.lookupSRV(ctx)
	if err != nil {
		r.logger.Warn("SRV解析失败，使用配置的地址",
			zap.String("srv", r.srvName),
			zap.String("fallback", r.fallback),
			zap.Error(err))
		return r.fallback
	}

	baseURL := fmt.Sprintf("http://%s:%d", strings.TrimSuffix(srv.Target, "."), srv.Port)
	r.logger.Info("通过SRV记录解析用户服务", zap.String("srv", r.srvName), zap.String("base_url", baseURL))
	return baseURL
}

// lookupSRV 查询SRV记录，返回优先级最高（数值最小）、权重最大的记录
func (r *Resolver) lookupSRV(ctx context.Context) (*dns.SRV, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(r.srvName), dns.TypeSRV)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: r.timeout}
	resp, _, err := c.ExchangeContext(ctx, m, r.dnsServer)
	if err != nil {
		return nil, fmt.Errorf("查询SRV记录[%s]失败: %w", r.srvName, err)
	}
	if resp == nil || resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("未找到SRV记录[%s]", r.srvName)
	}

	var records []*dns.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("未找到SRV记录[%s]", r.srvName)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})
	return records[0], nil
}

// lookupInstance 查询注册中心，按实例ID排序取第一个，保证多次解析结果一致
func (r *Resolver) lookupInstance(ctx context.Context) (*etcdclient.ServiceInstance, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	instances, err := r.instances.GetServiceInstances(ctx, r.serviceName)
	if err != nil {
		return nil, err
	}

	var usable []*etcdclient.ServiceInstance
	for _, inst := range instances {
		if inst.Address != "" && inst.Port > 0 {
			usable = append(usable, inst)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("服务[%s]没有已注册的实例", r.serviceName)
	}

	sort.Slice(usable, func(i, j int) bool {
		return usable[i].InstanceID < usable[j].InstanceID
	})
	return usable[0], nil
}
