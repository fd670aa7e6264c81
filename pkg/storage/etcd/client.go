// Package etcd 提供基于etcd的内容和用户存储
package etcd

import (
	"context"
	"fmt"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// 默认键前缀
const defaultPrefix = "/contentmesh/"

// Client 封装etcd客户端
type Client struct {
	client  *clientv3.Client
	prefix  string
	timeout time.Duration
}

// NewClient 创建新的etcd客户端并测试连接
func NewClient(cfg *config.Config) (*Client, error) {
	dialTimeout := cfg.Etcd.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd地址不能为空")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: dialTimeout,
		Username:    cfg.Etcd.Username,
		Password:    cfg.Etcd.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("连接etcd失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if _, err := client.Status(ctx, cfg.Etcd.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("etcd连接测试失败: %w", err)
	}

	return &Client{
		client:  client,
		prefix:  defaultPrefix,
		timeout: dialTimeout,
	}, nil
}

// Close 关闭etcd客户端连接
func (c *Client) Close() error {
	return c.client.Close()
}

// key 获取记录的完整存储键
func (c *Client) key(kind, id string) string {
	return c.prefix + kind + "/" + id
}

// kindPrefix 获取某类记录的前缀
func (c *Client) kindPrefix(kind string) string {
	return c.prefix + kind + "/"
}
