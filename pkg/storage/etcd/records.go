package etcd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hewenyu/contentmesh/pkg/storage"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// errNotFound 记录不存在，由调用方转换为具体的NotFound错误
var errNotFound = fmt.Errorf("记录不存在")

// list 读取某类记录的全部值
func (c *Client) list(ctx context.Context, kind string) ([][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Get(ctx, c.kindPrefix(kind), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("从etcd获取数据失败: %w", err)
	}
	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	return values, nil
}

// get 读取单条记录
func (c *Client) get(ctx context.Context, kind, id string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Get(ctx, c.key(kind, id))
	if err != nil {
		return fmt.Errorf("从etcd获取数据失败: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return errNotFound
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, out); err != nil {
		return fmt.Errorf("解析记录失败: %w", err)
	}
	return nil
}

// create 仅当键不存在时写入
func (c *Client) create(ctx context.Context, kind, id string, v interface{}) error {
	key := c.key(kind, id)
	ok, err := c.txnPut(ctx, key, v, clientv3.Compare(clientv3.CreateRevision(key), "=", 0))
	if err != nil {
		return err
	}
	if !ok {
		return storage.NewInvalidArgumentError(fmt.Sprintf("记录已存在: %s", id))
	}
	return nil
}

// update 仅当键存在时写入
func (c *Client) update(ctx context.Context, kind, id string, v interface{}) error {
	key := c.key(kind, id)
	ok, err := c.txnPut(ctx, key, v, clientv3.Compare(clientv3.CreateRevision(key), ">", 0))
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return nil
}

// remove 删除记录
func (c *Client) remove(ctx context.Context, kind, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Delete(ctx, c.key(kind, id))
	if err != nil {
		return fmt.Errorf("从etcd删除失败: %w", err)
	}
	if resp.Deleted == 0 {
		return errNotFound
	}
	return nil
}

func (c *Client) txnPut(ctx context.Context, key string, v interface{}, cmp clientv3.Cmp) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("序列化记录失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Txn(ctx).If(cmp).Then(clientv3.OpPut(key, string(data))).Commit()
	if err != nil {
		return false, fmt.Errorf("写入etcd失败: %w", err)
	}
	return resp.Succeeded, nil
}
