package nodeconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/cache"
	"github.com/supermon-ng/supermon-ng/internal/config"
)

// Etcd serves credentials stored as JSON under a key prefix, so several
// console instances share one node registry. Entries are cached briefly.
type Etcd struct {
	client   *clientv3.Client
	prefix   string
	amiCfg   config.AMIConfig
	cache    *cache.Memory
	cacheTTL time.Duration
}

// NewEtcd connects to etcd.
func NewEtcd(cfg config.EtcdConfig, amiCfg config.AMIConfig) (*Etcd, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return newEtcdWithClient(client, cfg.Prefix, cfg.CacheTTL, amiCfg), nil
}

func newEtcdWithClient(client *clientv3.Client, prefix string, ttl time.Duration, amiCfg config.AMIConfig) *Etcd {
	if prefix == "" {
		prefix = "/supermon/nodes/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Etcd{
		client:   client,
		prefix:   prefix,
		amiCfg:   amiCfg,
		cache:    cache.NewMemory(time.Minute),
		cacheTTL: ttl,
	}
}

func (e *Etcd) key(nodeID string) string { return e.prefix + nodeID }

func (e *Etcd) NodeConfig(ctx context.Context, nodeID string) (ami.Credentials, error) {
	var raw []byte
	if e.cacheTTL > 0 {
		raw, _, _ = e.cache.Get(ctx, nodeID)
	}
	if raw == nil {
		resp, err := e.client.Get(ctx, e.key(nodeID))
		if err != nil {
			return ami.Credentials{}, fmt.Errorf("failed to get node %s from etcd: %w", nodeID, err)
		}
		if len(resp.Kvs) == 0 {
			return ami.Credentials{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		raw = resp.Kvs[0].Value
		if e.cacheTTL > 0 {
			_ = e.cache.Set(ctx, nodeID, raw, e.cacheTTL)
		}
	}

	var entry config.NodeEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return ami.Credentials{}, fmt.Errorf("%w: node %s: %v", ErrIncomplete, nodeID, err)
	}
	return credentials(nodeID, entry, e.amiCfg)
}

func (e *Etcd) NodeIDs(ctx context.Context) ([]string, error) {
	resp, err := e.client.Get(ctx, e.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes from etcd: %w", err)
	}
	ids := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id := strings.TrimPrefix(string(kv.Key), e.prefix)
		if id != "" && !strings.Contains(id, "/") {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Put stores the entry of nodeID.
func (e *Etcd) Put(ctx context.Context, nodeID string, entry config.NodeEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal node %s: %w", nodeID, err)
	}
	if _, err := e.client.Put(ctx, e.key(nodeID), string(data)); err != nil {
		return fmt.Errorf("failed to store node %s in etcd: %w", nodeID, err)
	}
	_ = e.cache.Delete(ctx, nodeID)
	return nil
}

// Delete removes nodeID.
func (e *Etcd) Delete(ctx context.Context, nodeID string) error {
	if _, err := e.client.Delete(ctx, e.key(nodeID)); err != nil {
		return fmt.Errorf("failed to delete node %s from etcd: %w", nodeID, err)
	}
	_ = e.cache.Delete(ctx, nodeID)
	return nil
}

func (e *Etcd) Close() error {
	_ = e.cache.Close()
	return e.client.Close()
}
