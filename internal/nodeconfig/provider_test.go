package nodeconfig

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/server/v3/embed"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/config"
)

func amiDefaults() config.AMIConfig {
	return config.DefaultConfig().AMI
}

func TestStatic(t *testing.T) {
	p := NewStatic(map[string]config.NodeEntry{
		"546051": {Host: "127.0.0.1", User: "admin", Password: "secret"},
		"546052": {Host: "10.0.0.2:6000", User: "admin", Password: "x"},
		"546053": {Host: "10.0.0.3", User: "admin"},
	}, amiDefaults())
	ctx := context.Background()

	creds, err := p.NodeConfig(ctx, "546051")
	require.NoError(t, err)
	assert.Equal(t, ami.Credentials{Host: "127.0.0.1:5038", User: "admin", Password: "secret"}, creds)

	creds, err = p.NodeConfig(ctx, "546052")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:6000", creds.Host)

	_, err = p.NodeConfig(ctx, "546053")
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = p.NodeConfig(ctx, "999999")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	ids, err := p.NodeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"546051", "546052", "546053"}, ids)
	assert.NoError(t, p.Close())
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := New(config.NodesConfig{Source: "ini"}, amiDefaults())
	assert.Error(t, err)
}

func setupTestEtcd(t *testing.T) []string {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()
	clientURL, _ := url.Parse("http://127.0.0.1:0")
	peerURL, _ := url.Parse("http://127.0.0.1:0")
	cfg.ListenClientUrls = []url.URL{*clientURL}
	cfg.ListenPeerUrls = []url.URL{*peerURL}
	cfg.LogLevel = "error"
	cfg.Logger = "zap"

	e, err := embed.StartEtcd(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		t.Fatal("etcd server took too long to start")
	}
	return []string{e.Clients[0].Addr().String()}
}

func TestEtcd(t *testing.T) {
	endpoints := setupTestEtcd(t)

	p, err := NewEtcd(config.EtcdConfig{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Prefix:      "/supermon-test/nodes",
		CacheTTL:    time.Minute,
	}, amiDefaults())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = p.NodeConfig(ctx, "546051")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	require.NoError(t, p.Put(ctx, "546051", config.NodeEntry{Host: "127.0.0.1", User: "admin", Password: "secret"}))
	require.NoError(t, p.Put(ctx, "546052", config.NodeEntry{Host: "10.0.0.2", User: "admin"}))

	creds, err := p.NodeConfig(ctx, "546051")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5038", creds.Host)

	_, err = p.NodeConfig(ctx, "546052")
	assert.ErrorIs(t, err, ErrIncomplete)

	ids, err := p.NodeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"546051", "546052"}, ids)

	require.NoError(t, p.Put(ctx, "546051", config.NodeEntry{Host: "10.9.9.9", User: "admin", Password: "secret"}))
	creds, err = p.NodeConfig(ctx, "546051")
	require.NoError(t, err)
	assert.Equal(t, "10.9.9.9:5038", creds.Host, "put must invalidate the cached entry")

	require.NoError(t, p.Delete(ctx, "546051"))
	_, err = p.NodeConfig(ctx, "546051")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
