package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/ami/amitest"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
)

const testASTDB = `2000|WA3XYZ|Hub|Pittsburgh, PA
546051|W5GLE|Main Repeater|Austin, TX
546054|K5ABC|Link Node|Dallas, TX
546071|KW5GLE|Backup|Houston, TX
`

// testEnv is one fake manager per configured node behind a real pool
type testEnv struct {
	servers   map[string]*amitest.Server
	nodes     nodeconfig.Provider
	pool      *ami.Pool
	transport ami.Transport
	index     *astdb.Index
}

func newTestEnv(t *testing.T, nodeIDs ...string) *testEnv {
	t.Helper()

	env := &testEnv{servers: make(map[string]*amitest.Server)}
	entries := make(map[string]config.NodeEntry, len(nodeIDs))
	for _, id := range nodeIDs {
		s := amitest.NewServer(t, "admin", "secret")
		env.servers[id] = s
		entries[id] = config.NodeEntry{Host: s.Addr(), User: "admin", Password: "secret"}
	}
	// configured but incomplete
	entries["9999"] = config.NodeEntry{Host: "127.0.0.1"}

	env.nodes = nodeconfig.NewStatic(entries, config.AMIConfig{Port: 5038})
	env.pool = ami.NewPool(ami.PoolConfig{
		MaxPerKey:   2,
		IdleTTL:     time.Minute,
		DialTimeout: time.Second,
		ReadTimeout: 300 * time.Millisecond,
	}, logging.NewNop(), metrics.New(nil))
	t.Cleanup(env.pool.Close)
	env.transport = env.pool.Transport()

	env.index = astdb.NewIndex("", logging.NewNop())
	require.NoError(t, env.index.Load(strings.NewReader(testASTDB)))
	return env
}

func (e *testEnv) server(id string) *amitest.Server {
	return e.servers[id]
}
