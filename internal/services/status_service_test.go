package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/ami/amitest"
	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
)

func newStatusService(env *testEnv) *StatusService {
	return NewStatusService(logging.NewNop(), env.nodes, env.transport, env.index, metrics.New(nil), StatusSettings{
		Timeout:           2 * time.Second,
		MaxConcurrency:    4,
		EchoLinkThreshold: 3000000,
	})
}

func serveStatus(s *amitest.Server, node string) {
	s.OnAction("RptStatus", map[string]string{"COMMAND": "XStat", "NODE": node},
		"Node: "+node,
		"Conn: 546051 192.168.1.10 4569 OUT 00:10:05 ESTABLISHED",
		"Conn: 546054 10.0.0.4 4569 IN 01:00:00 ESTABLISHED",
		"Conn: 3123456 0 IN 00:00:30 ESTABLISHED",
		"Conn: 1999 10.0.0.9 4569 OUT 00:00:01 CONNECTING",
		"LinkedNodes: T546051, R546054, T3123456, T546071, T1000",
		"Var: RPT_RXKEYED=1",
		"Var: RPT_TXKEYED=0",
		"Var: cpu_temp=48.3C",
		"Var: ALERT=",
	)
	s.OnAction("RptStatus", map[string]string{"COMMAND": "SawStat", "NODE": node},
		"Conn: 546051 0 120 5",
		"Conn: 546054 1 3 -1",
		"Conn: 3123456 0 -1 -1",
	)
}

func TestGetStatus_AssemblesConnections(t *testing.T) {
	env := newTestEnv(t, "2000")
	serveStatus(env.server("2000"), "2000")
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)

	assert.Equal(t, models.StatusOnline, st.Status)
	assert.True(t, st.IsOnline)
	assert.Equal(t, "WA3XYZ Hub Pittsburgh, PA", st.Info)
	assert.True(t, st.CosKeyed)
	assert.False(t, st.TxKeyed)
	require.NotNil(t, st.CPUTemp)
	assert.Equal(t, "48.3C", *st.CPUTemp)
	require.NotNil(t, st.Alert, "present but empty keys are kept")
	assert.Equal(t, "", *st.Alert)
	assert.Nil(t, st.Weather)
	assert.Nil(t, st.Disk)

	require.Len(t, st.ConnectedNodes, 4)
	ids := make([]string, 0, len(st.ConnectedNodes))
	for _, c := range st.ConnectedNodes {
		ids = append(ids, c.NodeID)
	}
	assert.Equal(t, []string{"546054", "546051", "1999", "3123456"}, ids)

	keyed := st.ConnectedNodes[0]
	assert.Equal(t, "K5ABC Link Node Dallas, TX", keyed.Info)
	assert.Equal(t, models.KeyedYes, keyed.Keyed)
	assert.Equal(t, "000:00:03", keyed.LastKeyed)
	assert.Equal(t, models.DirectionIn, keyed.Direction)
	assert.Equal(t, ModeMonitor, keyed.Mode)

	out := st.ConnectedNodes[1]
	require.NotNil(t, out.IP)
	assert.Equal(t, "192.168.1.10", *out.IP)
	assert.Equal(t, models.KeyedNo, out.Keyed)
	assert.Equal(t, "000:02:00", out.LastKeyed)
	assert.Equal(t, ModeTransceive, out.Mode)

	unknown := st.ConnectedNodes[2]
	assert.Equal(t, "Node 1999", unknown.Info)
	assert.Equal(t, models.KeyedNA, unknown.Keyed, "no SawStat entry")
	assert.Equal(t, models.LastKeyedNever, unknown.LastKeyed)
	assert.Equal(t, ModeUnknown, unknown.Mode)
	assert.Equal(t, "CONNECTING", unknown.LinkState)

	echo := st.ConnectedNodes[3]
	assert.Nil(t, echo.IP)
	assert.Equal(t, ModeTransceive, echo.Mode)
	assert.Equal(t, models.LastKeyedNever, echo.LastKeyed)

	assert.Equal(t, []string{"546071"}, st.LinkedNodes)
}

func TestGetStatus_EchoLinkModeFromThreshold(t *testing.T) {
	env := newTestEnv(t, "2000")
	s := env.server("2000")
	s.OnAction("RptStatus", map[string]string{"COMMAND": "XStat"},
		"Conn: 3123456 0 IN 00:00:30 ESTABLISHED")
	s.OnAction("RptStatus", map[string]string{"COMMAND": "SawStat"})
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	require.Len(t, st.ConnectedNodes, 1)
	assert.Equal(t, ModeEchoLink, st.ConnectedNodes[0].Mode)
	assert.Equal(t, models.LastKeyedNever, st.ConnectedNodes[0].LastKeyed)
}

func TestGetStatus_SawStatFailureKeepsConnections(t *testing.T) {
	env := newTestEnv(t, "2000")
	s := env.server("2000")
	s.OnAction("RptStatus", map[string]string{"COMMAND": "XStat"},
		"Conn: 546051 192.168.1.10 4569 OUT 00:10:05 ESTABLISHED")
	s.Handle(func(r amitest.Request) bool { return r.Get("COMMAND") == "SawStat" },
		func(amitest.Request) amitest.Reply { return amitest.Reply{Hang: true} })
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	assert.True(t, st.IsOnline)
	require.Len(t, st.ConnectedNodes, 1)
	assert.Equal(t, models.KeyedNA, st.ConnectedNodes[0].Keyed)
	assert.Equal(t, models.KeyedNA, st.ConnectedNodes[0].LastKeyed)
}

func TestGetStatus_UnreachableIsDegraded(t *testing.T) {
	env := newTestEnv(t, "2000")
	env.server("2000").HangOn("RptStatus")
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, st.Status)
	assert.False(t, st.IsOnline)
	assert.Empty(t, st.ConnectedNodes)
	assert.NotEmpty(t, st.Error)
	assert.Equal(t, "WA3XYZ Hub Pittsburgh, PA", st.Info)
}

func TestGetStatus_AuthFailure(t *testing.T) {
	s := amitest.NewServer(t, "admin", "secret")
	env := newTestEnv(t)
	env.nodes = nodeconfig.NewStatic(map[string]config.NodeEntry{
		"2000": {Host: s.Addr(), User: "admin", Password: "wrong"},
	}, config.AMIConfig{Port: 5038})
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthFailed, st.Status)
	assert.False(t, st.IsOnline)
}

func TestGetStatus_ConfigurationErrors(t *testing.T) {
	env := newTestEnv(t)
	svc := newStatusService(env)

	_, err := svc.GetStatus(context.Background(), "1234")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, CodeNodeNotConfigured, cfgErr.Code())

	_, err = svc.GetStatus(context.Background(), "9999")
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, CodeNodeIncomplete, cfgErr.Code())
}

func TestGetStatuses_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t, "2000", "2001")
	serveStatus(env.server("2000"), "2000")
	env.server("2001").HangOn("RptStatus")
	svc := newStatusService(env)

	statuses, errs := svc.GetStatuses(context.Background(), []string{"2000", "2001", "4242"})

	require.Len(t, statuses, 2)
	assert.True(t, statuses["2000"].IsOnline)
	assert.False(t, statuses["2001"].IsOnline)
	require.Len(t, errs, 1)
	assert.Contains(t, errs, "4242")
}

func TestGetStatus_ReusesSession(t *testing.T) {
	env := newTestEnv(t, "2000")
	serveStatus(env.server("2000"), "2000")
	svc := newStatusService(env)

	for i := 0; i < 3; i++ {
		_, err := svc.GetStatus(context.Background(), "2000")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, env.server("2000").Logins())
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{-1, models.LastKeyedNever},
		{0, "000:00:00"},
		{59, "000:00:59"},
		{3661, "001:01:01"},
		{360000, "100:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSeconds(tt.secs))
	}
}

func TestGetStatus_StrayLineKeepsHeaders(t *testing.T) {
	env := newTestEnv(t, "2000")
	env.server("2000").OnAction("RptStatus", map[string]string{"COMMAND": "XStat", "NODE": "2000"},
		"Node: 2000",
		"unexpected banner text",
		"Conn: 546051 192.168.1.10 4569 OUT 00:10:05 ESTABLISHED",
		"Var: RPT_TXKEYED=1",
	)
	env.server("2000").OnAction("RptStatus", map[string]string{"COMMAND": "SawStat", "NODE": "2000"})
	svc := newStatusService(env)

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	assert.True(t, st.IsOnline)
	assert.True(t, st.TxKeyed)
	require.Len(t, st.ConnectedNodes, 1)
	assert.Equal(t, "546051", st.ConnectedNodes[0].NodeID)
}

func TestGetStatus_ShellTransportReadsXNode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "asterisk")
	body := "#!/bin/sh\n" +
		"[ \"$2\" = \"rpt xnode 2000\" ] || exit 1\n" +
		"printf '%s\\n' '546054 73.6.70.88 0 OUT 31:49:24 ESTABLISHED ~' '' 'T546054' '' 'RPT_RXKEYED=0' 'RPT_TXKEYED=1'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	env := newTestEnv(t, "2000")
	svc := NewStatusService(logging.NewNop(), env.nodes, ami.NewShellTransport(script, time.Second), env.index, metrics.New(nil), StatusSettings{
		Timeout:           2 * time.Second,
		MaxConcurrency:    1,
		EchoLinkThreshold: 3000000,
	})

	st, err := svc.GetStatus(context.Background(), "2000")
	require.NoError(t, err)
	assert.True(t, st.IsOnline)
	assert.True(t, st.TxKeyed)
	assert.False(t, st.CosKeyed)
	require.Len(t, st.ConnectedNodes, 1)
	c := st.ConnectedNodes[0]
	assert.Equal(t, "546054", c.NodeID)
	assert.Equal(t, "31:49:24", c.Elapsed)
	assert.Equal(t, ModeTransceive, c.Mode)
	assert.Equal(t, models.KeyedNA, c.Keyed, "SawStat is unavailable through the shell")
}
