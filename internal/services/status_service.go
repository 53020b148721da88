package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/parser"
)

// XStat variables copied into NodeStatus
const (
	varRxKeyed = "RPT_RXKEYED"
	varTxKeyed = "RPT_TXKEYED"
	varCPUTemp = "cpu_temp"
	varCPUUp   = "cpu_up"
	varCPULoad = "cpu_load"
	varAlert   = "ALERT"
	varWX      = "WX"
	varDisk    = "DISK"
)

// Link mode names
const (
	ModeTransceive   = "Transceive"
	ModeMonitor      = "Monitor"
	ModeConnecting   = "Connecting"
	ModeLocalMonitor = "Local Monitor"
	ModeEchoLink     = "EchoLink"
	ModeUnknown      = "Unknown"
)

// IdentityIndex resolves node IDs to identity records
type IdentityIndex interface {
	Lookup(nodeID string) (astdb.Record, bool)
	LookupMany(ids []string) map[string]astdb.Record
}

// StatusSettings tunes status aggregation
type StatusSettings struct {
	Timeout           time.Duration // per node, covers acquire and both actions
	MaxConcurrency    int
	EchoLinkThreshold int64
}

// StatusService builds NodeStatus snapshots from XStat and SawStat
type StatusService struct {
	logger   *logging.Logger
	runner   *sessionRunner
	index    IdentityIndex
	metrics  *metrics.Metrics
	settings StatusSettings
	now      func() time.Time
}

// NewStatusService creates a new StatusService
func NewStatusService(
	logger *logging.Logger,
	nodes nodeconfig.Provider,
	transport ami.Transport,
	index IdentityIndex,
	m *metrics.Metrics,
	settings StatusSettings,
) *StatusService {
	if settings.MaxConcurrency < 1 {
		settings.MaxConcurrency = 1
	}
	logger = logger.Component("status")
	return &StatusService{
		logger:   logger,
		runner:   &sessionRunner{nodes: nodes, transport: transport, logger: logger},
		index:    index,
		metrics:  m,
		settings: settings,
		now:      time.Now,
	}
}

// GetStatus fetches the status of one node. Manager failures produce an
// offline status; only configuration problems are returned as errors.
func (s *StatusService) GetStatus(ctx context.Context, node string) (*models.NodeStatus, error) {
	start := time.Now()

	creds, err := s.runner.credentials(ctx, node)
	if err != nil {
		return nil, err
	}

	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	var xstat, sawstat *ami.Response
	var sawErr error
	err = s.runner.with(ctx, creds, func(sess ami.Session) error {
		var err error
		xstat, err = sess.Action(ctx, "RptStatus", ami.P("COMMAND", "XStat"), ami.P("NODE", node))
		if err != nil {
			return err
		}
		if !xstat.OK() {
			return NewServiceError(CodeCommandFailed, fmt.Sprintf("XStat rejected: %s", xstat.Message))
		}
		sawstat, sawErr = sess.Action(ctx, "RptStatus", ami.P("COMMAND", "SawStat"), ami.P("NODE", node))
		return sawErr
	})

	var st *models.NodeStatus
	if xstat == nil || !xstat.OK() {
		st = s.degraded(node, err)
		s.logger.Warn("Node status unavailable", "node", node, "host", creds.Host, "error", err)
	} else {
		if sawErr != nil {
			s.logger.Debug("SawStat unavailable, keyed state unknown", "node", node, "error", sawErr)
			sawstat = nil
		}
		st = s.assemble(node, xstat, sawstat)
	}

	s.metrics.StatusFetch(node, st.IsOnline, time.Since(start))
	return st, nil
}

// GetStatuses fetches several nodes concurrently. A failing node never
// aborts the others; configuration errors are returned per node.
func (s *StatusService) GetStatuses(ctx context.Context, nodes []string) (map[string]*models.NodeStatus, map[string]error) {
	statuses := make(map[string]*models.NodeStatus, len(nodes))
	errs := make(map[string]error)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.settings.MaxConcurrency)

	for _, node := range nodes {
		g.Go(func() error {
			st, err := s.GetStatus(ctx, node)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[node] = err
				return nil
			}
			statuses[node] = st
			return nil
		})
	}
	_ = g.Wait()

	return statuses, errs
}

func (s *StatusService) degraded(node string, err error) *models.NodeStatus {
	st := &models.NodeStatus{
		NodeID:         node,
		Status:         models.StatusOffline,
		Info:           s.nodeInfo(node),
		ConnectedNodes: []models.ConnectedNode{},
		LinkedNodes:    []string{},
		UpdatedAt:      s.now().UTC(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	var authErr *ami.AuthError
	if errors.As(err, &authErr) {
		st.Status = models.StatusAuthFailed
	}
	return st
}

func (s *StatusService) assemble(node string, xstat, sawstat *ami.Response) *models.NodeStatus {
	x := parser.ParseXStat(xstat.Raw)
	var saw map[string]parser.KeyTiming
	if sawstat != nil {
		saw = parser.ParseSawStat(sawstat.Raw)
	}

	st := &models.NodeStatus{
		NodeID:    node,
		Status:    models.StatusOnline,
		IsOnline:  true,
		Info:      s.nodeInfo(node),
		CosKeyed:  x.Vars[varRxKeyed] == "1",
		TxKeyed:   x.Vars[varTxKeyed] == "1",
		CPUTemp:   optionalVar(x, varCPUTemp),
		CPUUptime: optionalVar(x, varCPUUp),
		CPULoad:   optionalVar(x, varCPULoad),
		Alert:     optionalVar(x, varAlert),
		Weather:   optionalVar(x, varWX),
		Disk:      optionalVar(x, varDisk),
		UpdatedAt: s.now().UTC(),
	}

	ids := make([]string, 0, len(x.Conns))
	for _, c := range x.Conns {
		ids = append(ids, c.Node)
	}
	records := s.index.LookupMany(ids)

	type ranked struct {
		conn  models.ConnectedNode
		since int64
	}
	rows := make([]ranked, 0, len(x.Conns))
	for _, c := range x.Conns {
		cn := models.ConnectedNode{
			NodeID:    c.Node,
			Info:      infoOf(c.Node, records),
			Direction: direction(c.Direction),
			LinkState: c.State,
			Elapsed:   c.Elapsed,
			Mode:      s.mode(x, c.Node),
			Keyed:     models.KeyedNA,
			LastKeyed: models.KeyedNA,
		}
		if c.IP != "" {
			ip := c.IP
			cn.IP = &ip
		}

		since := int64(-1)
		if saw != nil {
			cn.LastKeyed = models.LastKeyedNever
			if kt, ok := saw[c.Node]; ok {
				cn.Keyed = models.KeyedNo
				if kt.Keyed {
					cn.Keyed = models.KeyedYes
				}
				if kt.SinceKeyed >= 0 {
					cn.LastKeyed = FormatSeconds(kt.SinceKeyed)
					since = kt.SinceKeyed
				}
			}
		}
		rows = append(rows, ranked{conn: cn, since: since})
	}

	// Most recently keyed first, never keyed last in node order.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.since >= 0) != (b.since >= 0) {
			return a.since >= 0
		}
		if a.since >= 0 && a.since != b.since {
			return a.since < b.since
		}
		return lessNode(a.conn.NodeID, b.conn.NodeID)
	})

	st.ConnectedNodes = make([]models.ConnectedNode, 0, len(rows))
	for _, r := range rows {
		st.ConnectedNodes = append(st.ConnectedNodes, r.conn)
	}
	st.LinkedNodes = x.IndirectNodes()
	return st
}

func (s *StatusService) nodeInfo(node string) string {
	if rec, ok := s.index.Lookup(node); ok {
		return rec.Info()
	}
	return "Node " + node
}

func (s *StatusService) mode(x *parser.XStat, node string) string {
	if m, ok := x.LinkMode(node); ok {
		switch m {
		case parser.ModeTransceive:
			return ModeTransceive
		case parser.ModeReceive:
			return ModeMonitor
		case parser.ModeConnecting:
			return ModeConnecting
		case parser.ModeLocalMonitor:
			return ModeLocalMonitor
		}
	}
	if n, ok := parser.NodeNumber(node); ok && s.settings.EchoLinkThreshold > 0 && n > s.settings.EchoLinkThreshold {
		return ModeEchoLink
	}
	return ModeUnknown
}

func infoOf(node string, records map[string]astdb.Record) string {
	if rec, ok := records[node]; ok {
		return rec.Info()
	}
	return "Node " + node
}

func optionalVar(x *parser.XStat, key string) *string {
	v, ok := x.Var(key)
	if !ok {
		return nil
	}
	return &v
}

func direction(d string) string {
	switch strings.ToUpper(d) {
	case models.DirectionIn:
		return models.DirectionIn
	case models.DirectionOut:
		return models.DirectionOut
	default:
		return models.DirectionUnknown
	}
}

// FormatSeconds renders a duration in seconds as HHH:MM:SS
func FormatSeconds(secs int64) string {
	if secs < 0 {
		return models.LastKeyedNever
	}
	return fmt.Sprintf("%03d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// lessNode orders numeric node IDs numerically, others lexically after them
func lessNode(a, b string) bool {
	na, aok := parser.NodeNumber(a)
	nb, bok := parser.NodeNumber(b)
	switch {
	case aok && bok:
		return na < nb
	case aok != bok:
		return aok
	default:
		return a < b
	}
}
