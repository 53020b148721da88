package services

import (
	"context"
	"sync"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/queue"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// NodeLister lists the node IDs that have credentials
type NodeLister interface {
	NodeIDs(ctx context.Context) ([]string, error)
}

// PollerSettings configures the status poller
type PollerSettings struct {
	Interval time.Duration
	Nodes    []string // empty polls every node the lister knows
}

// Poller periodically fetches node statuses and publishes the ones that
// changed since the previous round as status events
type Poller struct {
	logger   *logging.Logger
	source   StatusSource
	lister   NodeLister
	events   *queue.Events
	settings PollerSettings

	mu   sync.Mutex
	last map[string][]byte

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a new Poller
func NewPoller(logger *logging.Logger, source StatusSource, lister NodeLister, events *queue.Events, settings PollerSettings) *Poller {
	if settings.Interval <= 0 {
		settings.Interval = 2 * time.Second
	}
	return &Poller{
		logger:   logger.Component("poller"),
		source:   source,
		lister:   lister,
		events:   events,
		settings: settings,
		last:     make(map[string][]byte),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the poll loop in the background
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting status poller", "interval", p.settings.Interval, "nodes", p.settings.Nodes)
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop stops the poll loop and waits for the current round
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	p.logger.Info("Status poller stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.settings.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil {
			p.logger.Warn("Status poll failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one round and returns how many status events were published
func (p *Poller) Poll(ctx context.Context) (int, error) {
	nodes := p.settings.Nodes
	if len(nodes) == 0 {
		ids, err := p.lister.NodeIDs(ctx)
		if err != nil {
			return 0, err
		}
		nodes = ids
	}

	statuses, errs := p.source.GetStatuses(ctx, nodes)
	for node, err := range errs {
		p.logger.Debug("Skipping node", "node", node, "error", err)
	}

	published := 0
	for node, st := range statuses {
		if !p.changed(node, st) {
			continue
		}
		pubCtx, cancel := context.WithTimeout(ctx, utils.EventPublishTimeout)
		err := p.events.PublishStatus(pubCtx, node, st)
		cancel()
		if err != nil {
			p.forget(node)
			continue
		}
		published++
	}
	return published, nil
}

// changed records the shape of st and reports whether it differs from the
// previous round
func (p *Poller) changed(node string, st *models.NodeStatus) bool {
	shape, err := statusShape(map[string]*models.NodeStatus{node: st})
	if err != nil {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.last[node]; ok && string(prev) == string(shape) {
		return false
	}
	p.last[node] = shape
	return true
}

func (p *Poller) forget(node string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.last, node)
}
