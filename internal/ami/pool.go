package ami

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
)

// Credentials identify one manager account. They are also the pool key.
type Credentials struct {
	Host     string
	User     string
	Password string
}

// String omits the password.
func (c Credentials) String() string {
	return c.User + "@" + c.Host
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// MaxPerKey bounds checked-out plus idle sessions per Credentials.
	MaxPerKey int
	// IdleTTL is how long a session may sit idle before it is dropped.
	IdleTTL time.Duration
	// CleanupInterval is the janitor period; zero disables the janitor.
	CleanupInterval time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	// CommandInterval is the minimum spacing between requests to one key.
	CommandInterval time.Duration
}

type poolEntry struct {
	creds Credentials
	// slots holds one token per live session, idle or checked out.
	slots chan struct{}
	// idle is a LIFO stack.
	idle []*Conn
	// wake is closed whenever a session is returned to idle.
	wake    chan struct{}
	limiter *rate.Limiter
}

// PoolStats is a point-in-time view of one pool key.
type PoolStats struct {
	Key   string `json:"key"`
	Idle  int    `json:"idle"`
	InUse int    `json:"in_use"`
	Max   int    `json:"max"`
}

// Pool reuses authenticated sessions keyed by Credentials. A session is
// handed to exactly one caller at a time.
type Pool struct {
	cfg     PoolConfig
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[Credentials]*poolEntry
	closed  bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPool creates a pool and starts its janitor.
func NewPool(cfg PoolConfig, logger *logging.Logger, m *metrics.Metrics) *Pool {
	if cfg.MaxPerKey < 1 {
		cfg.MaxPerKey = 1
	}
	if logger == nil {
		logger = logging.Global()
	}
	p := &Pool{
		cfg:     cfg,
		logger:  logger.Component("ami_pool"),
		metrics: m,
		entries: make(map[Credentials]*poolEntry),
		stopCh:  make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		p.wg.Add(1)
		go p.cleanupLoop()
	}
	return p
}

// Acquire returns an authenticated session for creds, reusing an idle one
// when it is fresh and alive, otherwise dialing a new one. It blocks while
// the key is at capacity, until a session is returned or ctx is done.
func (p *Pool) Acquire(ctx context.Context, creds Credentials) (*Conn, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		e := p.entryLocked(creds)
		var conn *Conn
		if n := len(e.idle); n > 0 {
			conn = e.idle[n-1]
			e.idle[n-1] = nil
			e.idle = e.idle[:n-1]
		}
		wake := e.wake
		p.mu.Unlock()

		if conn != nil {
			if time.Since(conn.LastUsed()) > p.cfg.IdleTTL {
				p.drop(conn, "expired")
				continue
			}
			if !conn.Alive() {
				p.drop(conn, "dead")
				continue
			}
			conn.checkedOut.Store(true)
			p.metrics.PoolAcquire("hit")
			return conn, nil
		}

		select {
		case e.slots <- struct{}{}:
			conn, err := p.open(ctx, e)
			if err != nil {
				<-e.slots
				p.metrics.PoolAcquire("error")
				return nil, err
			}
			conn.checkedOut.Store(true)
			p.metrics.PoolAcquire("miss")
			return conn, nil
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a session to the pool. Sessions that are no longer
// healthy are discarded instead.
func (p *Pool) Release(conn *Conn) {
	if conn == nil || !conn.checkedOut.CompareAndSwap(true, false) {
		return
	}
	if !conn.Healthy() {
		p.drop(conn, "unhealthy")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.drop(conn, "pool_closed")
		return
	}
	e := conn.entry
	e.idle = append(e.idle, conn)
	close(e.wake)
	e.wake = make(chan struct{})
	p.mu.Unlock()
}

// Discard closes a checked-out session and frees its slot.
func (p *Pool) Discard(conn *Conn) {
	if conn == nil || !conn.checkedOut.CompareAndSwap(true, false) {
		return
	}
	p.drop(conn, "discarded")
}

func (p *Pool) drop(conn *Conn, reason string) {
	conn.Close()
	select {
	case <-conn.entry.slots:
	default:
	}
	p.metrics.PoolDiscard(reason)
	p.logger.Debug("Dropped AMI session", "key", conn.entry.creds.String(), "reason", reason)
}

func (p *Pool) open(ctx context.Context, e *poolEntry) (*Conn, error) {
	conn, err := Dial(ctx, e.creds.Host, Options{
		DialTimeout: p.cfg.DialTimeout,
		ReadTimeout: p.cfg.ReadTimeout,
		Limiter:     e.limiter,
		Logger:      p.logger,
		Metrics:     p.metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Login(ctx, e.creds.User, e.creds.Password); err != nil {
		return nil, err
	}
	conn.entry = e
	return conn, nil
}

func (p *Pool) entryLocked(creds Credentials) *poolEntry {
	e, ok := p.entries[creds]
	if ok {
		return e
	}
	e = &poolEntry{
		creds: creds,
		slots: make(chan struct{}, p.cfg.MaxPerKey),
		wake:  make(chan struct{}),
	}
	if p.cfg.CommandInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(p.cfg.CommandInterval), 1)
	}
	p.entries[creds] = e
	return e
}

func (p *Pool) cleanupLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.evictExpired()
		}
	}
}

// evictExpired drops idle sessions older than IdleTTL.
func (p *Pool) evictExpired() {
	var expired []*Conn

	p.mu.Lock()
	for _, e := range p.entries {
		kept := e.idle[:0]
		for _, conn := range e.idle {
			if time.Since(conn.LastUsed()) > p.cfg.IdleTTL {
				expired = append(expired, conn)
			} else {
				kept = append(kept, conn)
			}
		}
		for i := len(kept); i < len(e.idle); i++ {
			e.idle[i] = nil
		}
		e.idle = kept
	}
	p.mu.Unlock()

	for _, conn := range expired {
		conn.Logoff(context.Background())
		p.drop(conn, "expired")
	}
}

// Stats returns per-key idle and in-use counts.
func (p *Pool) Stats() []PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PoolStats, 0, len(p.entries))
	for creds, e := range p.entries {
		out = append(out, PoolStats{
			Key:   creds.String(),
			Idle:  len(e.idle),
			InUse: len(e.slots) - len(e.idle),
			Max:   p.cfg.MaxPerKey,
		})
	}
	return out
}

// Close logs off every idle session and stops the janitor. Sessions still
// checked out are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var idle []*Conn
	for _, e := range p.entries {
		idle = append(idle, e.idle...)
		e.idle = nil
		close(e.wake)
		e.wake = make(chan struct{})
	}
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()

	for _, conn := range idle {
		conn.Logoff(context.Background())
		p.drop(conn, "pool_closed")
	}
	p.logger.Info("Closed AMI pool", "sessions", len(idle))
}
