// Package ami implements an Asterisk Manager Interface client: a single
// authenticated session (Conn) and a keyed pool of reusable sessions (Pool).
package ami

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
)

const bannerPrefix = "Asterisk Call Manager"

// State is the lifecycle position of a Conn.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateReady
	StateCommandPending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateCommandPending:
		return "command_pending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Conn.
type Options struct {
	DialTimeout time.Duration
	ReadTimeout time.Duration
	// Limiter paces requests; nil means unpaced.
	Limiter *rate.Limiter
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Conn is one AMI session. A Conn serves one request at a time; a second
// concurrent request fails with ErrConnBusy instead of interleaving frames.
type Conn struct {
	host   string
	user   string
	banner string

	nc net.Conn
	r  *bufio.Reader
	w  *bufio.Writer

	state    atomic.Int32
	busy     sync.Mutex
	lastUsed atomic.Int64

	readTimeout time.Duration
	limiter     *rate.Limiter
	logger      *logging.Logger
	metrics     *metrics.Metrics

	// set by Pool
	entry      *poolEntry
	checkedOut atomic.Bool
}

// Dial opens a TCP session to host and reads the manager banner.
func Dial(ctx context.Context, host string, opts Options) (*Conn, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Global()
	}
	c := &Conn{
		host:        host,
		readTimeout: opts.ReadTimeout,
		limiter:     opts.Limiter,
		logger:      opts.Logger.Component("ami").With("host", host),
		metrics:     opts.Metrics,
	}
	c.setState(StateConnecting)

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		c.setState(StateClosed)
		ce := classifyDialError(host, err)
		c.metrics.AMIError("connect_" + string(ce.Kind))
		return nil, ce
	}
	c.nc = nc
	c.r = bufio.NewReader(nc)
	c.w = bufio.NewWriter(nc)

	if err := nc.SetReadDeadline(c.deadline(ctx)); err != nil {
		c.Close()
		return nil, &ConnectError{Host: host, Kind: ConnectOther, Err: err}
	}
	banner, err := c.r.ReadString('\n')
	if err != nil {
		c.Close()
		ce := classifyDialError(host, err)
		c.metrics.AMIError("connect_" + string(ce.Kind))
		return nil, ce
	}
	banner = strings.TrimSpace(banner)
	if !strings.HasPrefix(banner, bannerPrefix) {
		c.Close()
		c.metrics.AMIError("connect_protocol")
		return nil, &ConnectError{Host: host, Kind: ConnectProtocol, Err: fmt.Errorf("unexpected banner %q", banner)}
	}
	_ = nc.SetReadDeadline(time.Time{})

	c.banner = banner
	c.touch()
	c.setState(StateConnected)
	c.logger.Debug("Connected to manager", "banner", banner)
	return c, nil
}

// Login authenticates the session. Any failure closes the connection.
func (c *Conn) Login(ctx context.Context, user, secret string) error {
	if !c.busy.TryLock() {
		return ErrConnBusy
	}
	defer c.busy.Unlock()

	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateAuthenticating)) {
		if c.State() == StateClosed {
			return ErrClosed
		}
		return fmt.Errorf("ami: login in state %s", c.State())
	}
	c.user = user

	params := []Param{
		P("Username", user),
		P("Secret", secret),
		P("Events", "off"),
	}
	if err := checkAction("Login", params); err != nil {
		c.Close()
		return &AuthError{Host: c.host, User: user, Message: "invalid credentials", Err: err}
	}
	resp, err := c.roundTrip(ctx, "Login", params)
	if err != nil {
		c.Close()
		c.metrics.AMIError("auth")
		return &AuthError{Host: c.host, User: user, Message: "no confirmation from manager", Err: err}
	}
	if resp.Status != "Success" {
		c.Close()
		c.metrics.AMIError("auth")
		msg := resp.Message
		if msg == "" {
			msg = "response " + resp.Status
		}
		return &AuthError{Host: c.host, User: user, Message: msg}
	}

	c.setState(StateReady)
	c.logger.Debug("Authenticated", "user", user)
	return nil
}

// Command runs a CLI command through the Command action.
func (c *Conn) Command(ctx context.Context, command string) (*Response, error) {
	return c.request(ctx, "Command", []Param{P("Command", command)})
}

// Action sends an arbitrary manager action with ordered parameters.
func (c *Conn) Action(ctx context.Context, name string, params ...Param) (*Response, error) {
	return c.request(ctx, name, params)
}

func (c *Conn) request(ctx context.Context, name string, params []Param) (*Response, error) {
	if !c.busy.TryLock() {
		return nil, ErrConnBusy
	}
	defer c.busy.Unlock()

	switch c.State() {
	case StateReady:
	case StateClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotReady
	}

	if err := checkAction(name, params); err != nil {
		c.metrics.AMIError(string(CommandMalformed))
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &CommandError{Action: name, Kind: CommandCanceled, Err: err}
		}
	}

	c.setState(StateCommandPending)
	start := time.Now()
	resp, err := c.roundTrip(ctx, name, params)
	c.metrics.AMIRequest(name, time.Since(start))
	if err != nil {
		c.Close()
		var ce *CommandError
		if errors.As(err, &ce) {
			c.metrics.AMIError(string(ce.Kind))
		}
		c.logger.Warn("AMI request failed, closing session", "action", name, "error", err)
		return nil, err
	}
	if resp.Status == "Goodbye" {
		c.Close()
		return nil, &CommandError{Action: name, Kind: CommandIO, Partial: true, Err: ErrClosed}
	}

	c.setState(StateReady)
	c.touch()
	return resp, nil
}

// roundTrip writes one action and reads until the reply carrying the same
// ActionID. Unsolicited event blocks are skipped.
func (c *Conn) roundTrip(ctx context.Context, name string, params []Param) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CommandError{Action: name, Kind: CommandCanceled, Err: err}
	}

	_ = c.nc.SetDeadline(c.deadline(ctx))
	stop := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	actionID := uuid.NewString()
	if err := writeAction(c.w, name, actionID, params); err != nil {
		return nil, classifyReadError(ctx, name, false, err)
	}

	total := 0
	for {
		resp, n, err := readMessage(c.r)
		total += n
		if err != nil {
			return nil, classifyReadError(ctx, name, total > 0, err)
		}
		if resp.isEvent() {
			continue
		}
		if resp.ActionID == actionID || (resp.ActionID == "" && resp.Status != "") {
			_ = c.nc.SetDeadline(time.Time{})
			return resp, nil
		}
	}
}

func (c *Conn) deadline(ctx context.Context) time.Time {
	timeout := c.readTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// Alive reports whether the session is ready and the peer has not closed the
// stream. It performs a non-blocking peek and never consumes data.
func (c *Conn) Alive() bool {
	if c.State() != StateReady {
		return false
	}
	if !c.busy.TryLock() {
		return false
	}
	defer c.busy.Unlock()

	_ = c.nc.SetReadDeadline(time.Now().Add(time.Millisecond))
	_, err := c.r.Peek(1)
	_ = c.nc.SetReadDeadline(time.Time{})

	var netErr net.Error
	if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		return true
	}
	c.Close()
	return false
}

// Healthy reports whether the session can serve another request.
func (c *Conn) Healthy() bool {
	return c.State() == StateReady
}

// Logoff sends a best-effort Logoff and closes the connection.
func (c *Conn) Logoff(ctx context.Context) {
	if c.State() == StateReady && c.busy.TryLock() {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		_, _ = c.roundTrip(ctx, "Logoff", nil)
		cancel()
		c.busy.Unlock()
	}
	c.Close()
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() {
	if State(c.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	if c.nc != nil {
		_ = c.nc.Close()
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// Host returns the manager address.
func (c *Conn) Host() string { return c.host }

// User returns the authenticated user, empty before Login.
func (c *Conn) User() string { return c.user }

// Banner returns the manager greeting.
func (c *Conn) Banner() string { return c.banner }

// LastUsed returns when the session last completed a request.
func (c *Conn) LastUsed() time.Time { return time.Unix(0, c.lastUsed.Load()) }

func (c *Conn) touch() { c.lastUsed.Store(time.Now().UnixNano()) }

func (c *Conn) setState(s State) {
	for {
		cur := c.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}
