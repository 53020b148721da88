package ami

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Session is a borrowed manager session.
type Session interface {
	Command(ctx context.Context, command string) (*Response, error)
	Action(ctx context.Context, name string, params ...Param) (*Response, error)
}

// Transport hands out sessions. Every Session obtained from Acquire must be
// given back through exactly one of Release or Discard.
type Transport interface {
	Acquire(ctx context.Context, creds Credentials) (Session, error)
	// Release returns a session that completed its requests.
	Release(s Session)
	// Discard drops a session after an error or cancellation.
	Discard(s Session)
}

// Transport adapts the pool to the Transport interface.
func (p *Pool) Transport() Transport {
	return poolTransport{p}
}

type poolTransport struct{ p *Pool }

func (t poolTransport) Acquire(ctx context.Context, creds Credentials) (Session, error) {
	conn, err := t.p.Acquire(ctx, creds)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t poolTransport) Release(s Session) {
	if conn, ok := s.(*Conn); ok {
		t.p.Release(conn)
	}
}

func (t poolTransport) Discard(s Session) {
	if conn, ok := s.(*Conn); ok {
		t.p.Discard(conn)
	}
}

// ShellTransport runs commands through the local Asterisk CLI
// (`asterisk -rx`). Credentials are ignored; only the local node is reachable.
type ShellTransport struct {
	Binary  string
	Timeout time.Duration

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewShellTransport creates a shell transport for binary.
func NewShellTransport(binary string, timeout time.Duration) *ShellTransport {
	return &ShellTransport{Binary: binary, Timeout: timeout, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

func (t *ShellTransport) Acquire(ctx context.Context, _ Credentials) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return shellSession{t}, nil
}

func (t *ShellTransport) Release(Session) {}

func (t *ShellTransport) Discard(Session) {}

type shellSession struct{ t *ShellTransport }

func (s shellSession) Command(ctx context.Context, command string) (*Response, error) {
	if s.t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.t.Timeout)
		defer cancel()
	}

	out, err := s.t.run(ctx, s.t.Binary, "-rx", command)
	if err != nil {
		kind := CommandIO
		if ctx.Err() != nil {
			kind = CommandTimeout
		}
		return nil, &CommandError{Action: "Command", Kind: kind, Partial: len(out) > 0, Err: fmt.Errorf("%s -rx %q: %w", s.t.Binary, command, err)}
	}

	text := strings.TrimRight(string(out), "\n")
	resp := &Response{Status: "Success", Raw: text}
	if text != "" {
		resp.Output = strings.Split(text, "\n")
	}
	return resp, nil
}

// Action maps the RptStatus XStat action onto `rpt xnode`. Its output uses
// the xnode layout rather than XStat headers; parser.ParseXStat reads both.
// Other actions are unsupported.
func (s shellSession) Action(ctx context.Context, name string, params ...Param) (*Response, error) {
	if !strings.EqualFold(name, "RptStatus") {
		return nil, ErrUnsupportedAction
	}
	var command, node string
	for _, p := range params {
		switch strings.ToUpper(p.Key) {
		case "COMMAND":
			command = p.Value
		case "NODE":
			node = p.Value
		}
	}
	if !strings.EqualFold(command, "XStat") || node == "" {
		return nil, ErrUnsupportedAction
	}
	return s.Command(ctx, "rpt xnode "+node)
}
