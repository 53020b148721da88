package ami

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrClosed is returned when using a connection after it was closed.
	ErrClosed = errors.New("ami: connection closed")
	// ErrNotReady is returned when a request is issued before login completed.
	ErrNotReady = errors.New("ami: connection not authenticated")
	// ErrConnBusy is returned when a second request is issued on a connection
	// that is still waiting for a reply.
	ErrConnBusy = errors.New("ami: connection has a request in flight")
	// ErrPoolClosed is returned by Acquire after the pool was closed.
	ErrPoolClosed = errors.New("ami: pool closed")
	// ErrUnsupportedAction is returned by transports that cannot express an action.
	ErrUnsupportedAction = errors.New("ami: action not supported by transport")
)

// ConnectErrorKind classifies connection failures.
type ConnectErrorKind string

const (
	ConnectTimeout  ConnectErrorKind = "timeout"
	ConnectRefused  ConnectErrorKind = "refused"
	ConnectDNS      ConnectErrorKind = "dns"
	ConnectProtocol ConnectErrorKind = "protocol"
	ConnectOther    ConnectErrorKind = "other"
)

// ConnectError is returned when the TCP session or banner exchange fails.
type ConnectError struct {
	Host string
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("ami: connect %s: %s: %v", e.Host, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// AuthError is returned when the manager rejects or does not confirm a login.
type AuthError struct {
	Host    string
	User    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ami: login to %s as %s failed: %s: %v", e.Host, e.User, e.Message, e.Err)
	}
	return fmt.Sprintf("ami: login to %s as %s failed: %s", e.Host, e.User, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CommandErrorKind classifies request failures.
type CommandErrorKind string

const (
	CommandTimeout   CommandErrorKind = "timeout"
	CommandIO        CommandErrorKind = "io"
	CommandMalformed CommandErrorKind = "malformed"
	CommandCanceled  CommandErrorKind = "canceled"
)

// CommandError is returned when a request fails after login. The connection
// that produced it is closed and must not be reused, except for
// CommandMalformed, which is raised before anything is written.
type CommandError struct {
	Action string
	Kind   CommandErrorKind
	// Partial reports whether any reply bytes arrived before the failure.
	// A timeout with Partial == false means the manager sent nothing.
	Partial bool
	Err     error
}

func (e *CommandError) Error() string {
	partial := ""
	if e.Partial {
		partial = " (partial reply)"
	}
	return fmt.Sprintf("ami: %s %s%s: %v", e.Action, e.Kind, partial, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsNoResponse reports whether err is a timeout with no reply bytes at all.
func IsNoResponse(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce) && ce.Kind == CommandTimeout && !ce.Partial
}

func classifyDialError(host string, err error) *ConnectError {
	var dnsErr *net.DNSError
	var netErr net.Error
	kind := ConnectOther
	switch {
	case errors.As(err, &dnsErr):
		kind = ConnectDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnectRefused
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = ConnectTimeout
	}
	return &ConnectError{Host: host, Kind: kind, Err: err}
}

func classifyReadError(ctx context.Context, action string, partial bool, err error) *CommandError {
	var netErr net.Error
	kind := CommandIO
	switch {
	case ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = CommandCanceled
		err = ctx.Err()
	case ctx.Err() != nil:
		kind = CommandTimeout
		err = ctx.Err()
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = CommandTimeout
	}
	return &CommandError{Action: action, Kind: kind, Partial: partial, Err: err}
}
