package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
)

// sessionRunner resolves node credentials and lends a manager session to a
// callback, handing it back to the transport afterwards.
type sessionRunner struct {
	nodes     nodeconfig.Provider
	transport ami.Transport
	logger    *logging.Logger
}

// credentials returns a *ConfigurationError when node cannot be resolved
func (r *sessionRunner) credentials(ctx context.Context, node string) (ami.Credentials, error) {
	creds, err := r.nodes.NodeConfig(ctx, node)
	if err != nil {
		return ami.Credentials{}, &ConfigurationError{Node: node, Err: err}
	}
	return creds, nil
}

// with runs fn on a session for creds. A session that saw a transport
// failure or a canceled context is discarded, otherwise it is released.
func (r *sessionRunner) with(ctx context.Context, creds ami.Credentials, fn func(ami.Session) error) error {
	sess, err := r.transport.Acquire(ctx, creds)
	if err != nil {
		return err
	}

	err = fn(sess)
	if poisoned(ctx, err) {
		r.logger.Debug("Discarding manager session", "host", creds.Host, "error", err)
		r.transport.Discard(sess)
	} else {
		r.transport.Release(sess)
	}
	return err
}

// run resolves node and runs fn on one of its sessions
func (r *sessionRunner) run(ctx context.Context, node string, fn func(ami.Session) error) error {
	creds, err := r.credentials(ctx, node)
	if err != nil {
		return err
	}
	return r.with(ctx, creds, fn)
}

// command runs a single CLI command on node and returns its output
func (r *sessionRunner) command(ctx context.Context, node, command string) (string, error) {
	var out string
	err := r.run(ctx, node, func(sess ami.Session) error {
		resp, err := sess.Command(ctx, command)
		if err != nil {
			return err
		}
		if !resp.OK() {
			return NewServiceErrorWithDetails(CodeCommandFailed,
				fmt.Sprintf("command %q rejected: %s", command, resp.Message),
				map[string]interface{}{"node": node})
		}
		out = resp.Text()
		return nil
	})
	return out, err
}

func poisoned(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	var cmdErr *ami.CommandError
	return errors.As(err, &cmdErr) ||
		errors.Is(err, ami.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// transportError converts an AMI failure into a ServiceError for request
// paths that report errors instead of degrading
func transportError(node string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	var cfgErr *ConfigurationError
	if errors.As(err, &svcErr) || errors.As(err, &cfgErr) {
		return err
	}

	details := map[string]interface{}{"node": node, "error": err.Error()}
	var authErr *ami.AuthError
	if errors.As(err, &authErr) {
		return NewServiceErrorWithDetails(CodeAMIAuthFailed, "Manager login rejected", details)
	}
	if errors.Is(err, ami.ErrUnsupportedAction) {
		return NewServiceErrorWithDetails(CodeUnsupported, "Action not supported by the configured transport", details)
	}
	return NewServiceErrorWithDetails(CodeAMIUnavailable, "Manager interface unavailable", details)
}
