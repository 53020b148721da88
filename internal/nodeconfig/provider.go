// Package nodeconfig resolves a node ID to the manager account that serves it.
package nodeconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/config"
)

var (
	// ErrNodeNotFound is returned for node IDs with no configuration.
	ErrNodeNotFound = errors.New("node not configured")
	// ErrIncomplete is returned when a node entry lacks host, user or password.
	ErrIncomplete = errors.New("node configuration incomplete")
)

// Provider resolves node credentials.
type Provider interface {
	NodeConfig(ctx context.Context, nodeID string) (ami.Credentials, error)
	NodeIDs(ctx context.Context) ([]string, error)
	Close() error
}

// New creates the provider selected by cfg.Source.
func New(cfg config.NodesConfig, amiCfg config.AMIConfig) (Provider, error) {
	switch cfg.Source {
	case "", "static":
		return NewStatic(cfg.Static, amiCfg), nil
	case "etcd":
		return NewEtcd(cfg.Etcd, amiCfg)
	default:
		return nil, fmt.Errorf("unsupported node source: %s", cfg.Source)
	}
}

func credentials(nodeID string, e config.NodeEntry, amiCfg config.AMIConfig) (ami.Credentials, error) {
	switch {
	case e.Host == "":
		return ami.Credentials{}, fmt.Errorf("%w: node %s has no host", ErrIncomplete, nodeID)
	case e.User == "":
		return ami.Credentials{}, fmt.Errorf("%w: node %s has no user", ErrIncomplete, nodeID)
	case e.Password == "":
		return ami.Credentials{}, fmt.Errorf("%w: node %s has no passwd", ErrIncomplete, nodeID)
	}
	return ami.Credentials{Host: amiCfg.HostAddress(e.Host), User: e.User, Password: e.Password}, nil
}
