package nodeconfig

import (
	"context"
	"fmt"
	"sort"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/config"
)

// Static serves credentials from the configuration file.
type Static struct {
	nodes  map[string]config.NodeEntry
	amiCfg config.AMIConfig
}

// NewStatic creates a provider over nodes.
func NewStatic(nodes map[string]config.NodeEntry, amiCfg config.AMIConfig) *Static {
	copied := make(map[string]config.NodeEntry, len(nodes))
	for id, n := range nodes {
		copied[id] = n
	}
	return &Static{nodes: copied, amiCfg: amiCfg}
}

func (s *Static) NodeConfig(_ context.Context, nodeID string) (ami.Credentials, error) {
	e, ok := s.nodes[nodeID]
	if !ok {
		return ami.Credentials{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return credentials(nodeID, e, s.amiCfg)
}

func (s *Static) NodeIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Static) Close() error { return nil }
