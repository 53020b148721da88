package config

import (
	"net"
	"sort"
	"strconv"
)

// HTTPAddress returns the listen address of the HTTP server
func (c *Config) HTTPAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// NodeIDs returns the statically configured node IDs in ascending order
func (c *NodesConfig) NodeIDs() []string {
	ids := make([]string, 0, len(c.Static))
	for id := range c.Static {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HostAddress appends the default AMI port to host when it has none
func (c *AMIConfig) HostAddress(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}
