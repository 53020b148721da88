package config

import (
	"fmt"
	"time"
)

// Config represents the complete console configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AMI     AMIConfig     `mapstructure:"ami"`
	ASTDB   ASTDBConfig   `mapstructure:"astdb"`
	Lookup  LookupConfig  `mapstructure:"lookup"`
	Nodes   NodesConfig   `mapstructure:"nodes"`
	Status  StatusConfig  `mapstructure:"status"`
	Poller  PollerConfig  `mapstructure:"poller"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
	// StreamInterval is how often the SSE stream re-polls node status
	StreamInterval time.Duration `mapstructure:"stream_interval"`
	// StreamTimesInterval is how often the SSE stream emits nodetimes events
	StreamTimesInterval time.Duration `mapstructure:"stream_times_interval"`
}

// AMIConfig represents Asterisk Manager Interface client configuration
type AMIConfig struct {
	Port            int           `mapstructure:"port"`             // Default port when a host has none (5038)
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`     // TCP connect timeout
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // Per-response read timeout
	CommandInterval time.Duration `mapstructure:"command_interval"` // Minimum spacing between commands per host
	Pool            AMIPoolConfig `mapstructure:"pool"`
	Shell           ShellConfig   `mapstructure:"shell"`
}

// AMIPoolConfig controls session reuse
type AMIPoolConfig struct {
	MaxPerKey       int           `mapstructure:"max_per_key"`      // Checked-out + idle sessions per (host,user,secret)
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`         // Idle sessions older than this are dropped
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"` // Janitor period
}

// ShellConfig enables the local `asterisk -rx` transport instead of AMI
type ShellConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Binary  string `mapstructure:"binary"`
}

// ASTDBConfig represents the node identity database
type ASTDBConfig struct {
	Path           string        `mapstructure:"path"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"` // 0 disables periodic reload
}

// LookupConfig drives callsign/node lookup classification
type LookupConfig struct {
	EchoLinkThreshold int           `mapstructure:"echolink_threshold"` // Node numbers above this are EchoLink
	IRLPMin           int           `mapstructure:"irlp_min"`           // Exclusive lower bound of the IRLP band
	IRLPMax           int           `mapstructure:"irlp_max"`           // Exclusive upper bound of the IRLP band
	IRLPEnabled       bool          `mapstructure:"irlp_enabled"`
	IRLPCallsPath     string        `mapstructure:"irlp_calls_path"` // gzip pipe-delimited IRLP dump
	EchoLinkEnabled   bool          `mapstructure:"echolink_enabled"`
	DumpTTL           time.Duration `mapstructure:"dump_ttl"` // Cache lifetime of EchoLink/IRLP dumps
	SearchLimit       int           `mapstructure:"search_limit"`
	MaxSearchLimit    int           `mapstructure:"max_search_limit"`
	AllStarDNSSuffix  string        `mapstructure:"allstar_dns_suffix"` // Empty disables registration status
}

// NodesConfig tells where per-node AMI credentials come from
type NodesConfig struct {
	Source string               `mapstructure:"source"` // static or etcd
	Static map[string]NodeEntry `mapstructure:"static"`
	Etcd   EtcdConfig           `mapstructure:"etcd"`
}

// NodeEntry holds the AMI credentials of one node
type NodeEntry struct {
	Host     string `mapstructure:"host" json:"host"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"passwd" json:"passwd"`
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Prefix      string        `mapstructure:"prefix"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// StatusConfig bounds status aggregation
type StatusConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`         // Upper bound for one node
	MaxConcurrency int           `mapstructure:"max_concurrency"` // Nodes fetched in parallel
}

// PollerConfig drives the background status poller
type PollerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Nodes    []string      `mapstructure:"nodes"` // Empty means every configured node
}

// CacheConfig represents the lookup cache
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // memory or redis
	URL      string        `mapstructure:"url"`
	Prefix   string        `mapstructure:"prefix"`
	Compress bool          `mapstructure:"compress"` // snappy-compress values stored in redis
	Cleanup  time.Duration `mapstructure:"cleanup"`
}

// QueueConfig represents event publishing configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"` // nats, redis, kafka, mqtt, memory; empty disables
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"`
	RedisGroup  string `mapstructure:"redis_group"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`

	MQTTClientID string `mapstructure:"mqtt_client_id"`
	MQTTQoS      byte   `mapstructure:"mqtt_qos"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.AMI.Validate(); err != nil {
		return fmt.Errorf("ami config: %w", err)
	}
	if err := c.Lookup.Validate(); err != nil {
		return fmt.Errorf("lookup config: %w", err)
	}
	if err := c.Nodes.Validate(); err != nil {
		return fmt.Errorf("nodes config: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("status config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	if c.Poller.Enabled && c.Poller.Interval <= 0 {
		return fmt.Errorf("poller config: interval must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("stream_interval must be positive")
	}
	return nil
}

// Validate validates AMI configuration
func (c *AMIConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}
	if c.CommandInterval < 0 {
		return fmt.Errorf("command_interval cannot be negative")
	}
	if c.Pool.MaxPerKey < 1 {
		return fmt.Errorf("pool.max_per_key must be at least 1")
	}
	if c.Pool.IdleTTL <= 0 {
		return fmt.Errorf("pool.idle_ttl must be positive")
	}
	if c.Shell.Enabled && c.Shell.Binary == "" {
		return fmt.Errorf("shell.binary is required when shell transport is enabled")
	}
	return nil
}

// Validate validates lookup configuration
func (c *LookupConfig) Validate() error {
	if c.IRLPMin >= c.IRLPMax {
		return fmt.Errorf("irlp_min must be below irlp_max")
	}
	if c.EchoLinkThreshold <= c.IRLPMax {
		return fmt.Errorf("echolink_threshold must be above the IRLP band")
	}
	if c.SearchLimit < 1 || c.SearchLimit > c.MaxSearchLimit {
		return fmt.Errorf("search_limit must be between 1 and max_search_limit")
	}
	return nil
}

// Validate validates the node credential source
func (c *NodesConfig) Validate() error {
	switch c.Source {
	case "static", "":
		for id, n := range c.Static {
			if n.Host == "" {
				return fmt.Errorf("node %s: host is required", id)
			}
		}
	case "etcd":
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd.endpoints is required")
		}
		if c.Etcd.DialTimeout <= 0 {
			return fmt.Errorf("etcd.dial_timeout must be positive")
		}
	default:
		return fmt.Errorf("source must be 'static' or 'etcd'")
	}
	return nil
}

// Validate validates status aggregation limits
func (c *StatusConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1")
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory", "":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("url is required for redis cache")
		}
	default:
		return fmt.Errorf("type must be 'memory' or 'redis'")
	}
	return nil
}

// Validate validates event queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
	case "nats", "redis", "mqtt":
		if c.URL == "" {
			return fmt.Errorf("url is required for %s queue", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka_brokers is required for kafka queue")
		}
	default:
		return fmt.Errorf("type must be one of: nats, redis, kafka, mqtt, memory")
	}
	if c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt_qos must be 0, 1 or 2")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
