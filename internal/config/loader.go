package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/supermon-ng")
	}

	setDefaults(v)

	v.SetEnvPrefix("SUPERMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.stream_interval", d.Server.StreamInterval)
	v.SetDefault("server.stream_times_interval", d.Server.StreamTimesInterval)

	v.SetDefault("ami.port", d.AMI.Port)
	v.SetDefault("ami.dial_timeout", d.AMI.DialTimeout)
	v.SetDefault("ami.read_timeout", d.AMI.ReadTimeout)
	v.SetDefault("ami.command_interval", d.AMI.CommandInterval)
	v.SetDefault("ami.pool.max_per_key", d.AMI.Pool.MaxPerKey)
	v.SetDefault("ami.pool.idle_ttl", d.AMI.Pool.IdleTTL)
	v.SetDefault("ami.pool.cleanup_interval", d.AMI.Pool.CleanupInterval)
	v.SetDefault("ami.shell.binary", d.AMI.Shell.Binary)

	v.SetDefault("astdb.path", d.ASTDB.Path)

	v.SetDefault("lookup.echolink_threshold", d.Lookup.EchoLinkThreshold)
	v.SetDefault("lookup.irlp_min", d.Lookup.IRLPMin)
	v.SetDefault("lookup.irlp_max", d.Lookup.IRLPMax)
	v.SetDefault("lookup.irlp_enabled", d.Lookup.IRLPEnabled)
	v.SetDefault("lookup.irlp_calls_path", d.Lookup.IRLPCallsPath)
	v.SetDefault("lookup.echolink_enabled", d.Lookup.EchoLinkEnabled)
	v.SetDefault("lookup.dump_ttl", d.Lookup.DumpTTL)
	v.SetDefault("lookup.search_limit", d.Lookup.SearchLimit)
	v.SetDefault("lookup.max_search_limit", d.Lookup.MaxSearchLimit)
	v.SetDefault("lookup.allstar_dns_suffix", d.Lookup.AllStarDNSSuffix)

	v.SetDefault("nodes.source", d.Nodes.Source)
	v.SetDefault("nodes.etcd.endpoints", d.Nodes.Etcd.Endpoints)
	v.SetDefault("nodes.etcd.dial_timeout", d.Nodes.Etcd.DialTimeout)
	v.SetDefault("nodes.etcd.prefix", d.Nodes.Etcd.Prefix)
	v.SetDefault("nodes.etcd.cache_ttl", d.Nodes.Etcd.CacheTTL)

	v.SetDefault("status.timeout", d.Status.Timeout)
	v.SetDefault("status.max_concurrency", d.Status.MaxConcurrency)

	v.SetDefault("poller.interval", d.Poller.Interval)

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.cleanup", d.Cache.Cleanup)

	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.mqtt_client_id", d.Queue.MQTTClientID)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			HTTPPort:            8088,
			StreamInterval:      time.Second,
			StreamTimesInterval: 5 * time.Second,
		},
		AMI: AMIConfig{
			Port:            5038,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     5 * time.Second,
			CommandInterval: 15 * time.Millisecond,
			Pool: AMIPoolConfig{
				MaxPerKey:       4,
				IdleTTL:         60 * time.Second,
				CleanupInterval: 30 * time.Second,
			},
			Shell: ShellConfig{Binary: "asterisk"},
		},
		ASTDB: ASTDBConfig{
			Path: "/var/www/html/supermon-ng/astdb.txt",
		},
		Lookup: LookupConfig{
			EchoLinkThreshold: 3000000,
			IRLPMin:           80000,
			IRLPMax:           90000,
			IRLPEnabled:       true,
			IRLPCallsPath:     "/tmp/irlpdata.txt.gz",
			EchoLinkEnabled:   true,
			DumpTTL:           5 * time.Minute,
			SearchLimit:       50,
			MaxSearchLimit:    200,
		},
		Nodes: NodesConfig{
			Source: "static",
			Static: map[string]NodeEntry{},
			Etcd: EtcdConfig{
				Endpoints:   []string{"http://localhost:2379"},
				DialTimeout: 5 * time.Second,
				Prefix:      "/supermon/nodes/",
				CacheTTL:    30 * time.Second,
			},
		},
		Status: StatusConfig{
			Timeout:        10 * time.Second,
			MaxConcurrency: 8,
		},
		Poller: PollerConfig{
			Interval: 2 * time.Second,
		},
		Cache: CacheConfig{
			Type:    "memory",
			Prefix:  "supermon:",
			Cleanup: time.Minute,
		},
		Queue: QueueConfig{
			RedisStream:  "supermon",
			RedisGroup:   "supermon-group",
			MQTTClientID: "supermon-ng",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
