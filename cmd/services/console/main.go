package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/cache"
	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/handlers"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/queue"
	"github.com/supermon-ng/supermon-ng/internal/router"
	"github.com/supermon-ng/supermon-ng/internal/services"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Console service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Context for background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	// Node identity database
	index := astdb.NewIndex(cfg.ASTDB.Path, logger)
	index.Reload()
	index.StartAutoReload(ctx, cfg.ASTDB.ReloadInterval)

	// Node credentials
	logger.Info("Loading node configuration", "source", cfg.Nodes.Source)
	nodes, err := nodeconfig.New(cfg.Nodes, cfg.AMI)
	if err != nil {
		logger.Fatal("Failed to load node configuration", "error", err)
	}
	defer func() { _ = nodes.Close() }()

	// Manager transport
	var (
		transport ami.Transport
		pool      *ami.Pool
	)
	if cfg.AMI.Shell.Enabled {
		logger.Warn("Using local asterisk CLI instead of the manager interface", "binary", cfg.AMI.Shell.Binary)
		transport = ami.NewShellTransport(cfg.AMI.Shell.Binary, cfg.Status.Timeout)
	} else {
		pool = ami.NewPool(ami.PoolConfig{
			MaxPerKey:       cfg.AMI.Pool.MaxPerKey,
			IdleTTL:         cfg.AMI.Pool.IdleTTL,
			CleanupInterval: cfg.AMI.Pool.CleanupInterval,
			DialTimeout:     cfg.AMI.DialTimeout,
			ReadTimeout:     cfg.AMI.ReadTimeout,
			CommandInterval: cfg.AMI.CommandInterval,
		}, logger, m)
		defer pool.Close()
		transport = pool.Transport()
	}

	// Lookup dump cache
	lookupCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize cache", "type", cfg.Cache.Type, "error", err)
	}
	defer func() { _ = lookupCache.Close() }()

	// Event queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	events := queue.NewEvents(queueClient, logger, m)

	// Services
	status := services.NewStatusService(logger, nodes, transport, index, m, services.StatusSettings{
		Timeout:           cfg.Status.Timeout,
		MaxConcurrency:    cfg.Status.MaxConcurrency,
		EchoLinkThreshold: int64(cfg.Lookup.EchoLinkThreshold),
	})
	control := services.NewControlService(logger, nodes, transport, events, services.ControlSettings{
		Timeout:     utils.DefaultRequestTimeout,
		ReloadDelay: utils.ReloadCommandDelay,
	})
	lookup := services.NewLookupService(logger, nodes, transport, index, lookupCache, net.DefaultResolver, m, services.LookupSettings{
		EchoLinkThreshold: int64(cfg.Lookup.EchoLinkThreshold),
		IRLPMin:           int64(cfg.Lookup.IRLPMin),
		IRLPMax:           int64(cfg.Lookup.IRLPMax),
		EchoLinkEnabled:   cfg.Lookup.EchoLinkEnabled,
		IRLPEnabled:       cfg.Lookup.IRLPEnabled,
		IRLPCallsPath:     cfg.Lookup.IRLPCallsPath,
		DumpTTL:           cfg.Lookup.DumpTTL,
		Limit:             cfg.Lookup.MaxSearchLimit,
		DNSSuffix:         cfg.Lookup.AllStarDNSSuffix,
	})
	stream := services.NewStreamService(logger, status, services.StreamSettings{
		Interval:      cfg.Server.StreamInterval,
		TimesInterval: cfg.Server.StreamTimesInterval,
	})

	// Background status poller
	var poller *services.Poller
	if cfg.Poller.Enabled {
		poller = services.NewPoller(logger, status, nodes, events, services.PollerSettings{
			Interval: cfg.Poller.Interval,
			Nodes:    cfg.Poller.Nodes,
		})
		poller.Start(ctx)
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	h := handlers.New(logger, handlers.Options{
		Status:         status,
		Stream:         stream,
		Control:        control,
		Lookup:         lookup,
		System:         services.NewSystemService(logger, "/"),
		Index:          index,
		Nodes:          nodes,
		Pool:           poolStats(pool),
		SearchLimit:    cfg.Lookup.SearchLimit,
		MaxSearchLimit: cfg.Lookup.MaxSearchLimit,
	})
	app := router.New(logger, h, m.Handler(), *cfg)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if poller != nil {
		poller.Stop()
	}
	cancel()

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// poolStats keeps a nil pool from becoming a non-nil interface
func poolStats(p *ami.Pool) handlers.PoolStatter {
	if p == nil {
		return nil
	}
	return p
}
