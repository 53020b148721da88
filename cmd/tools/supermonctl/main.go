// supermonctl is the operator CLI for the supermon-ng console. Read and
// control commands go through the console HTTP API; watch and nodes talk to
// the event queue and the etcd node registry directly.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL    string
	apiKey       string
	configPath   string
	outputFormat string
	timeout      time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "supermonctl",
	Short:         "Operate AllStar nodes through a supermon-ng console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverURL, "server", envOr("SUPERMON_SERVER", "http://127.0.0.1:8088"), "console base URL")
	pf.StringVar(&apiKey, "api-key", os.Getenv("SUPERMON_API_KEY"), "console API key")
	pf.StringVarP(&configPath, "config", "c", "", "console configuration file (watch, nodes)")
	pf.StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml or json")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(statusCmd, lookupCmd, linkCmd, dtmfCmd, reloadCmd, astdbCmd, watchCmd, nodesCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
