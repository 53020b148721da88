package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Manage node credentials in the shared etcd registry",
}

// openRegistry connects to the etcd registry named by the console config
func openRegistry() (*nodeconfig.Etcd, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Nodes.Etcd.Endpoints) == 0 {
		return nil, fmt.Errorf("nodes.etcd.endpoints is not configured")
	}
	return nodeconfig.NewEtcd(cfg.Nodes.Etcd, cfg.AMI)
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = reg.Close() }()

		ctx, cancel := requestContext(cmd)
		defer cancel()

		ids, err := reg.NodeIDs(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), ids)
	},
}

var nodeEntry config.NodeEntry

var nodesPutCmd = &cobra.Command{
	Use:   "put <node>",
	Short: "Register or update the manager account of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if nodeEntry.Host == "" || nodeEntry.User == "" || nodeEntry.Password == "" {
			return fmt.Errorf("--host, --user and --passwd are required")
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = reg.Close() }()

		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := reg.Put(ctx, args[0], nodeEntry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "node %s registered\n", args[0])
		return nil
	},
}

var nodesDeleteCmd = &cobra.Command{
	Use:   "delete <node>",
	Short: "Remove a node from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer func() { _ = reg.Close() }()

		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := reg.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "node %s removed\n", args[0])
		return nil
	},
}

func init() {
	f := nodesPutCmd.Flags()
	f.StringVar(&nodeEntry.Host, "host", "", "manager host[:port]")
	f.StringVar(&nodeEntry.User, "user", "", "manager user")
	f.StringVar(&nodeEntry.Password, "passwd", "", "manager secret")

	nodesCmd.AddCommand(nodesListCmd, nodesPutCmd, nodesDeleteCmd)
}
