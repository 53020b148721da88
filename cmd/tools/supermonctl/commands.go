package main

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supermon-ng/supermon-ng/internal/models"
)

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

var statusCmd = &cobra.Command{
	Use:   "status [node...]",
	Short: "Show node status; every configured node when none are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		c := newAPIClient()
		if len(args) == 1 {
			var st models.NodeStatus
			if err := c.get(ctx, "/v1/nodes/"+args[0]+"/status", nil, &st); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), st)
		}

		q := url.Values{}
		if len(args) > 1 {
			q.Set("nodes", strings.Join(args, ","))
		}
		var resp models.NodeStatusListResponse
		if err := c.get(ctx, "/v1/nodes/status", q, &resp); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), resp)
	},
}

var lookupLocalNode string

var lookupCmd = &cobra.Command{
	Use:   "lookup <callsign|number>",
	Short: "Search AllStar, EchoLink and IRLP directories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		q := url.Values{"q": {args[0]}}
		if lookupLocalNode != "" {
			q.Set("node", lookupLocalNode)
		}
		var resp models.LookupResponse
		if err := newAPIClient().get(ctx, "/v1/lookup", q, &resp); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), resp)
	},
}

var (
	linkAction    string
	linkPermanent bool
)

var linkCmd = &cobra.Command{
	Use:   "link <local> <remote>",
	Short: "Connect, monitor or disconnect a remote node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		req := models.LinkRequest{Remote: args[1], Action: linkAction, Permanent: linkPermanent}
		var res models.CommandResult
		if err := newAPIClient().post(ctx, "/v1/nodes/"+args[0]+"/link", req, &res); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res)
	},
}

var dtmfCmd = &cobra.Command{
	Use:   "dtmf <node> <digits>",
	Short: "Execute a DTMF function on a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		var res models.CommandResult
		if err := newAPIClient().post(ctx, "/v1/nodes/"+args[0]+"/dtmf", models.DTMFRequest{Digits: args[1]}, &res); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res)
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload <node>",
	Short: "Reload rpt, iax2 and extensions configuration on a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		var res models.CommandResult
		if err := newAPIClient().post(ctx, "/v1/nodes/"+args[0]+"/reload", nil, &res); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res)
	},
}

var astdbCmd = &cobra.Command{
	Use:   "astdb",
	Short: "Query the console's node database",
}

var astdbLimit int

var astdbSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search callsigns, descriptions and locations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		q := url.Values{"q": {args[0]}}
		if astdbLimit > 0 {
			q.Set("limit", strconv.Itoa(astdbLimit))
		}
		var resp models.ASTDBSearchResponse
		if err := newAPIClient().get(ctx, "/v1/astdb/search", q, &resp); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), resp)
	},
}

var astdbGetCmd = &cobra.Command{
	Use:   "get <node>",
	Short: "Show one node database entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		var rec models.ASTDBRecord
		if err := newAPIClient().get(ctx, "/v1/astdb/"+args[0], nil, &rec); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), rec)
	},
}

var astdbReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the node database file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		var resp models.ASTDBReloadResponse
		if err := newAPIClient().post(ctx, "/v1/astdb/reload", nil, &resp); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), resp)
	},
}

func init() {
	lookupCmd.Flags().StringVarP(&lookupLocalNode, "node", "n", "", "local node that answers EchoLink queries")

	linkCmd.Flags().StringVarP(&linkAction, "action", "a", models.LinkConnect, "connect, monitor, localmonitor or disconnect")
	linkCmd.Flags().BoolVarP(&linkPermanent, "permanent", "p", false, "permanent link")

	astdbSearchCmd.Flags().IntVarP(&astdbLimit, "limit", "l", 0, "maximum results")
	astdbCmd.AddCommand(astdbSearchCmd, astdbGetCmd, astdbReloadCmd)
}
