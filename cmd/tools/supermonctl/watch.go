package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/queue"
)

var watchLinks bool

var watchCmd = &cobra.Command{
	Use:   "watch [node...]",
	Short: "Print status events from the console's event queue",
	Long: `Subscribes to the queue configured in the console configuration file
and prints every status event (and link event with --links) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Queue.Type == "" {
			return fmt.Errorf("no queue is configured")
		}

		q, err := queue.NewQueue(cfg.Queue)
		if err != nil {
			return fmt.Errorf("connect to queue: %w", err)
		}
		defer func() { _ = q.Close() }()

		var mu sync.Mutex
		show := func(data []byte) error {
			ev, err := queue.DecodeEvent(data)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return render(cmd.OutOrStdout(), ev)
		}

		for _, subject := range watchSubjects(args, watchLinks) {
			if err := q.Subscribe(subject, show); err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func watchSubjects(nodes []string, links bool) []string {
	if len(nodes) == 0 {
		subjects := []string{queue.AllStatusSubject()}
		if links {
			subjects = append(subjects, queue.AllLinkSubject())
		}
		return subjects
	}
	subjects := make([]string, 0, 2*len(nodes))
	for _, n := range nodes {
		subjects = append(subjects, queue.StatusSubject(n))
		if links {
			subjects = append(subjects, queue.LinkSubject(n))
		}
	}
	return subjects
}

func init() {
	watchCmd.Flags().BoolVar(&watchLinks, "links", false, "also print link events")
}
