package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	roadmapsync "github.com/openroadmap/roadmap/internal/sync"
)

var watchCmd = &cobra.Command{
	Use:   "watch <roadmap-id>...",
	Short: "Keep roadmap snapshots fresh by refreshing them in the background",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		refresher := roadmapsync.New(eng, interval)
		for _, id := range args {
			refresher.Register(id)
		}
		refresher.Start()
		defer refresher.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		fmt.Fprintf(os.Stderr, "watching %d roadmap(s) every %s; ctrl-c to stop\n",
			len(args), interval)

		for {
			select {
			case res := <-refresher.Results():
				printRefreshResult(res)
			case <-sigCh:
				return nil
			}
		}
	},
}

func printRefreshResult(res roadmapsync.Result) {
	stamp := time.Now().Format("15:04:05")
	switch {
	case res.CredentialMissing:
		fmt.Printf("%s  %-12s no credential stored; run 'roadmapctl config set' to reconfigure\n",
			stamp, res.RoadmapID)
	case res.Err != nil:
		fmt.Printf("%s  %-12s refresh failed: %v\n", stamp, res.RoadmapID, res.Err)
	case res.Stale:
		fmt.Printf("%s  %-12s %d items (stale: %s)\n",
			stamp, res.RoadmapID, res.ItemCount, res.Warning)
	default:
		fmt.Printf("%s  %-12s %d items\n", stamp, res.RoadmapID, res.ItemCount)
	}
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Minute, "how often to re-read each roadmap")
}
