package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/scheduler"
)

var syncResolve string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local collection with the cloud",
	Long: `Sync signs in with the configured token, compares the local links
with the cloud copy and replays queued clicks.

A conflict is only held for the duration of the command, so pass --resolve
to settle one in the same run:
  local  keep the local links and overwrite the cloud
  cloud  replace the local links with the cloud copy
  merge  union by url, local entries first, then overwrite the cloud`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.mgr.SignedIn() {
			return fmt.Errorf("sync: %w (set token in the config)", linksync.ErrNotSignedIn)
		}

		outcome := cli.signIn
		fmt.Fprintf(cli.out, "sync: %s\n", outcome.Kind)
		if outcome.Kind != linksync.ConflictPending {
			return nil
		}

		conflict := outcome.Conflict
		fmt.Fprintf(cli.out, "local has %d links, cloud has %d\n", len(conflict.Local), len(conflict.Cloud))
		if syncResolve == "" {
			fmt.Fprintln(cli.out, "run again with --resolve local|cloud|merge")
			return nil
		}

		choice, err := linksync.ParseChoice(syncResolve)
		if err != nil {
			return err
		}
		links, err := cli.mgr.Resolve(cmd.Context(), choice)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "resolved with %s: %d links\n", choice, len(links))
		return nil
	},
}

var deltasCmd = &cobra.Command{
	Use:   "deltas",
	Short: "Show clicks waiting to reach the cloud",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, err := cli.mgr.PendingDeltas(cmd.Context())
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cli.out, "no pending clicks")
			return nil
		}

		keys := make([]string, 0, len(pending))
		for k := range pending {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tCLICKS\tURL\tLAST SEEN")
		for _, k := range keys {
			d := pending[k]
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", k, d.Count, d.URL, d.LastSeen.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var deltasFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Replay pending clicks now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cli.mgr.SyncPendingDeltas(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "applied %d, failed %d, %d clicks synced\n", res.Applied, res.Failed, res.Clicks)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay signed in and keep pending clicks flowing",
	Long: `Watch keeps the session open: it replays pending clicks after a short
delay and then periodically, reports writes made by other snl processes,
and flushes immediately on SIGUSR1. Stop it with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch {
		case cli.mgr.ReconcileDue():
			fmt.Fprintln(cli.out, "signed in, cloud unreachable, retrying in the background")
		case cli.mgr.SignedIn():
			fmt.Fprintf(cli.out, "signed in: %s\n", cli.signIn.Kind)
		default:
			fmt.Fprintln(cli.out, "signed out, clicks stay queued locally")
		}

		trigger := make(chan struct{}, 1)
		usr1 := make(chan os.Signal, 1)
		signal.Notify(usr1, syscall.SIGUSR1)
		defer signal.Stop(usr1)

		flusher := scheduler.NewDeltaFlusher(cli.mgr, cli.log, cli.cfg.GetDuration(cfgKeyDeltaSyncDelay),
			cli.cfg.GetDuration(cfgKeyDeltaSyncInterval), trigger)
		flusher.Start(ctx)
		defer flusher.Stop()

		unsubscribe := cli.cache.OnExternalChange(func(key string, _ []byte) {
			cli.log.Info("external change", logger.String("key", key))
			fmt.Fprintf(cli.out, "changed elsewhere: %s\n", key)
		})
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(cli.out, "stopped")
				return nil
			case <-usr1:
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncResolve, "resolve", "", "resolve a conflict: local, cloud or merge")
	deltasCmd.AddCommand(deltasFlushCmd)
}
