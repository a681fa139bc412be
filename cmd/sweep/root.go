package sweep

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reslock/reslock/cmd/util"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/client"
)

var (
	rpcLockMgr manager.ILockManager

	// SweepCommands represents the sweep command group
	SweepCommands = &cobra.Command{
		Use:               "sweep",
		Short:             "Run maintenance sweeps on a lock server",
		PersistentPreRunE: setupSweepClient,
	}

	locksCmd = &cobra.Command{
		Use:   "locks",
		Short: "Purge expired locks and write their audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				locks, err := rpcLockMgr.ListExpiredLocks()
				if err != nil {
					return fmt.Errorf("failed to list expired locks: %v", err)
				}
				fmt.Printf("expired_locks=%d (dry run, nothing purged)\n", len(locks))
				return nil
			}

			count, err := rpcLockMgr.SweepExpiredLocks()
			if err != nil {
				return fmt.Errorf("failed to sweep locks: %v", err)
			}
			fmt.Printf("expired_locks=%d\n", count)
			return nil
		},
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Drop sessions whose heartbeat has gone stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := rpcLockMgr.SweepStaleSessions()
			if err != nil {
				return fmt.Errorf("failed to sweep sessions: %v", err)
			}
			fmt.Printf("stale_sessions=%d\n", count)
			return nil
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Purge audit entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := rpcLockMgr.SweepOldHistory()
			if err != nil {
				return fmt.Errorf("failed to sweep history: %v", err)
			}
			fmt.Printf("purged_history=%d\n", count)
			return nil
		},
	}

	allCmd = &cobra.Command{
		Use:   "all",
		Short: "Run all three sweeps in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := rpcLockMgr.RunAllSweeps()
			if err != nil {
				return fmt.Errorf("failed to run sweeps: %v", err)
			}
			fmt.Printf("expired_locks=%d, stale_sessions=%d, purged_history=%d\n",
				report.ExpiredLocks, report.StaleSessions, report.PurgedHistory)
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to sweep command
	SweepCommands.AddCommand(locksCmd)
	SweepCommands.AddCommand(sessionsCmd)
	SweepCommands.AddCommand(historyCmd)
	SweepCommands.AddCommand(allCmd)

	// Add common RPC flags to the sweep command
	util.SetupRPCClientFlags(SweepCommands)

	locksCmd.Flags().Bool("dry-run", false, "Only count expired locks, do not purge them")
}

// setupSweepClient initializes the lock manager client
func setupSweepClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the lock manager client
	rpcLockMgr, err = client.NewRPCLockManager(
		*config,
		t,
		s,
	)

	return err
}
