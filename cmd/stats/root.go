package stats

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reslock/reslock/cmd/util"
	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/client"
)

var (
	rpcLockMgr manager.ILockManager

	// StatsCmd prints the aggregated lock statistics of a server
	StatsCmd = &cobra.Command{
		Use:     "stats",
		Short:   "Show aggregated lock statistics",
		Args:    cobra.NoArgs,
		PreRunE: setupStatsClient,
		RunE:    runStats,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the stats command
	util.SetupRPCClientFlags(StatsCmd)

	key := "top"
	StatsCmd.Flags().Int(key, 5, util.WrapString("How many of the busiest lock holders to show"))
}

func runStats(_ *cobra.Command, _ []string) error {
	stats, err := rpcLockMgr.GetStats(viper.GetInt("top"))
	if err != nil {
		return fmt.Errorf("failed to get stats: %v", err)
	}

	fmt.Printf("active_locks=%d\n", stats.ActiveLocks)
	fmt.Printf("expired_locks=%d\n", stats.ExpiredLocks)

	// Map iteration order is random, sort for stable output
	strategies := make([]string, 0, len(stats.ByStrategy))
	for s := range stats.ByStrategy {
		strategies = append(strategies, string(s))
	}
	sort.Strings(strategies)
	for _, s := range strategies {
		fmt.Printf("strategy %s=%d\n", s, stats.ByStrategy[lock.Strategy(s)])
	}

	types := make([]string, 0, len(stats.ByResourceType))
	for t := range stats.ByResourceType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("resource %s=%d\n", t, stats.ByResourceType[t])
	}

	for _, u := range stats.TopUsers {
		fmt.Printf("user %s=%d\n", u.UserID, u.Count)
	}

	return nil
}

// setupStatsClient initializes the lock manager client
func setupStatsClient(cmd *cobra.Command, _ []string) error {
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
