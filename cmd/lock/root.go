package lock

import (
	"github.com/spf13/cobra"

	"github.com/reslock/reslock/cmd/util"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/client"
)

var (
	rpcLockMgr manager.ILockManager

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(forceReleaseCmd)
	LockCommands.AddCommand(extendCmd)
	LockCommands.AddCommand(requestCmd)
	LockCommands.AddCommand(infoCmd)
	LockCommands.AddCommand(listCmd)
	LockCommands.AddCommand(historyCmd)
	LockCommands.AddCommand(releaseAllCmd)
	LockCommands.AddCommand(perfTestCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// The acting user, required by all mutating operations
	LockCommands.PersistentFlags().String("user", "", util.WrapString("ID of the acting user"))
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
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
