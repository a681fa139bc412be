package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reslock/reslock/cmd/lock"
	"github.com/reslock/reslock/cmd/serve"
	"github.com/reslock/reslock/cmd/stats"
	"github.com/reslock/reslock/cmd/sweep"
	"github.com/reslock/reslock/cmd/util"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "reslock",
		Short: "time-leased resource lock manager",
		Long: fmt.Sprintf(`reslock (v%s)

A lock manager for exclusive resource editing, written in Go.
Locks are time-leased, carry a full audit history and can be
tracked with session heartbeats.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of reslock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reslock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(sweep.SweepCommands)
	RootCmd.AddCommand(stats.StatsCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
