package lock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
)

// resourceFromArgs builds the resource reference from the two positional args
func resourceFromArgs(args []string) lock.ResourceRef {
	return lock.NewResourceRef(args[0], args[1])
}

// actingUser reads the required --user flag
func actingUser() (string, error) {
	user := viper.GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

var (
	acquireCmd = &cobra.Command{
		Use:   "acquire [resource-type] [resource-id]",
		Short: "Acquire or renew a lock on a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser()
			if err != nil {
				return err
			}

			duration, _ := cmd.Flags().GetInt64("duration")
			strategy, _ := cmd.Flags().GetString("strategy")
			fields, _ := cmd.Flags().GetString("fields")

			opts := manager.AcquireOptions{
				Duration: time.Duration(duration) * time.Second,
				Strategy: lock.Strategy(strategy),
			}
			if fields != "" {
				opts.Fields = strings.Split(fields, ",")
			}

			result, err := rpcLockMgr.Acquire(resourceFromArgs(args), user, opts)
			if err != nil {
				return fmt.Errorf("failed to acquire lock: %v", err)
			}

			if !result.IsSuccessful() {
				fmt.Printf("acquired=false, locked_by=%s\n", result.GetLockedBy())
				return nil
			}

			fmt.Printf("acquired=true, token=%s, expires_at=%s\n",
				result.Lock.Token, result.Lock.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	releaseCmd = &cobra.Command{
		Use:   "release [resource-type] [resource-id]",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser()
			if err != nil {
				return err
			}
			released, err := rpcLockMgr.Release(resourceFromArgs(args), user)
			if err != nil {
				return fmt.Errorf("failed to release lock: %v", err)
			}
			fmt.Printf("released=%v\n", released)
			return nil
		},
	}

	forceReleaseCmd = &cobra.Command{
		Use:   "force-release [resource-type] [resource-id]",
		Short: "Release a lock regardless of who owns it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser()
			if err != nil {
				return err
			}
			released, err := rpcLockMgr.ForceRelease(resourceFromArgs(args), user)
			if err != nil {
				return fmt.Errorf("failed to force release lock: %v", err)
			}
			fmt.Printf("released=%v\n", released)
			return nil
		},
	}

	extendCmd = &cobra.Command{
		Use:   "extend [resource-type] [resource-id] [seconds]",
		Short: "Extend the lease of an owned lock",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser()
			if err != nil {
				return err
			}
			seconds, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("seconds must be a number: %w", err)
			}
			extended, err := rpcLockMgr.Extend(resourceFromArgs(args), user, time.Duration(seconds)*time.Second)
			if err != nil {
				return fmt.Errorf("failed to extend lock: %v", err)
			}
			fmt.Printf("extended=%v\n", extended)
			return nil
		},
	}

	requestCmd = &cobra.Command{
		Use:   "request [resource-type] [resource-id]",
		Short: "Record a lock request against the current owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser()
			if err != nil {
				return err
			}
			requested, err := rpcLockMgr.RequestLock(resourceFromArgs(args), user)
			if err != nil {
				return fmt.Errorf("failed to request lock: %v", err)
			}
			fmt.Printf("requested=%v\n", requested)
			return nil
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info [resource-type] [resource-id]",
		Short: "Show the active lock on a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, found, err := rpcLockMgr.GetLockInfo(resourceFromArgs(args))
			if err != nil {
				return fmt.Errorf("failed to get lock info: %v", err)
			}
			if !found {
				fmt.Println("locked=false")
				return nil
			}
			fmt.Printf("locked=true, user=%s, strategy=%s, locked_at=%s, expires_at=%s, remaining=%ds\n",
				info.UserID, info.Strategy,
				info.LockedAt.Format(time.RFC3339), info.ExpiresAt.Format(time.RFC3339),
				info.RemainingSeconds)
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List locks (active by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expired, _ := cmd.Flags().GetBool("expired")

			var locks []*lock.Lock
			var err error
			if expired {
				locks, err = rpcLockMgr.ListExpiredLocks()
			} else {
				locks, err = rpcLockMgr.ListActiveLocks()
			}
			if err != nil {
				return fmt.Errorf("failed to list locks: %v", err)
			}

			if len(locks) == 0 {
				fmt.Println("no locks")
				return nil
			}
			for _, l := range locks {
				fmt.Printf("%s:%s user=%s expires_at=%s\n",
					l.Resource.Type, l.Resource.ID, l.UserID, l.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history [resource-type] [resource-id]",
		Short: "Show the audit trail of a resource, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			entries, err := rpcLockMgr.GetHistory(resourceFromArgs(args), limit)
			if err != nil {
				return fmt.Errorf("failed to get history: %v", err)
			}

			if len(entries) == 0 {
				fmt.Println("no history")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s %s user=%s", e.CreatedAt.Format(time.RFC3339), e.Action, e.UserID)
				if e.DurationSeconds != nil {
					line += fmt.Sprintf(" duration=%ds", *e.DurationSeconds)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	releaseAllCmd = &cobra.Command{
		Use:   "release-all",
		Short: "Release all locks, or all locks of one user with --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var count int
			var err error
			if user := viper.GetString("user"); user != "" {
				count, err = rpcLockMgr.ReleaseAllForUser(user)
			} else {
				count, err = rpcLockMgr.ReleaseAll()
			}
			if err != nil {
				return fmt.Errorf("failed to release locks: %v", err)
			}
			fmt.Printf("released=%d\n", count)
			return nil
		},
	}
)

func init() {
	acquireCmd.Flags().Int64("duration", 0, "Lease duration in seconds (0 for the server default)")
	acquireCmd.Flags().String("strategy", "", "Lock strategy (pessimistic, optimistic, hybrid)")
	acquireCmd.Flags().String("fields", "", "Comma-separated list of fields to lock (empty locks the whole resource)")

	listCmd.Flags().Bool("expired", false, "List expired locks instead of active ones")

	historyCmd.Flags().Int("limit", 20, "Maximum number of entries to show (0 for all)")
}
