package serve

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cmdUtil "github.com/reslock/reslock/cmd/util"
	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/lib/store"
	"github.com/reslock/reslock/lib/store/memstore"
	"github.com/reslock/reslock/lib/store/sqlstore"
	"github.com/reslock/reslock/rpc/common"
	"github.com/reslock/reslock/rpc/serializer"
	"github.com/reslock/reslock/rpc/server"
	"github.com/reslock/reslock/rpc/transport"
	"github.com/reslock/reslock/rpc/transport/http"
	"github.com/reslock/reslock/rpc/transport/tcp"
	"github.com/reslock/reslock/rpc/transport/unix"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	lockCmdConfig  = lock.DefaultConfig()

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the lock server",
		Long:    `Start the lock server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RESLOCK_<flag> (e.g. RESLOCK_ENDPOINT=0.0.0.0:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/reslock.sock, ...)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Request timeout in seconds"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum concurrent workers per client connection (tcp and unix transports)"))

	key = "backend"
	ServeCmd.PersistentFlags().String(key, "memory", cmdUtil.WrapString("Lock backend to use (memory, sqlite)"))

	key = "db-path"
	ServeCmd.PersistentFlags().String(key, "reslock.db", cmdUtil.WrapString("Path of the sqlite database file (only for the sqlite backend)"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("Interval of the built-in maintenance sweeper (0 disables it; sweeps can always be triggered externally)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address for the Prometheus /metrics endpoint (empty disables it)"))

	key = "default-duration"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.DefaultDuration, cmdUtil.WrapString("Lease length used when an acquire does not specify one"))

	key = "min-duration"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.MinDuration, cmdUtil.WrapString("Lower bound for requested lease lengths"))

	key = "max-duration"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.MaxDuration, cmdUtil.WrapString("Upper bound for requested lease lengths"))

	key = "heartbeat-interval"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.HeartbeatInterval, cmdUtil.WrapString("How often clients are expected to send session heartbeats"))

	key = "heartbeat-timeout"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.HeartbeatTimeout, cmdUtil.WrapString("Sessions without a heartbeat for this long count as stale"))

	key = "history-retention"
	ServeCmd.PersistentFlags().Duration(key, lockCmdConfig.HistoryRetention, cmdUtil.WrapString("How long audit entries are kept before the history sweep removes them"))

	key = "history-enabled"
	ServeCmd.PersistentFlags().Bool(key, lockCmdConfig.HistoryEnabled, cmdUtil.WrapString("Whether lock lifecycle transitions are audited"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.Backend = viper.GetString("backend")
	serveCmdConfig.DBPath = viper.GetString("db-path")
	serveCmdConfig.SweepInterval = viper.GetDuration("sweep-interval")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Backend != "memory" && serveCmdConfig.Backend != "sqlite" {
		return fmt.Errorf("invalid backend %s (expected one of: memory, sqlite)", serveCmdConfig.Backend)
	}

	lockCmdConfig.DefaultDuration = viper.GetDuration("default-duration")
	lockCmdConfig.MinDuration = viper.GetDuration("min-duration")
	lockCmdConfig.MaxDuration = viper.GetDuration("max-duration")
	lockCmdConfig.HeartbeatInterval = viper.GetDuration("heartbeat-interval")
	lockCmdConfig.HeartbeatTimeout = viper.GetDuration("heartbeat-timeout")
	lockCmdConfig.HistoryRetention = viper.GetDuration("history-retention")
	lockCmdConfig.HistoryEnabled = viper.GetBool("history-enabled")

	if lockCmdConfig.MinDuration > lockCmdConfig.MaxDuration {
		return fmt.Errorf("min-duration must not exceed max-duration")
	}

	return nil
}

// newLockStore creates the configured lock backend
func newLockStore() (store.ILockStore, error) {
	switch serveCmdConfig.Backend {
	case "memory":
		return memstore.NewMemStore(), nil
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(serveCmdConfig.DBPath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return sqlstore.NewSQLStore(db, lockCmdConfig)
	default:
		return nil, fmt.Errorf("invalid backend %s", serveCmdConfig.Backend)
	}
}

// run starts the lock server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	// Create the lock backend and the manager on top of it
	lockStore, err := newLockStore()
	if err != nil {
		return err
	}
	mgr := manager.New(lockStore, lockCmdConfig)

	serv := server.NewRPCServer(
		*serveCmdConfig,
		mgr,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in the environment configuration
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("reslock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
