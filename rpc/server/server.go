package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/common"
	"github.com/reslock/reslock/rpc/serializer"
	"github.com/reslock/reslock/rpc/transport"
)

var Logger = common.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, a lock manager, a transport and a serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		mgr,
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	mgr manager.ILockManager,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return rpcServer{
		config:     config,
		manager:    mgr,
		adapter:    NewLockManagerServerAdapter(),
		transport:  transport,
		serializer: serializer,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	manager    manager.ILockManager
	adapter    IRPCServerAdapter
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Decode the request
		err := s.serializer.Deserialize(req, &msg)

		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to deserialize request: %s", err),
			}
		} else {
			// Let the adapter handle the request
			respMsg = *s.adapter.Handle(&msg, s.manager)
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
			val, _ = s.serializer.Serialize(respMsg)
		}
		return val
	})
}

// startSweeper runs the periodic maintenance sweeps. The lock model stays
// correct without it (expiry is lazy), the sweeper only keeps the store and
// the audit table from accumulating dead rows.
func (s *rpcServer) startSweeper() {
	ticker := time.NewTicker(s.config.SweepInterval)
	go func() {
		for range ticker.C {
			report, err := s.manager.RunAllSweeps()
			if err != nil {
				Logger.Errorf("Sweep failed: %v", err)
				continue
			}
			if report.ExpiredLocks > 0 || report.StaleSessions > 0 || report.PurgedHistory > 0 {
				Logger.Infof("Sweep done: %d expired locks, %d stale sessions, %d history entries",
					report.ExpiredLocks, report.StaleSessions, report.PurgedHistory)
			}
		}
	}()
	Logger.Infof("Started sweeper with interval %s", s.config.SweepInterval)
}

// startMetrics exposes the Prometheus endpoint on its own listener so the
// metrics port can be firewalled separately from the RPC endpoint.
func (s *rpcServer) startMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	go func() {
		Logger.Infof("Starting metrics server on %s", s.config.MetricsEndpoint)
		if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
			Logger.Errorf("Metrics server failed: %v", err)
		}
	}()
}

// Serve starts the RPC server
// This function will also start the optional sweeper and metrics endpoint
// and then block on the transport layer
func (s *rpcServer) Serve() error {
	if err := common.SetLogLevel(s.config.LogLevel); err != nil {
		return err
	}

	s.registerTransportHandler()

	if s.config.SweepInterval > 0 {
		s.startSweeper()
	}

	if s.config.MetricsEndpoint != "" {
		s.startMetrics()
	}

	return s.transport.Listen(s.config)
}
