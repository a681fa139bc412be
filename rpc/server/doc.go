// Package server implements the RPC server for the lock service. It provides
// the adapter for handling lock manager RPC requests, along with the core
// server implementation that wires the transport, serializer and manager
// together.
//
// The package focuses on:
//   - Server-side RPC request handling for all lock manager operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Optional periodic maintenance sweeps and a Prometheus metrics endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes incoming requests against a
//     manager.ILockManager.
//
//   - NewLockManagerServerAdapter: Factory function creating the adapter that
//     translates RPC messages to lock manager method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified manager, transport and serializer.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	// Create the manager on a store
//	mgr := manager.New(memstore.NewMemStore(), lock.DefaultConfig())
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  mgr,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently. The Serve method is not thread-safe and should be called
//	only once.
package server
