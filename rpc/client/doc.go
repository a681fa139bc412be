// Package client implements the RPC client for the lock service. It provides
// an implementation of the manager.ILockManager interface that communicates
// with a remote server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote lock manager
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain results
//
// Key Components:
//
//   - NewRPCLockManager: Factory function that creates a client implementing
//     the manager.ILockManager interface. This client forwards all operations
//     to the remote server via the configured transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	// Create a lock manager client
//	mgr, _ := client.NewRPCLockManager(config, tcp.NewTCPClientTransport(), serializer.NewJSONSerializer())
//
//	// Use the manager
//	result, _ := mgr.Acquire(lock.NewResourceRef("document", "42"), "alice", manager.AcquireOptions{})
//	if result.IsSuccessful() {
//	  mgr.Release(lock.NewResourceRef("document", "42"), "alice")
//	}
//
// Performance Considerations:
//
//   - For applications that frequently send many concurrent requests,
//     increasing ConnectionsPerEndpoint can improve throughput by allowing
//     parallel in-flight requests.
//
//   - Lock messages are small, so a single connection per endpoint is often
//     the most efficient choice.
//
// Thread Safety:
//
//	The client implementation is thread-safe and can be used concurrently
//	from multiple goroutines without additional synchronization.
package client
