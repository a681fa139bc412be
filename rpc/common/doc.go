// Package common provides core data structures and utilities shared across
// the lock service RPC system. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Named zap loggers with a process-wide level
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flexible
//     structure that adapts to different operation types. Includes factory
//     methods for creating the various request and response messages. Domain
//     objects (locks, sessions, history, statistics) travel JSON-encoded in
//     the Payload field so the message itself stays flat and serializer
//     agnostic.
//
//   - MessageType: Enumeration defining all supported operations, categorized
//     into lifecycle, query, bulk, session and maintenance messages.
//
//   - ServerConfig: Configuration for the server, including the transport
//     endpoint, the lock backend, the sweep interval and logging.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts, and retry behavior.
package common
