package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Endpoint the transport listens on (host:port or a socket path)
	Endpoint string

	// Request timeout in seconds, 0 disables deadlines
	TimeoutSecond int64

	// Maximum concurrent workers per client connection
	WorkersPerConn int

	// Lock backend settings
	Backend string // "memory" or "sqlite"
	DBPath  string // sqlite database file, ignored for memory

	// SweepInterval enables the built-in periodic sweeper when > 0
	SweepInterval time.Duration

	// MetricsEndpoint exposes Prometheus metrics when non-empty
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.WorkersPerConn))

	// Lock backend
	addSection("Lock Backend")
	addField("Backend", c.Backend)
	if c.Backend == "sqlite" {
		addField("Database", c.DBPath)
	}
	if c.SweepInterval > 0 {
		addField("Sweep Interval", c.SweepInterval.String())
	} else {
		addField("Sweep Interval", "disabled")
	}

	// Metrics
	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	connsPerEP := c.ConnectionsPerEndpoint
	if connsPerEP < 1 {
		connsPerEP = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connsPerEP))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
