package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	ResourceType string   `json:"resource_type,omitempty"` // Used for: all resource-scoped operations
	ResourceID   string   `json:"resource_id,omitempty"`   // Used for: all resource-scoped operations
	UserID       string   `json:"user_id,omitempty"`       // Used for: Acquire, Release, Extend, Request, ReleaseUser, StartSession
	DurationSec  int64    `json:"duration_sec,omitempty"`  // Used for: Acquire, Extend (requested lease in seconds)
	Strategy     string   `json:"strategy,omitempty"`      // Used for: Acquire
	Fields       []string `json:"fields,omitempty"`        // Used for: Acquire (field-scoped locks)
	SessionID    string   `json:"session_id,omitempty"`    // Used for: Acquire, Heartbeat
	Channel      string   `json:"channel,omitempty"`       // Used for: StartSession
	Limit        int      `json:"limit,omitempty"`         // Used for: History, Stats (top users)

	// Request context, recorded on acquired locks
	IPAddress string            `json:"ip_address,omitempty"` // Used for: Acquire
	UserAgent string            `json:"user_agent,omitempty"` // Used for: Acquire
	Metadata  map[string]string `json:"metadata,omitempty"`   // Used for: Acquire

	// Response fields
	Ok      bool   `json:"ok,omitempty"`      // Used for: boolean results (Release, Extend, IsLocked, ...)
	Count   int    `json:"count,omitempty"`   // Used for: bulk releases and sweeps
	Payload []byte `json:"payload,omitempty"` // JSON-encoded domain object (lock, info, lists, stats, ...)
	Err     string `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewAcquireRequest creates a new Acquire request
func NewAcquireRequest(resourceType, resourceID, userID string, durationSec int64, strategy string, fields []string, sessionID string) *Message {
	return &Message{
		MsgType:      MsgTAcquire,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       userID,
		DurationSec:  durationSec,
		Strategy:     strategy,
		Fields:       fields,
		SessionID:    sessionID,
	}
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(resourceType, resourceID, userID string) *Message {
	return &Message{
		MsgType:      MsgTRelease,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       userID,
	}
}

// NewForceReleaseRequest creates a new ForceRelease request
func NewForceReleaseRequest(resourceType, resourceID, forcedBy string) *Message {
	return &Message{
		MsgType:      MsgTForceRelease,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       forcedBy,
	}
}

// NewExtendRequest creates a new Extend request
func NewExtendRequest(resourceType, resourceID, userID string, durationSec int64) *Message {
	return &Message{
		MsgType:      MsgTExtend,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       userID,
		DurationSec:  durationSec,
	}
}

// NewRequestLockRequest creates a new RequestLock request
func NewRequestLockRequest(resourceType, resourceID, requesterID string) *Message {
	return &Message{
		MsgType:      MsgTRequestLock,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       requesterID,
	}
}

// NewResourceRequest creates a request that only addresses a resource
// (GetLock, GetInfo, IsLocked, ListSessions, PurgeLocks)
func NewResourceRequest(msgType MessageType, resourceType, resourceID string) *Message {
	return &Message{
		MsgType:      msgType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// NewHistoryRequest creates a new History request
func NewHistoryRequest(resourceType, resourceID string, limit int) *Message {
	return &Message{
		MsgType:      MsgTHistory,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Limit:        limit,
	}
}

// NewStartSessionRequest creates a new StartSession request
func NewStartSessionRequest(resourceType, resourceID, userID, channel string) *Message {
	return &Message{
		MsgType:      MsgTStartSession,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       userID,
		Channel:      channel,
	}
}

// NewHeartbeatRequest creates a new Heartbeat request
func NewHeartbeatRequest(sessionID string) *Message {
	return &Message{
		MsgType:   MsgTHeartbeat,
		SessionID: sessionID,
	}
}

// NewReleaseUserRequest creates a new ReleaseUser request
func NewReleaseUserRequest(userID string) *Message {
	return &Message{
		MsgType: MsgTReleaseUser,
		UserID:  userID,
	}
}

// NewStatsRequest creates a new Stats request
func NewStatsRequest(topUsers int) *Message {
	return &Message{
		MsgType: MsgTStats,
		Limit:   topUsers,
	}
}

// NewBareRequest creates a request without parameters
// (ListActive, ListExpired, ReleaseAll, the sweep operations)
func NewBareRequest(msgType MessageType) *Message {
	return &Message{MsgType: msgType}
}

// NewOkResponse creates a response carrying a boolean result
func NewOkResponse(msgType MessageType, ok bool, err error) *Message {
	msg := &Message{MsgType: msgType, Ok: ok}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewCountResponse creates a response carrying a count result
func NewCountResponse(msgType MessageType, count int, err error) *Message {
	msg := &Message{MsgType: msgType, Count: count}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewPayloadResponse creates a response carrying a JSON-encoded domain
// object. A marshalling failure degrades to an error response.
func NewPayloadResponse(msgType MessageType, payload interface{}, ok bool, err error) *Message {
	if err != nil {
		return &Message{MsgType: msgType, Err: err.Error()}
	}

	msg := &Message{MsgType: msgType, Ok: ok}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("failed to encode payload: %s", err))
		}
		msg.Payload = b
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// messageTypeNames maps each MessageType to its wire name.
var messageTypeNames = map[MessageType]string{
	MsgTSuccess:       "success",
	MsgTError:         "error",
	MsgTAcquire:       "acquire",
	MsgTRelease:       "release",
	MsgTForceRelease:  "forceRelease",
	MsgTExtend:        "extend",
	MsgTRequestLock:   "requestLock",
	MsgTGetLock:       "getLock",
	MsgTGetInfo:       "getInfo",
	MsgTIsLocked:      "isLocked",
	MsgTListActive:    "listActive",
	MsgTListExpired:   "listExpired",
	MsgTReleaseUser:   "releaseUser",
	MsgTReleaseAll:    "releaseAll",
	MsgTPurgeLocks:    "purgeLocks",
	MsgTStartSession:  "startSession",
	MsgTHeartbeat:     "heartbeat",
	MsgTListSessions:  "listSessions",
	MsgTHistory:       "history",
	MsgTSweepLocks:    "sweepLocks",
	MsgTSweepSessions: "sweepSessions",
	MsgTSweepHistory:  "sweepHistory",
	MsgTSweepAll:      "sweepAll",
	MsgTStats:         "stats",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Lock lifecycle operations

	MsgTAcquire      // Acquire or renew a lock
	MsgTRelease      // Release an owned lock
	MsgTForceRelease // Release a lock regardless of ownership
	MsgTExtend       // Extend the lease of an owned lock
	MsgTRequestLock  // Record a lock request against the current owner

	// Lock query operations

	MsgTGetLock     // Get the active lock for a resource
	MsgTGetInfo     // Get the display snapshot for a resource
	MsgTIsLocked    // Check if a resource is locked
	MsgTListActive  // List all active locks
	MsgTListExpired // List all expired locks

	// Bulk operations

	MsgTReleaseUser // Release all locks of one user
	MsgTReleaseAll  // Release every lock
	MsgTPurgeLocks  // Drop the lock rows of one resource without auditing

	// Session operations

	MsgTStartSession // Attach an editing session to a lock
	MsgTHeartbeat    // Keep a session alive
	MsgTListSessions // List the sessions of a lock

	// Audit and maintenance operations

	MsgTHistory       // Fetch the audit trail of a resource
	MsgTSweepLocks    // Purge expired locks
	MsgTSweepSessions // Purge stale sessions
	MsgTSweepHistory  // Purge history past retention
	MsgTSweepAll      // Run all sweeps
	MsgTStats         // Aggregate lock statistics
)
