package serializer

import (
	"reflect"
	"testing"

	"github.com/reslock/reslock/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Acquire request
		{
			MsgType:      common.MsgTAcquire,
			ResourceType: "document",
			ResourceID:   "42",
			UserID:       "alice",
			DurationSec:  600,
			Strategy:     "pessimistic",
			Fields:       []string{"title", "body"},
			SessionID:    "sess-1",
		},

		// Boolean response
		{
			MsgType: common.MsgTRelease,
			Ok:      true,
		},

		// Count response
		{
			MsgType: common.MsgTSweepLocks,
			Count:   7,
		},

		// Payload response
		{
			MsgType: common.MsgTGetLock,
			Ok:      true,
			Payload: []byte(`{"user_id":"alice"}`),
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTStats; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestUnknownMessageType tests that an unknown type name is rejected by the
// JSON codec instead of silently mapping to a valid operation
func TestUnknownMessageType(t *testing.T) {
	serializer := NewJSONSerializer()

	var msg common.Message
	err := serializer.Deserialize([]byte(`{"msg_type":"not-a-real-op"}`), &msg)
	if err == nil {
		t.Errorf("Expected error for unknown message type but got none")
	}
}
