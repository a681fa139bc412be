package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/lib/store/memstore"
	"github.com/reslock/reslock/rpc/common"
)

func newTestAdapter() (IRPCServerAdapter, manager.ILockManager) {
	mgr := manager.New(memstore.NewMemStore(), lock.DefaultConfig())
	return NewLockManagerServerAdapter(), mgr
}

func TestAdapterAcquireRoundTrip(t *testing.T) {
	adapter, mgr := newTestAdapter()

	req := common.NewAcquireRequest("document", "1", "alice", 600, "pessimistic", nil, "")
	resp := adapter.Handle(req, mgr)

	require.Equal(t, common.MsgTAcquire, resp.MsgType)
	require.Empty(t, resp.Err)
	assert.True(t, resp.Ok)

	var result lock.AcquireResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	require.NotNil(t, result.Lock)
	assert.Equal(t, "alice", result.Lock.UserID)

	// Contention: the losing response carries the blocking lock.
	resp = adapter.Handle(common.NewAcquireRequest("document", "1", "bob", 600, "", nil, ""), mgr)
	require.Empty(t, resp.Err)
	assert.False(t, resp.Ok)

	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.Equal(t, "alice", result.GetLockedBy())
}

func TestAdapterReleaseAndQuery(t *testing.T) {
	adapter, mgr := newTestAdapter()

	adapter.Handle(common.NewAcquireRequest("document", "1", "alice", 0, "", nil, ""), mgr)

	resp := adapter.Handle(common.NewResourceRequest(common.MsgTIsLocked, "document", "1"), mgr)
	assert.True(t, resp.Ok)

	resp = adapter.Handle(common.NewResourceRequest(common.MsgTGetInfo, "document", "1"), mgr)
	require.True(t, resp.Ok)
	var info lock.Info
	require.NoError(t, json.Unmarshal(resp.Payload, &info))
	assert.Equal(t, "alice", info.UserID)

	// Non-owner release fails, owner release succeeds.
	resp = adapter.Handle(common.NewReleaseRequest("document", "1", "bob"), mgr)
	assert.False(t, resp.Ok)
	resp = adapter.Handle(common.NewReleaseRequest("document", "1", "alice"), mgr)
	assert.True(t, resp.Ok)

	resp = adapter.Handle(common.NewResourceRequest(common.MsgTIsLocked, "document", "1"), mgr)
	assert.False(t, resp.Ok)
}

func TestAdapterBulkAndStats(t *testing.T) {
	adapter, mgr := newTestAdapter()

	adapter.Handle(common.NewAcquireRequest("document", "1", "alice", 0, "", nil, ""), mgr)
	adapter.Handle(common.NewAcquireRequest("document", "2", "alice", 0, "", nil, ""), mgr)

	resp := adapter.Handle(common.NewBareRequest(common.MsgTListActive), mgr)
	var locks []*lock.Lock
	require.NoError(t, json.Unmarshal(resp.Payload, &locks))
	assert.Len(t, locks, 2)

	resp = adapter.Handle(common.NewStatsRequest(5), mgr)
	var stats manager.Stats
	require.NoError(t, json.Unmarshal(resp.Payload, &stats))
	assert.Equal(t, 2, stats.ActiveLocks)

	resp = adapter.Handle(common.NewReleaseUserRequest("alice"), mgr)
	assert.Equal(t, 2, resp.Count)
}

func TestAdapterHistory(t *testing.T) {
	adapter, mgr := newTestAdapter()

	adapter.Handle(common.NewAcquireRequest("document", "1", "alice", 0, "", nil, ""), mgr)
	adapter.Handle(common.NewReleaseRequest("document", "1", "alice"), mgr)

	resp := adapter.Handle(common.NewHistoryRequest("document", "1", 0), mgr)
	var entries []*lock.HistoryEntry
	require.NoError(t, json.Unmarshal(resp.Payload, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, lock.ActionReleased, entries[0].Action)
	assert.Equal(t, lock.ActionAcquired, entries[1].Action)
}

func TestAdapterUnsupportedType(t *testing.T) {
	adapter, mgr := newTestAdapter()

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTUnknown}, mgr)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}

func TestAdapterNilManager(t *testing.T) {
	adapter := NewLockManagerServerAdapter()

	resp := adapter.Handle(common.NewBareRequest(common.MsgTListActive), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
}
