package client

import (
	"encoding/json"
	"time"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/common"
	"github.com/reslock/reslock/rpc/serializer"
	"github.com/reslock/reslock/rpc/transport"
)

// NewRPCLockManager creates a new RPC ILockManager
// The function takes a config, a transport and a serializer as parameters
// It returns a manager.ILockManager and an error
//
// The returned manager forwards every operation to the remote server; the
// server's configuration (lease clamping, history, ...) applies. Config()
// reports the compiled-in defaults, not the remote policy.
func NewRPCLockManager(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (manager.ILockManager, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC lock manager
	l := rpcLockManager{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC lock manager
	return &l, nil
}

type rpcLockManager struct {
	rpcClientAdapter
}

// decodePayload unmarshals a response payload into the given target.
// A missing payload leaves the target at its zero value.
func decodePayload(resp *common.Message, target interface{}) error {
	if len(resp.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Payload, target)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the manager package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcLockManager) Acquire(resource lock.ResourceRef, userID string, opts manager.AcquireOptions) (lock.AcquireResult, error) {
	req := common.NewAcquireRequest(
		resource.Type, resource.ID, userID,
		int64(opts.Duration/time.Second),
		string(opts.Strategy), opts.Fields, opts.SessionID,
	)
	req.IPAddress = opts.IPAddress
	req.UserAgent = opts.UserAgent
	req.Metadata = opts.Metadata

	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return lock.AcquireResult{}, err
	}

	var result lock.AcquireResult
	if err := decodePayload(resp, &result); err != nil {
		return lock.AcquireResult{}, err
	}
	return result, nil
}

func (i *rpcLockManager) Release(resource lock.ResourceRef, userID string) (bool, error) {
	req := common.NewReleaseRequest(resource.Type, resource.ID, userID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) ForceRelease(resource lock.ResourceRef, forcedBy string) (bool, error) {
	req := common.NewForceReleaseRequest(resource.Type, resource.ID, forcedBy)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) Extend(resource lock.ResourceRef, userID string, duration time.Duration) (bool, error) {
	req := common.NewExtendRequest(resource.Type, resource.ID, userID, int64(duration/time.Second))
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) RequestLock(resource lock.ResourceRef, requesterID string) (bool, error) {
	req := common.NewRequestLockRequest(resource.Type, resource.ID, requesterID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) GetActiveLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	req := common.NewResourceRequest(common.MsgTGetLock, resource.Type, resource.ID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}

	var l lock.Lock
	if err := decodePayload(resp, &l); err != nil {
		return nil, false, err
	}
	return &l, true, nil
}

func (i *rpcLockManager) IsLocked(resource lock.ResourceRef) (bool, error) {
	req := common.NewResourceRequest(common.MsgTIsLocked, resource.Type, resource.ID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) GetLockInfo(resource lock.ResourceRef) (*lock.Info, bool, error) {
	req := common.NewResourceRequest(common.MsgTGetInfo, resource.Type, resource.ID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}

	var info lock.Info
	if err := decodePayload(resp, &info); err != nil {
		return nil, false, err
	}
	return &info, true, nil
}

func (i *rpcLockManager) ListActiveLocks() ([]*lock.Lock, error) {
	return i.invokeLockList(common.MsgTListActive)
}

func (i *rpcLockManager) ListExpiredLocks() ([]*lock.Lock, error) {
	return i.invokeLockList(common.MsgTListExpired)
}

func (i *rpcLockManager) ReleaseAllForUser(userID string) (int, error) {
	req := common.NewReleaseUserRequest(userID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcLockManager) ReleaseAll() (int, error) {
	req := common.NewBareRequest(common.MsgTReleaseAll)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcLockManager) PurgeLocks(resource lock.ResourceRef) (bool, error) {
	req := common.NewResourceRequest(common.MsgTPurgeLocks, resource.Type, resource.ID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) StartSession(resource lock.ResourceRef, userID, channelName string) (*lock.Session, bool, error) {
	req := common.NewStartSessionRequest(resource.Type, resource.ID, userID, channelName)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}

	var sess lock.Session
	if err := decodePayload(resp, &sess); err != nil {
		return nil, false, err
	}
	return &sess, true, nil
}

func (i *rpcLockManager) Heartbeat(sessionID string) (bool, error) {
	req := common.NewHeartbeatRequest(sessionID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockManager) ListSessions(resource lock.ResourceRef) ([]*lock.Session, error) {
	req := common.NewResourceRequest(common.MsgTListSessions, resource.Type, resource.ID)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}

	var sessions []*lock.Session
	if err := decodePayload(resp, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (i *rpcLockManager) GetHistory(resource lock.ResourceRef, limit int) ([]*lock.HistoryEntry, error) {
	req := common.NewHistoryRequest(resource.Type, resource.ID, limit)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}

	var entries []*lock.HistoryEntry
	if err := decodePayload(resp, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (i *rpcLockManager) SweepExpiredLocks() (int, error) {
	return i.invokeSweep(common.MsgTSweepLocks)
}

func (i *rpcLockManager) SweepStaleSessions() (int, error) {
	return i.invokeSweep(common.MsgTSweepSessions)
}

func (i *rpcLockManager) SweepOldHistory() (int, error) {
	return i.invokeSweep(common.MsgTSweepHistory)
}

func (i *rpcLockManager) RunAllSweeps() (manager.SweepReport, error) {
	req := common.NewBareRequest(common.MsgTSweepAll)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return manager.SweepReport{}, err
	}

	var report manager.SweepReport
	if err := decodePayload(resp, &report); err != nil {
		return manager.SweepReport{}, err
	}
	return report, nil
}

func (i *rpcLockManager) GetStats(topUsers int) (manager.Stats, error) {
	req := common.NewStatsRequest(topUsers)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return manager.Stats{}, err
	}

	var stats manager.Stats
	if err := decodePayload(resp, &stats); err != nil {
		return manager.Stats{}, err
	}
	return stats, nil
}

func (i *rpcLockManager) Config() lock.Config {
	return lock.DefaultConfig()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (i *rpcLockManager) invokeLockList(msgType common.MessageType) ([]*lock.Lock, error) {
	req := common.NewBareRequest(msgType)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}

	var locks []*lock.Lock
	if err := decodePayload(resp, &locks); err != nil {
		return nil, err
	}
	return locks, nil
}

func (i *rpcLockManager) invokeSweep(msgType common.MessageType) (int, error) {
	req := common.NewBareRequest(msgType)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}
