package server

import (
	"fmt"
	"time"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
	"github.com/reslock/reslock/rpc/common"
)

func NewLockManagerServerAdapter() IRPCServerAdapter {
	return &lockMgrServerAdapter{}
}

type lockMgrServerAdapter struct{}

func (adapter *lockMgrServerAdapter) Handle(req *common.Message, mgr manager.ILockManager) (resp *common.Message) {

	// Check for nil manager
	if mgr == nil {
		return common.NewErrorResponse("handler: lock manager is nil")
	}

	resource := lock.NewResourceRef(req.ResourceType, req.ResourceID)

	// Handle different message types
	switch req.MsgType {

	case common.MsgTAcquire:
		result, err := mgr.Acquire(resource, req.UserID, manager.AcquireOptions{
			Duration:  time.Duration(req.DurationSec) * time.Second,
			Strategy:  lock.Strategy(req.Strategy),
			Fields:    req.Fields,
			SessionID: req.SessionID,
			IPAddress: req.IPAddress,
			UserAgent: req.UserAgent,
			Metadata:  req.Metadata,
		})
		return common.NewPayloadResponse(common.MsgTAcquire, result, result.IsSuccessful(), err)

	case common.MsgTRelease:
		ok, err := mgr.Release(resource, req.UserID)
		return common.NewOkResponse(common.MsgTRelease, ok, err)

	case common.MsgTForceRelease:
		ok, err := mgr.ForceRelease(resource, req.UserID)
		return common.NewOkResponse(common.MsgTForceRelease, ok, err)

	case common.MsgTExtend:
		ok, err := mgr.Extend(resource, req.UserID, time.Duration(req.DurationSec)*time.Second)
		return common.NewOkResponse(common.MsgTExtend, ok, err)

	case common.MsgTRequestLock:
		ok, err := mgr.RequestLock(resource, req.UserID)
		return common.NewOkResponse(common.MsgTRequestLock, ok, err)

	case common.MsgTGetLock:
		l, found, err := mgr.GetActiveLock(resource)
		if !found {
			return common.NewOkResponse(common.MsgTGetLock, false, err)
		}
		return common.NewPayloadResponse(common.MsgTGetLock, l, true, err)

	case common.MsgTGetInfo:
		info, found, err := mgr.GetLockInfo(resource)
		if !found {
			return common.NewOkResponse(common.MsgTGetInfo, false, err)
		}
		return common.NewPayloadResponse(common.MsgTGetInfo, info, true, err)

	case common.MsgTIsLocked:
		locked, err := mgr.IsLocked(resource)
		return common.NewOkResponse(common.MsgTIsLocked, locked, err)

	case common.MsgTListActive:
		locks, err := mgr.ListActiveLocks()
		return common.NewPayloadResponse(common.MsgTListActive, locks, true, err)

	case common.MsgTListExpired:
		locks, err := mgr.ListExpiredLocks()
		return common.NewPayloadResponse(common.MsgTListExpired, locks, true, err)

	case common.MsgTReleaseUser:
		count, err := mgr.ReleaseAllForUser(req.UserID)
		return common.NewCountResponse(common.MsgTReleaseUser, count, err)

	case common.MsgTReleaseAll:
		count, err := mgr.ReleaseAll()
		return common.NewCountResponse(common.MsgTReleaseAll, count, err)

	case common.MsgTPurgeLocks:
		ok, err := mgr.PurgeLocks(resource)
		return common.NewOkResponse(common.MsgTPurgeLocks, ok, err)

	case common.MsgTStartSession:
		sess, ok, err := mgr.StartSession(resource, req.UserID, req.Channel)
		if !ok {
			return common.NewOkResponse(common.MsgTStartSession, false, err)
		}
		return common.NewPayloadResponse(common.MsgTStartSession, sess, true, err)

	case common.MsgTHeartbeat:
		ok, err := mgr.Heartbeat(req.SessionID)
		return common.NewOkResponse(common.MsgTHeartbeat, ok, err)

	case common.MsgTListSessions:
		sessions, err := mgr.ListSessions(resource)
		return common.NewPayloadResponse(common.MsgTListSessions, sessions, true, err)

	case common.MsgTHistory:
		entries, err := mgr.GetHistory(resource, req.Limit)
		return common.NewPayloadResponse(common.MsgTHistory, entries, true, err)

	case common.MsgTSweepLocks:
		count, err := mgr.SweepExpiredLocks()
		return common.NewCountResponse(common.MsgTSweepLocks, count, err)

	case common.MsgTSweepSessions:
		count, err := mgr.SweepStaleSessions()
		return common.NewCountResponse(common.MsgTSweepSessions, count, err)

	case common.MsgTSweepHistory:
		count, err := mgr.SweepOldHistory()
		return common.NewCountResponse(common.MsgTSweepHistory, count, err)

	case common.MsgTSweepAll:
		report, err := mgr.RunAllSweeps()
		return common.NewPayloadResponse(common.MsgTSweepAll, report, true, err)

	case common.MsgTStats:
		stats, err := mgr.GetStats(req.Limit)
		return common.NewPayloadResponse(common.MsgTStats, stats, true, err)

	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC LockManagerAdapter - Unsupported message type: %s", req.MsgType))
	}
}
