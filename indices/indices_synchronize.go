package indices

import (
	"context"
	"fmt"
	"openpka/authority"
	"openpka/client/es"
	"openpka/domain/hierarchy"
	"openpka/event"
	"openpka/session"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	OrgUnitIndexEventHandlerName = "orgUnitIndexer"
	indexRobot                   = session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot"},
		Perms:    authority.Permissions{authority.PermOrgRead},
	}

	lock    sync.Mutex
	running bool

	SyncBatchSize = 500
	// consecutive page load failures tolerated by a full sync
	MaxLoadFailures = 3

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

func robotSession(ctx context.Context) *session.Session {
	s := indexRobot.Clone()
	s.Context = ctx
	return &s
}

// ScheduleNewSyncRun starts a full reindex in background, it returns false when one is already running.
func ScheduleNewSyncRun(s *session.Session) (bool, error) {
	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	requestID := s.RequestID
	go func() {
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if err := IndicesFullSyncFunc(context.Background()); err != nil {
			logrus.WithField("requestId", requestID).Errorf("indices full sync: %v", err)
		}
	}()
	return true, nil
}

// IndicesFullSync rebuilds the org unit index from the database.
func IndicesFullSync(ctx context.Context) (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	if err := es.DropIndexFunc(ctx, OrgUnitIndexName); err != nil {
		return err
	}

	failures := 0
	for page := 1; ; page++ {
		units, err := hierarchy.LoadOrgUnitsFunc(page, SyncBatchSize, robotSession(ctx))
		if err != nil {
			failures++
			logrus.Warnf("indices full sync: load org units (page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			if failures >= MaxLoadFailures {
				return err
			}
			continue
		}
		failures = 0

		if len(units) == 0 {
			logrus.Info("indices full sync: no more org units to index")
			return nil
		}
		if err := IndexOrgUnits(ctx, units); err != nil {
			logrus.Warnf("indices full sync: index org units (page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
	}
}

// IndexOrgUnitEventHandle keeps the index in line with committed org unit changes.
func IndexOrgUnitEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != hierarchy.SourceTypeOrgUnit {
		return nil
	}
	ctx := context.Background()

	if e.EventCategory == event.EventCategoryDeleted {
		if err := es.DeleteDocumentByIdFunc(ctx, OrgUnitIndexName, e.SourceId); err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("delete org unit index %d, %v", e.SourceId, err),
				HandlerIdentifier: OrgUnitIndexEventHandlerName,
			}
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: OrgUnitIndexEventHandlerName}
	}

	u, err := hierarchy.DetailOrgUnitFunc(e.SourceId, robotSession(ctx))
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("detail org unit when index org unit %d, %v", e.SourceId, err),
			HandlerIdentifier: OrgUnitIndexEventHandlerName,
		}
	}
	if err := IndexOrgUnits(ctx, []hierarchy.OrgUnit{*u}); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index org unit %d, %v", e.SourceId, err),
			HandlerIdentifier: OrgUnitIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: OrgUnitIndexEventHandlerName}
}
