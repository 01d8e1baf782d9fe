package app

import (
	"openpka/authority"
	"openpka/common"
	"openpka/domain/hierarchy"
	"openpka/domain/workflow"
	"openpka/event"
	"openpka/indices"
	"openpka/persistence"
	"openpka/session"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// AdminTokenExpiration keeps the bootstrap token alive for the lifetime of the process.
const AdminTokenExpiration = 100 * 365 * 24 * time.Hour

var systemActor = session.Identity{ID: 1, Name: "system"}

func Models() []interface{} {
	return []interface{}{
		&hierarchy.OrgUnit{}, &hierarchy.OrgUnitRelation{},
		&workflow.WorkflowDefinition{}, &workflow.WorkflowStep{}, &workflow.WorkflowInstance{}, &workflow.ApprovalRecord{},
		&event.EventRecord{}, &persistence.ResourceLock{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...).Error
}

// RegisterEventHandlers wires post commit handlers, the org unit indexer only runs with search enabled.
func RegisterEventHandlers(searchEnabled bool) {
	event.EventHandlers = nil
	if searchEnabled {
		event.EventHandlers = append(event.EventHandlers, indices.IndexOrgUnitEventHandle)
	}
}

// RegisterAdminToken makes token usable as a bearer token with system:admin.
func RegisterAdminToken(token, name string) *session.Session {
	if token == "" {
		return nil
	}
	return session.RegisterToken(token, session.Identity{ID: systemActor.ID, Name: name},
		authority.Permissions{authority.PermSystemAdmin}, AdminTokenExpiration)
}

// SeedDefinitions creates each definition as the active one of its entity type, all or nothing.
func SeedDefinitions(db *gorm.DB, defs []workflow.DefinitionCreation) ([]*workflow.DefinitionDetail, error) {
	ac := &event.AuditContext{Actor: systemActor, RequestID: "seed-definitions"}
	created := make([]*workflow.DefinitionDetail, 0, len(defs))
	err := event.InTransaction(db, ac, func(tx *gorm.DB) error {
		created = created[:0]
		for _, c := range defs {
			d, err := workflow.CreateDefinition(tx, c, ac)
			if err != nil {
				return err
			}
			created = append(created, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, d := range created {
		logrus.Infof("seeded workflow definition %s for %s with %d steps", d.ID, d.EntityType, len(d.Steps))
	}
	return created, nil
}

// SyncHierarchy refreshes every cached parent against today, for the startup sweep and scheduled jobs.
func SyncHierarchy(db *gorm.DB) (int, error) {
	return hierarchy.SyncHierarchy(db, common.Today(), &event.AuditContext{Actor: systemActor, RequestID: "sync-hierarchy"})
}
