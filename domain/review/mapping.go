package review

import (
	"openpka/domain/hierarchy"
	"openpka/domain/workflow"
	"openpka/event"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// StatusActionMapper resolves the workflow action recorded when an entity moves to status.
type StatusActionMapper func(status string) (string, bool)

// DefaultStatusActions maps target statuses to workflow actions. An approving status is applied to the
// entity only when the approval completes the workflow, earlier steps keep it pending review.
var DefaultStatusActions = map[string]string{
	"approved":  workflow.ActionApprove,
	"published": workflow.ActionApprove,
	"rejected":  workflow.ActionReject,
	"returned":  workflow.ActionReturn,
	"draft":     workflow.ActionReturn,
}

// ActionOfStatus is the mapper used by ChangeStatus.
var ActionOfStatus StatusActionMapper = MapStatusAction

func MapStatusAction(status string) (string, bool) {
	action, found := DefaultStatusActions[strings.ToLower(strings.TrimSpace(status))]
	return action, found
}

// EntityStatusWriter persists the business status of one kind of entity.
type EntityStatusWriter interface {
	WriteStatus(tx *gorm.DB, entityID types.ID, status string, ac *event.AuditContext) error
}

type OrgUnitStatusWriter struct{}

func (OrgUnitStatusWriter) WriteStatus(tx *gorm.DB, entityID types.ID, status string, ac *event.AuditContext) error {
	return hierarchy.UpdateOrgUnitStatus(tx, entityID, status, ac)
}

// entity types without a writer keep their status elsewhere, only the workflow side is driven here
var statusWriters = map[string]EntityStatusWriter{
	workflow.EntityOrgUnit: OrgUnitStatusWriter{},
}

// RegisterStatusWriter binds the writer of an entity type, it is meant to be called during startup.
func RegisterStatusWriter(entityType string, w EntityStatusWriter) {
	statusWriters[entityType] = w
}

func StatusWriterOf(entityType string) (EntityStatusWriter, bool) {
	w, found := statusWriters[entityType]
	return w, found
}
