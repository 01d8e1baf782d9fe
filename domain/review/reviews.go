package review

import (
	"errors"
	"openpka/bizerror"
	"openpka/domain/workflow"
	"openpka/event"
	"openpka/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	SubmitForReviewFunc = submitForReviewAs
	ChangeStatusFunc    = changeStatusAs
)

// SubmitForReview marks the entity as pending review and attaches it to a workflow instance.
// An open instance is reused. When no definition is configured for the entity type the submission
// still succeeds without a workflow, every other failure aborts it.
func SubmitForReview(tx *gorm.DB, req SubmitRequest, ac *event.AuditContext) (*Result, error) {
	if !workflow.IsKnownEntityType(req.EntityType) {
		return nil, bizerror.ErrUnknownEntityType
	}
	if err := workflow.LockEntity(tx, req.EntityType, req.EntityID); err != nil {
		return nil, err
	}
	if err := writeStatus(tx, req.EntityType, req.EntityID, StatusPendingReview, ac); err != nil {
		return nil, err
	}
	result := &Result{EntityType: req.EntityType, EntityID: req.EntityID, Status: StatusPendingReview}

	open, err := workflow.FindOpenWorkflow(tx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		result.Workflow = open
		return result, nil
	}

	metadata := req.Metadata
	if metadata.SubmittedStatus == "" {
		metadata.SubmittedStatus = StatusPendingReview
	}
	instance, err := workflow.CreateWorkflow(tx, workflow.WorkflowCreation{
		EntityType: req.EntityType, EntityID: req.EntityID, Metadata: metadata}, ac)
	if errors.Is(err, bizerror.ErrDefinitionNotFound) {
		logrus.WithFields(logrus.Fields{"entityType": req.EntityType, "entityId": req.EntityID, "requestId": ac.RequestID}).
			Info("no workflow definition configured, submitted without review workflow")
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Workflow = instance
	result.Created = true
	return result, nil
}

// ChangeStatus records the action mapped from the target status on the open instance of the entity
// and writes the target status. An approval that only advances a multi-step workflow leaves the
// entity pending review, the target status is written once the last step approves.
// Entities outside of review only get their status written.
func ChangeStatus(tx *gorm.DB, c StatusChange, ac *event.AuditContext) (*Result, error) {
	if !workflow.IsKnownEntityType(c.EntityType) {
		return nil, bizerror.ErrUnknownEntityType
	}
	action, found := ActionOfStatus(c.TargetStatus)
	if !found {
		return nil, bizerror.ErrUnmappedStatus
	}
	result := &Result{EntityType: c.EntityType, EntityID: c.EntityID, Status: c.TargetStatus, Action: action}

	open, err := workflow.FindOpenWorkflow(tx, c.EntityType, c.EntityID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		result.Workflow, err = workflow.ProcessAction(tx, open.ID, workflow.ActionRequest{
			Action: action, Comments: c.Comments, Attachments: c.Attachments}, ac)
		if err != nil {
			return nil, err
		}
		if action == workflow.ActionApprove && result.Workflow.Status != workflow.StatusCompleted {
			result.Status = StatusPendingReview
			return result, nil
		}
	}
	if err := writeStatus(tx, c.EntityType, c.EntityID, c.TargetStatus, ac); err != nil {
		return nil, err
	}
	return result, nil
}

func writeStatus(tx *gorm.DB, entityType string, entityID types.ID, status string, ac *event.AuditContext) error {
	w, found := StatusWriterOf(entityType)
	if !found {
		return nil
	}
	return w.WriteStatus(tx, entityID, status, ac)
}

func submitForReviewAs(req SubmitRequest, s *session.Session) (*Result, error) {
	var result *Result
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		result, err = SubmitForReview(tx, req, ac)
		return err
	})
	return result, err
}

func changeStatusAs(c StatusChange, s *session.Session) (*Result, error) {
	var result *Result
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		result, err = ChangeStatus(tx, c, ac)
		return err
	})
	return result, err
}
