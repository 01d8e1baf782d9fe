package workflow

import (
	"fmt"
	"openpka/bizerror"
	"openpka/common"
	"openpka/domain/state"
	"openpka/event"
	"openpka/idgen"
	"openpka/persistence"
	"openpka/session"
	"strconv"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	statePending    = state.State{Name: StatusPending, Category: state.InBacklog}
	stateInProgress = state.State{Name: StatusInProgress, Category: state.InProcess}
	stateApproved   = state.State{Name: StatusApproved, Category: state.Done}
	stateRejected   = state.State{Name: StatusRejected, Category: state.Done}
	stateCompleted  = state.State{Name: StatusCompleted, Category: state.Done}

	// InstanceStateMachine lists every legal status change, APPROVED is kept for stored data and has no way in
	InstanceStateMachine = state.NewStateMachine(
		[]state.State{statePending, stateInProgress, stateApproved, stateRejected, stateCompleted},
		[]state.Transition{
			{Name: ActionApprove, From: statePending, To: stateInProgress},
			{Name: ActionApprove, From: statePending, To: stateCompleted},
			{Name: ActionApprove, From: stateInProgress, To: stateInProgress},
			{Name: ActionApprove, From: stateInProgress, To: stateCompleted},
			{Name: ActionReject, From: statePending, To: stateRejected},
			{Name: ActionReject, From: stateInProgress, To: stateRejected},
			{Name: ActionReturn, From: statePending, To: statePending},
			{Name: ActionReturn, From: stateInProgress, To: statePending},
		})

	instanceIdWorker = idgen.NewWorker()

	CreateWorkflowFunc      = createWorkflowAs
	ProcessActionFunc       = processActionAs
	DetailWorkflowFunc      = detailWorkflowAs
	GetWorkflowByEntityFunc = getWorkflowByEntityAs
)

func IsTerminal(status string) bool {
	return InstanceStateMachine.IsFinal(status)
}

// CreateWorkflow starts a run bound to the active definition of the entity type.
// The initiator is recorded as the nominal actor of step 1.
func CreateWorkflow(tx *gorm.DB, c WorkflowCreation, ac *event.AuditContext) (*WorkflowInstance, error) {
	def, err := FindActiveDefinition(tx, c.EntityType)
	if err != nil {
		return nil, err
	}
	first, found := def.Step(1)
	if !found {
		return nil, &bizerror.ErrDataIntegrity{Detail: "definition " + def.ID.String() + " has no first step"}
	}

	now := common.NowFunc().UTC()
	instance := WorkflowInstance{
		ID:          idgen.NextID(instanceIdWorker),
		WorkflowID:  def.ID,
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		CurrentStep: 1,
		Status:      StatusPending,
		InitiatedBy: ac.Actor.ID,
		InitiatedAt: now,
		UpdateTime:  now,
		Metadata:    c.Metadata,
	}
	if err := tx.Create(&instance).Error; err != nil {
		return nil, err
	}
	if err := appendRecord(tx, &ApprovalRecord{
		WorkflowInstanceID: instance.ID,
		StepID:             first.ID,
		ApproverID:         ac.Actor.ID,
		Action:             ActionPending,
		DueDate:            now.AddDate(0, 0, first.TimeoutDays),
		ApprovedAt:         now,
	}); err != nil {
		return nil, err
	}

	if _, err := event.CreateEvent(SourceTypeWorkflow, instance.ID, describeInstance(instance), event.EventCategoryCreated,
		nil, event.UpdatedRelations{{PropertyName: "Entity", PropertyDesc: "Entity", TargetType: c.EntityType,
			TargetTypeDesc: c.EntityType, NewTargetId: c.EntityID.String(), NewTargetDesc: c.Metadata.Title}},
		ac, tx); err != nil {
		return nil, err
	}
	return &instance, nil
}

// ProcessAction records the action against the current step and moves the instance accordingly.
// Unknown actions are recorded as annotations and leave status and step untouched.
func ProcessAction(tx *gorm.DB, id types.ID, req ActionRequest, ac *event.AuditContext) (*WorkflowInstance, error) {
	var instance WorkflowInstance
	if err := persistence.LockRowForUpdate(tx, &instance, "id = ?", id); err != nil {
		return nil, err
	}
	if IsTerminal(instance.Status) {
		return nil, bizerror.ErrTerminalState
	}

	def, err := DetailDefinition(tx, instance.WorkflowID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, integrityError(instance, "bound definition "+instance.WorkflowID.String()+" not found")
		}
		return nil, err
	}
	step, found := def.Step(instance.CurrentStep)
	if !found {
		return nil, integrityError(instance, "current step "+strconv.Itoa(instance.CurrentStep)+" not found in definition "+def.ID.String())
	}

	action := strings.ToUpper(strings.TrimSpace(req.Action))
	approver := req.ApproverID
	if approver == 0 {
		approver = ac.Actor.ID
	}
	now := common.NowFunc().UTC()
	if err := appendRecord(tx, &ApprovalRecord{
		WorkflowInstanceID: instance.ID,
		StepID:             step.ID,
		ApproverID:         approver,
		Action:             action,
		Comments:           req.Comments,
		Attachments:        req.Attachments,
		DueDate:            now.AddDate(0, 0, step.TimeoutDays),
		ApprovedAt:         now,
	}); err != nil {
		return nil, err
	}

	next := instance
	next.UpdateTime = now
	switch action {
	case ActionApprove:
		if instance.CurrentStep < len(def.Steps) {
			next.CurrentStep = instance.CurrentStep + 1
			next.Status = StatusInProgress
		} else {
			next.Status = StatusCompleted
			next.CompletedAt = &now
		}
	case ActionReject:
		next.Status = StatusRejected
		next.CompletedAt = &now
	case ActionReturn:
		next.Status = StatusPending
		next.CurrentStep = 1
	}
	if action == ActionApprove || action == ActionReject || action == ActionReturn {
		if _, ok := InstanceStateMachine.Fire(instance.Status, action, next.Status); !ok {
			return nil, fmt.Errorf("illegal transition %s -[%s]-> %s", instance.Status, action, next.Status)
		}
	}

	var completedAt interface{}
	if next.CompletedAt != nil {
		completedAt = *next.CompletedAt
	}
	if err := tx.Model(&WorkflowInstance{}).Where("id = ?", instance.ID).Updates(map[string]interface{}{
		"current_step": next.CurrentStep,
		"status":       next.Status,
		"completed_at": completedAt,
		"update_time":  next.UpdateTime,
	}).Error; err != nil {
		return nil, err
	}

	var changes event.UpdatedProperties
	if next.Status != instance.Status {
		changes = append(changes, event.UpdatedProperty{PropertyName: "Status", PropertyDesc: "Status",
			OldValue: instance.Status, OldValueDesc: instance.Status, NewValue: next.Status, NewValueDesc: next.Status})
	}
	if next.CurrentStep != instance.CurrentStep {
		changes = append(changes, event.UpdatedProperty{PropertyName: "CurrentStep", PropertyDesc: "Current Step",
			OldValue: strconv.Itoa(instance.CurrentStep), OldValueDesc: step.StepName,
			NewValue: strconv.Itoa(next.CurrentStep), NewValueDesc: stepName(def, next.CurrentStep)})
	}
	if _, err := event.CreateEvent(SourceTypeWorkflow, instance.ID, describeInstance(instance)+" "+action,
		event.EventCategoryActionRecorded, changes, nil, ac, tx); err != nil {
		return nil, err
	}
	return &next, nil
}

func DetailWorkflow(db *gorm.DB, id types.ID) (*WorkflowDetail, error) {
	var instance WorkflowInstance
	if err := db.Where("id = ?", id).First(&instance).Error; err != nil {
		return nil, err
	}
	detail := WorkflowDetail{WorkflowInstance: instance}
	def, err := DetailDefinition(db, instance.WorkflowID)
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}
	detail.Definition = def
	if detail.LatestRecord, err = LatestRecord(db, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetWorkflowByEntity returns the most recently initiated instance of the entity, nil when it never entered review.
func GetWorkflowByEntity(db *gorm.DB, entityType string, entityID types.ID) (*WorkflowInstance, error) {
	var instance WorkflowInstance
	if err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("initiated_at DESC, id DESC").First(&instance).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// FindOpenWorkflow returns the non terminal instance of the entity, nil when there is none.
func FindOpenWorkflow(db *gorm.DB, entityType string, entityID types.ID) (*WorkflowInstance, error) {
	instance, err := GetWorkflowByEntity(db, entityType, entityID)
	if err != nil || instance == nil || IsTerminal(instance.Status) {
		return nil, err
	}
	return instance, nil
}

// LockEntity serializes workflow bookkeeping of one entity, callers take it before looking for an
// open instance they may create.
func LockEntity(tx *gorm.DB, entityType string, entityID types.ID) error {
	return persistence.LockResource(tx, "workflow_entity", entityType+"/"+entityID.String())
}

func integrityError(instance WorkflowInstance, detail string) error {
	err := &bizerror.ErrDataIntegrity{InstanceID: instance.ID, Detail: detail}
	logrus.WithFields(logrus.Fields{"instanceId": instance.ID, "workflowId": instance.WorkflowID}).Error(err.Error())
	return err
}

func describeInstance(instance WorkflowInstance) string {
	return instance.EntityType + "/" + instance.EntityID.String()
}

func stepName(def *DefinitionDetail, order int) string {
	if s, found := def.Step(order); found {
		return s.StepName
	}
	return ""
}

func createWorkflowAs(c WorkflowCreation, s *session.Session) (*WorkflowInstance, error) {
	var instance *WorkflowInstance
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		if err := LockEntity(tx, c.EntityType, c.EntityID); err != nil {
			return err
		}
		open, err := FindOpenWorkflow(tx, c.EntityType, c.EntityID)
		if err != nil {
			return err
		}
		if open != nil {
			return bizerror.ErrWorkflowExists
		}
		instance, err = CreateWorkflow(tx, c, ac)
		return err
	})
	return instance, err
}

func processActionAs(id types.ID, req ActionRequest, s *session.Session) (*WorkflowInstance, error) {
	var instance *WorkflowInstance
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		instance, err = ProcessAction(tx, id, req, ac)
		return err
	})
	return instance, err
}

func detailWorkflowAs(id types.ID, s *session.Session) (*WorkflowDetail, error) {
	return DetailWorkflow(persistence.ActiveDataSourceManager.GormDB(s.Context), id)
}

func getWorkflowByEntityAs(entityType string, entityID types.ID, s *session.Session) (*WorkflowInstance, error) {
	return GetWorkflowByEntity(persistence.ActiveDataSourceManager.GormDB(s.Context), entityType, entityID)
}
