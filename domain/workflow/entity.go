package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusApproved   = "APPROVED"
	StatusRejected   = "REJECTED"
	StatusCompleted  = "COMPLETED"

	ActionPending = "PENDING"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionReturn  = "RETURN"
	ActionComment = "COMMENT"

	EntityCourse  = "COURSE"
	EntityProgram = "PROGRAM"
	EntityMajor   = "MAJOR"
	EntityOrgUnit = "ORG_UNIT"

	SourceTypeWorkflow           = "WORKFLOW"
	SourceTypeWorkflowDefinition = "WORKFLOW_DEFINITION"
)

var EntityTypes = []string{EntityCourse, EntityProgram, EntityMajor, EntityOrgUnit}

func IsKnownEntityType(t string) bool {
	for _, v := range EntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

type WorkflowDefinition struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	EntityType string `json:"entityType" gorm:"index:idx_definition_entity_type"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`

	CreatorID  types.ID  `json:"creatorId"`
	CreateTime time.Time `json:"createTime"`
}

type WorkflowStep struct {
	ID           types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	DefinitionID types.ID `json:"definitionId" gorm:"unique_index:uni_definition_step_order"`
	StepOrder    int      `json:"stepOrder" gorm:"unique_index:uni_definition_step_order"`

	StepName         string `json:"stepName"`
	ApproverRole     string `json:"approverRole"`
	ApproverOrgLevel string `json:"approverOrgLevel"`
	TimeoutDays      int    `json:"timeoutDays"`
}

// DefinitionDetail is a definition with its steps ordered by StepOrder.
type DefinitionDetail struct {
	WorkflowDefinition
	Steps []WorkflowStep `json:"steps"`
}

func (d *DefinitionDetail) Step(order int) (*WorkflowStep, bool) {
	for i := range d.Steps {
		if d.Steps[i].StepOrder == order {
			return &d.Steps[i], true
		}
	}
	return nil, false
}

type StepCreation struct {
	StepOrder        int    `json:"stepOrder" binding:"required,min=1"`
	StepName         string `json:"stepName" binding:"required,lte=255"`
	ApproverRole     string `json:"approverRole" binding:"required,lte=64"`
	ApproverOrgLevel string `json:"approverOrgLevel" binding:"lte=64"`
	TimeoutDays      int    `json:"timeoutDays" binding:"min=0"`
}

type DefinitionCreation struct {
	EntityType string         `json:"entityType" binding:"required"`
	Name       string         `json:"name" binding:"required,lte=255"`
	Steps      []StepCreation `json:"steps" binding:"required,min=1,dive"`
}

type WorkflowInstance struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	WorkflowID types.ID `json:"workflowId"`

	EntityType string   `json:"entityType" gorm:"index:idx_instance_entity"`
	EntityID   types.ID `json:"entityId" gorm:"index:idx_instance_entity"`

	CurrentStep int    `json:"currentStep"`
	Status      string `json:"status"`

	InitiatedBy types.ID   `json:"initiatedBy"`
	InitiatedAt time.Time  `json:"initiatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	UpdateTime  time.Time  `json:"updateTime"`

	Metadata InstanceMetadata `json:"metadata" sql:"type:TEXT"`
}

type WorkflowCreation struct {
	EntityType string           `json:"entityType" binding:"required"`
	EntityID   types.ID         `json:"entityId" binding:"required"`
	Metadata   InstanceMetadata `json:"metadata"`
}

type ActionRequest struct {
	Action      string      `json:"action" binding:"required,lte=32"`
	Comments    string      `json:"comments" binding:"lte=4000"`
	Attachments Attachments `json:"attachments" binding:"dive"`
	// ApproverID defaults to the acting user
	ApproverID types.ID `json:"approverId"`
}

type WorkflowDetail struct {
	WorkflowInstance
	Definition   *DefinitionDetail `json:"definition"`
	LatestRecord *ApprovalRecord   `json:"latestRecord"`
}

type ApprovalRecord struct {
	ID                 types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	WorkflowInstanceID types.ID `json:"workflowInstanceId" gorm:"index:idx_record_instance"`
	StepID             types.ID `json:"stepId"`

	ApproverID  types.ID    `json:"approverId"`
	Action      string      `json:"action"`
	Comments    string      `json:"comments" sql:"type:TEXT"`
	Attachments Attachments `json:"attachments" sql:"type:TEXT"`

	DueDate     time.Time `json:"dueDate"`
	ApprovedAt  time.Time `json:"approvedAt"`
	IsEscalated bool      `json:"isEscalated"`
}

// InstanceMetadata describes what was submitted, Extra is kept opaque.
type InstanceMetadata struct {
	Title           string            `json:"title,omitempty"`
	Note            string            `json:"note,omitempty"`
	SubmittedStatus string            `json:"submittedStatus,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

type Attachment struct {
	Name        string `json:"name" binding:"required,lte=255"`
	URL         string `json:"url" binding:"required,url"`
	ContentType string `json:"contentType" binding:"lte=128"`
}

type Attachments []Attachment

func (m InstanceMetadata) Value() (driver.Value, error) {
	return jsonValue(m)
}

func (m *InstanceMetadata) Scan(v interface{}) error {
	return jsonScan(v, m)
}

func (a Attachments) Value() (driver.Value, error) {
	return jsonValue(a)
}

func (a *Attachments) Scan(v interface{}) error {
	return jsonScan(v, a)
}

func jsonValue(v interface{}) (driver.Value, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func jsonScan(v interface{}, target interface{}) error {
	if v == nil {
		return nil
	}
	var raw []byte
	switch value := v.(type) {
	case string:
		raw = []byte(value)
	case []byte:
		raw = value
	default:
		return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
