package review

import (
	"openpka/domain/workflow"

	"github.com/fundwit/go-commons/types"
)

// StatusPendingReview is written to an entity when it is submitted.
const StatusPendingReview = "pending_review"

type SubmitRequest struct {
	EntityType string                    `json:"entityType" binding:"required"`
	EntityID   types.ID                  `json:"entityId" binding:"required"`
	Metadata   workflow.InstanceMetadata `json:"metadata"`
}

type StatusChange struct {
	EntityType   string               `json:"entityType" binding:"required"`
	EntityID     types.ID             `json:"entityId" binding:"required"`
	TargetStatus string               `json:"targetStatus" binding:"required,lte=64"`
	Comments     string               `json:"comments" binding:"lte=4000"`
	Attachments  workflow.Attachments `json:"attachments" binding:"dive"`
}

// Result reports the entity status after the call and the workflow instance it touched, if any.
type Result struct {
	EntityType string                     `json:"entityType"`
	EntityID   types.ID                   `json:"entityId"`
	Status     string                     `json:"status"`
	Action     string                     `json:"action,omitempty"`
	Created    bool                       `json:"created"`
	Workflow   *workflow.WorkflowInstance `json:"workflow"`
}
