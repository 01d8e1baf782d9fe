package bizerror

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fundwit/go-commons/types"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")

	ErrSelfRelation        = errors.New("a unit can not be related to itself")
	ErrDuplicateRelation   = errors.New("relation already exists")
	ErrHierarchyCycle      = errors.New("relation would create a cycle in the hierarchy")
	ErrInvalidInterval     = errors.New("effective to must be after effective from")
	ErrUnknownRelationType = errors.New("unknown relation type")
	ErrDuplicateUnitCode   = errors.New("org unit code already in use")

	ErrDefinitionNotFound = errors.New("no active workflow definition")
	ErrTerminalState      = errors.New("workflow instance is already finished")
	ErrWorkflowExists     = errors.New("an open workflow already exists for the entity")
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrUnmappedStatus     = errors.New("status has no workflow action")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: e.Error(), Data: nil}
}

// ErrRelationConflict names the parent already holding the child in the requested period.
type ErrRelationConflict struct {
	ChildID    types.ID
	ParentID   types.ID
	ParentName string

	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Reason        string
}

func (e *ErrRelationConflict) Error() string {
	to := "open end"
	if e.EffectiveTo != nil {
		to = e.EffectiveTo.Format("2006-01-02")
	}
	return fmt.Sprintf("unit already belongs to %s from %s to %s", e.ParentName, e.EffectiveFrom.Format("2006-01-02"), to)
}
func (e *ErrRelationConflict) Respond() *BizErrorDetail {
	data := map[string]interface{}{
		"parentId":      e.ParentID.String(),
		"parentName":    e.ParentName,
		"effectiveFrom": e.EffectiveFrom.Format("2006-01-02"),
		"reason":        e.Reason,
	}
	if e.EffectiveTo != nil {
		data["effectiveTo"] = e.EffectiveTo.Format("2006-01-02")
	}
	return &BizErrorDetail{Status: http.StatusConflict, Code: "hierarchy.relation_conflict", Message: e.Error(), Data: data}
}

// ErrDataIntegrity reports configuration defects found inside a started workflow, never user errors.
type ErrDataIntegrity struct {
	InstanceID types.ID
	Detail     string
}

func (e *ErrDataIntegrity) Error() string {
	return fmt.Sprintf("workflow instance %s is inconsistent: %s", e.InstanceID.String(), e.Detail)
}
func (e *ErrDataIntegrity) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusInternalServerError, Code: "workflow.data_integrity", Message: e.Error()}
}

// ErrInvalidDefinition is returned for definitions whose steps are not a dense 1..N sequence.
type ErrInvalidDefinition struct {
	Reason string
}

func (e *ErrInvalidDefinition) Error() string {
	return "invalid workflow definition: " + e.Reason
}
func (e *ErrInvalidDefinition) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.invalid_definition", Message: e.Error()}
}
