package workflow_test

import (
	"context"
	"openpka/common"
	"openpka/domain/workflow"
	"openpka/event"
	"openpka/persistence"
	"openpka/session"
	"openpka/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

var testAudit = &event.AuditContext{Actor: session.Identity{ID: 7, Name: "registrar"}, RequestID: "test"}

func setupWorkflowDatabase(t *testing.T) (*testinfra.TestDatabase, *gorm.DB) {
	testDatabase := testinfra.StartTestDatabase("workflow")
	db := testDatabase.DS.GormDB(context.Background())
	Expect(db.AutoMigrate(&workflow.WorkflowDefinition{}, &workflow.WorkflowStep{}, &workflow.WorkflowInstance{},
		&workflow.ApprovalRecord{}, &event.EventRecord{}, &persistence.ResourceLock{}).Error).To(BeNil())
	persistence.ActiveDataSourceManager = testDatabase.DS
	workflow.FlushDefinitionCache()
	return testDatabase, db
}

func freezeClock(t time.Time) func() {
	origin := common.NowFunc
	common.NowFunc = func() time.Time { return t }
	return func() { common.NowFunc = origin }
}

var threeSteps = []workflow.StepCreation{
	{StepOrder: 1, StepName: "Advisor review", ApproverRole: "ADVISOR", ApproverOrgLevel: "DEPARTMENT", TimeoutDays: 3},
	{StepOrder: 2, StepName: "Dean review", ApproverRole: "DEAN", ApproverOrgLevel: "FACULTY", TimeoutDays: 5},
	{StepOrder: 3, StepName: "Registrar publish", ApproverRole: "REGISTRAR", ApproverOrgLevel: "UNIVERSITY", TimeoutDays: 7},
}

func mustCreateDefinition(db *gorm.DB, entityType string, steps []workflow.StepCreation) *workflow.DefinitionDetail {
	var d *workflow.DefinitionDetail
	Expect(event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
		var err error
		d, err = workflow.CreateDefinition(tx, workflow.DefinitionCreation{EntityType: entityType, Name: entityType + " review", Steps: steps}, testAudit)
		return err
	})).To(BeNil())
	return d
}

func createWorkflow(db *gorm.DB, entityType string, entityID types.ID) (*workflow.WorkflowInstance, error) {
	var instance *workflow.WorkflowInstance
	err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
		var err error
		instance, err = workflow.CreateWorkflow(tx, workflow.WorkflowCreation{EntityType: entityType, EntityID: entityID,
			Metadata: workflow.InstanceMetadata{Title: "Program 42", Tags: []string{"2024"}}}, testAudit)
		return err
	})
	return instance, err
}

func processAction(db *gorm.DB, id types.ID, req workflow.ActionRequest) (*workflow.WorkflowInstance, error) {
	var instance *workflow.WorkflowInstance
	err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
		var err error
		instance, err = workflow.ProcessAction(tx, id, req, testAudit)
		return err
	})
	return instance, err
}

func recordIDs(records []workflow.ApprovalRecord) map[types.ID]workflow.ApprovalRecord {
	m := map[types.ID]workflow.ApprovalRecord{}
	for _, r := range records {
		m[r.ID] = r
	}
	return m
}
