package workflow_test

import (
	"openpka/domain/workflow"
	"openpka/testinfra"
	"testing"

	. "github.com/onsi/gomega"
)

func TestListRecordsByStepRole(t *testing.T) {
	RegisterTestingT(t)

	testDatabase, db := setupWorkflowDatabase(t)
	defer testinfra.StopTestDatabase(testDatabase)
	defer freezeClock(clock)()

	mustCreateDefinition(db, workflow.EntityCourse, threeSteps)
	instance, err := createWorkflow(db, workflow.EntityCourse, 3)
	Expect(err).To(BeNil())
	for _, action := range []string{workflow.ActionComment, workflow.ActionApprove, workflow.ActionApprove} {
		_, err = processAction(db, instance.ID, workflow.ActionRequest{Action: action})
		Expect(err).To(BeNil())
	}

	t.Run("should filter records by step order and approver role", func(t *testing.T) {
		records, err := workflow.ListRecordsByStepRole(db, instance.ID, 1, "ADVISOR")
		Expect(err).To(BeNil())
		// PENDING at creation, then COMMENT and APPROVE on step 1
		Expect(len(records)).To(Equal(3))
		Expect(records[0].Action).To(Equal(workflow.ActionApprove))
		Expect(records[2].Action).To(Equal(workflow.ActionPending))

		records, err = workflow.ListRecordsByStepRole(db, instance.ID, 2, "DEAN")
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))

		records, err = workflow.ListRecordsByStepRole(db, instance.ID, 2, "ADVISOR")
		Expect(err).To(BeNil())
		Expect(records).To(BeEmpty())
	})

	t.Run("should list the whole ledger newest first", func(t *testing.T) {
		records, err := workflow.ListRecords(db, instance.ID)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(4))
		for i := 1; i < len(records); i++ {
			Expect(records[i-1].ID > records[i].ID).To(BeTrue())
		}

		latest, err := workflow.LatestRecord(db, instance.ID)
		Expect(err).To(BeNil())
		Expect(latest.ID).To(Equal(records[0].ID))

		latest, err = workflow.LatestRecord(db, 404)
		Expect(err).To(BeNil())
		Expect(latest).To(BeNil())
	})
}
