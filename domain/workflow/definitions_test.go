package workflow_test

import (
	"errors"
	"openpka/bizerror"
	"openpka/domain/workflow"
	"openpka/event"
	"openpka/testinfra"
	"testing"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestCreateDefinition(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should reject step orders with gaps or duplicates", func(t *testing.T) {
		testDatabase, db := setupWorkflowDatabase(t)
		defer testinfra.StopTestDatabase(testDatabase)

		for _, steps := range [][]workflow.StepCreation{
			{{StepOrder: 1, StepName: "a", ApproverRole: "A"}, {StepOrder: 3, StepName: "c", ApproverRole: "C"}},
			{{StepOrder: 1, StepName: "a", ApproverRole: "A"}, {StepOrder: 1, StepName: "b", ApproverRole: "B"}},
			{{StepOrder: 2, StepName: "b", ApproverRole: "B"}},
			{},
		} {
			err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
				_, err := workflow.CreateDefinition(tx, workflow.DefinitionCreation{EntityType: workflow.EntityCourse, Name: "x", Steps: steps}, testAudit)
				return err
			})
			var invalid *bizerror.ErrInvalidDefinition
			Expect(errors.As(err, &invalid)).To(BeTrue())
		}
	})

	t.Run("should reject unknown entity types", func(t *testing.T) {
		testDatabase, db := setupWorkflowDatabase(t)
		defer testinfra.StopTestDatabase(testDatabase)

		err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
			_, err := workflow.CreateDefinition(tx, workflow.DefinitionCreation{EntityType: "BUILDING", Name: "x", Steps: threeSteps}, testAudit)
			return err
		})
		Expect(err).To(Equal(bizerror.ErrUnknownEntityType))
	})

	t.Run("should replace the active definition of the entity type", func(t *testing.T) {
		testDatabase, db := setupWorkflowDatabase(t)
		defer testinfra.StopTestDatabase(testDatabase)

		_, err := workflow.FindActiveDefinition(db, workflow.EntityProgram)
		Expect(err).To(Equal(bizerror.ErrDefinitionNotFound))

		unordered := []workflow.StepCreation{threeSteps[2], threeSteps[0], threeSteps[1]}
		v1 := mustCreateDefinition(db, workflow.EntityProgram, unordered)
		Expect(len(v1.Steps)).To(Equal(3))
		Expect(v1.Steps[0].StepName).To(Equal("Advisor review"))

		active, err := workflow.FindActiveDefinition(db, workflow.EntityProgram)
		Expect(err).To(BeNil())
		Expect(active.ID).To(Equal(v1.ID))
		Expect(active.Steps[2].StepOrder).To(Equal(3))

		v2 := mustCreateDefinition(db, workflow.EntityProgram, threeSteps[:1])
		active, err = workflow.FindActiveDefinition(db, workflow.EntityProgram)
		Expect(err).To(BeNil())
		Expect(active.ID).To(Equal(v2.ID))
		Expect(len(active.Steps)).To(Equal(1))

		old, err := workflow.DetailDefinition(db, v1.ID)
		Expect(err).To(BeNil())
		Expect(len(old.Steps)).To(Equal(3))

		var stored workflow.WorkflowDefinition
		Expect(db.Where("id = ?", v1.ID).First(&stored).Error).To(BeNil())
		Expect(stored.Active).To(BeFalse())
	})

	t.Run("should hand out copies of cached definitions", func(t *testing.T) {
		testDatabase, db := setupWorkflowDatabase(t)
		defer testinfra.StopTestDatabase(testDatabase)

		mustCreateDefinition(db, workflow.EntityMajor, threeSteps)
		first, err := workflow.FindActiveDefinition(db, workflow.EntityMajor)
		Expect(err).To(BeNil())
		first.Steps[0].StepName = "changed"

		second, err := workflow.FindActiveDefinition(db, workflow.EntityMajor)
		Expect(err).To(BeNil())
		Expect(second.Steps[0].StepName).To(Equal("Advisor review"))
	})

	t.Run("should not serve a definition whose transaction rolled back", func(t *testing.T) {
		testDatabase, db := setupWorkflowDatabase(t)
		defer testinfra.StopTestDatabase(testDatabase)

		v1 := mustCreateDefinition(db, workflow.EntityProgram, threeSteps)
		aborted := errors.New("aborted")
		err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
			v2, err := workflow.CreateDefinition(tx, workflow.DefinitionCreation{EntityType: workflow.EntityProgram, Name: "v2", Steps: threeSteps[:1]}, testAudit)
			Expect(err).To(BeNil())
			active, err := workflow.FindActiveDefinition(tx, workflow.EntityProgram)
			Expect(err).To(BeNil())
			Expect(active.ID).To(Equal(v2.ID))
			return aborted
		})
		Expect(err).To(Equal(aborted))

		active, err := workflow.FindActiveDefinition(db, workflow.EntityProgram)
		Expect(err).To(BeNil())
		Expect(active.ID).To(Equal(v1.ID))
		Expect(active.Active).To(BeTrue())
		Expect(len(active.Steps)).To(Equal(3))

		instance, err := createWorkflow(db, workflow.EntityProgram, 42)
		Expect(err).To(BeNil())
		Expect(instance.WorkflowID).To(Equal(v1.ID))

		workflow.FlushDefinitionCache()
		instance, err = processAction(db, instance.ID, workflow.ActionRequest{Action: workflow.ActionApprove})
		Expect(err).To(BeNil())
		Expect(instance.CurrentStep).To(Equal(2))
	})
}
