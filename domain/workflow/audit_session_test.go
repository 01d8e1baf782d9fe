package workflow_test

import (
	"errors"
	"openpka/domain/workflow"
	"openpka/event"
	"openpka/testinfra"
	"testing"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestProcessActionOnMysql(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should bind the audit session before locking the instance", func(t *testing.T) {
		db, mock := testinfra.StartMockMysqlDatabase()
		defer db.Close()

		stop := errors.New("stop")
		mock.ExpectBegin()
		testinfra.ExpectAuditSession(mock, "7", "registrar", "test")
		mock.ExpectQuery("SELECT \\* FROM `workflow_instances` .*FOR UPDATE").WillReturnError(stop)
		mock.ExpectRollback()

		err := event.InTransaction(db, testAudit, func(tx *gorm.DB) error {
			_, err := workflow.ProcessAction(tx, 100, workflow.ActionRequest{Action: workflow.ActionApprove}, testAudit)
			return err
		})
		Expect(err).To(Equal(stop))
		Expect(mock.ExpectationsWereMet()).To(BeNil())
	})
}
