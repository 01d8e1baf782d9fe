package testinfra

import (
	"openpka/persistence"
	"regexp"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// StartMockMysqlDatabase opens gorm with the mysql dialect on top of sqlmock. Expectations are
// regular expressions matched in the order they are declared.
func StartMockMysqlDatabase() (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		logrus.Fatalf("sqlmock: %v", err)
	}
	db, err := gorm.Open(persistence.DriverMysql, sqlDB)
	if err != nil {
		logrus.Fatalf("open mock mysql: %v", err)
	}
	db.LogMode(false)
	return db, mock
}

// ExpectAuditSession expects the statement binding the actor to the mysql session.
func ExpectAuditSession(mock sqlmock.Sqlmock, actorID, actorName, requestID string) *sqlmock.ExpectedExec {
	return mock.ExpectExec(regexp.QuoteMeta("SET @audit_actor_id = ?, @audit_actor_name = ?, @audit_request_id = ?")).
		WithArgs(actorID, actorName, requestID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}
