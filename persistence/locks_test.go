package persistence_test

import (
	"errors"
	"fmt"
	"openpka/persistence"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	. "github.com/onsi/gomega"
)

func TestIsTransientLockError(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should detect mysql deadlock and lock wait timeout", func(t *testing.T) {
		Expect(persistence.IsTransientLockError(&mysql.MySQLError{Number: 1213})).To(BeTrue())
		Expect(persistence.IsTransientLockError(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1205}))).To(BeTrue())
		Expect(persistence.IsTransientLockError(&mysql.MySQLError{Number: 1062})).To(BeFalse())
	})

	t.Run("should detect sqlite busy and locked", func(t *testing.T) {
		Expect(persistence.IsTransientLockError(sqlite3.Error{Code: sqlite3.ErrBusy})).To(BeTrue())
		Expect(persistence.IsTransientLockError(sqlite3.Error{Code: sqlite3.ErrLocked})).To(BeTrue())
		Expect(persistence.IsTransientLockError(sqlite3.Error{Code: sqlite3.ErrConstraint})).To(BeFalse())
	})

	t.Run("should ignore other errors", func(t *testing.T) {
		Expect(persistence.IsTransientLockError(nil)).To(BeFalse())
		Expect(persistence.IsTransientLockError(errors.New("some error"))).To(BeFalse())
	})
}

func TestNewDatabaseConfig(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should reject unsupported drivers and empty args", func(t *testing.T) {
		_, err := persistence.NewDatabaseConfig("postgres", "dsn")
		Expect(err).ToNot(BeNil())
		_, err = persistence.NewDatabaseConfig(persistence.DriverMysql, "")
		Expect(err).ToNot(BeNil())
	})

	t.Run("should accept mysql and sqlite", func(t *testing.T) {
		c, err := persistence.NewDatabaseConfig(persistence.DriverSqlite, "/tmp/openpka.db")
		Expect(err).To(BeNil())
		Expect(*c).To(Equal(persistence.DatabaseConfig{DriverType: "sqlite3", DriverArgs: "/tmp/openpka.db"}))
	})
}
