package persistence

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/mattn/go-sqlite3"
)

const (
	mysqlErrLockDeadlock    = 1213
	mysqlErrLockWaitTimeout = 1205
)

// LockRowForUpdate takes the row lock of the record matched by where inside tx.
// MySQL uses SELECT ... FOR UPDATE, SQLite already serializes writers so only the read happens.
func LockRowForUpdate(tx *gorm.DB, out interface{}, where string, args ...interface{}) error {
	q := tx
	if IsMysql(tx) {
		q = q.Set("gorm:query_option", "FOR UPDATE")
	}
	return q.Where(where, args...).First(out).Error
}

// ResourceLock is a lockable row for things that have no row of their own yet, e.g. the
// workflow slot of an entity before its first instance exists.
type ResourceLock struct {
	LockScope string `gorm:"primary_key" sql:"type:VARCHAR(64) NOT NULL"`
	LockKey   string `gorm:"primary_key" sql:"type:VARCHAR(128) NOT NULL"`
}

func (ResourceLock) TableName() string {
	return "resource_locks"
}

// LockResource takes the row lock of (scope, key) inside tx, creating the row on first use.
// Concurrent callers on the same key queue until the holder's transaction ends.
func LockResource(tx *gorm.DB, scope, key string) error {
	insert := "INSERT OR IGNORE INTO resource_locks (lock_scope, lock_key) VALUES (?, ?)"
	if IsMysql(tx) {
		insert = "INSERT IGNORE INTO resource_locks (lock_scope, lock_key) VALUES (?, ?)"
	}
	if err := tx.Exec(insert, scope, key).Error; err != nil {
		return err
	}
	return LockRowForUpdate(tx, &ResourceLock{}, "lock_scope = ? AND lock_key = ?", scope, key)
}

func IsMysql(db *gorm.DB) bool {
	return db.Dialect().GetName() == DriverMysql
}

// IsTransientLockError reports deadlocks and lock timeouts, the transaction may be retried from the top.
func IsTransientLockError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrLockDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
