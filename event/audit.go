package event

import (
	"errors"
	"openpka/persistence"
	"openpka/session"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const collectorKey = "openpka:event_collector"

var (
	MaxTransactionAttempts = 3
	RetryBackoff           = 20 * time.Millisecond

	ErrAuditContextRequired = errors.New("audit context is required")
)

// AuditContext identifies who performs a unit of work. It is passed explicitly into every
// mutation so attribution never depends on ambient session state.
type AuditContext struct {
	Actor     session.Identity
	RequestID string
	Metadata  Metadata
}

func AuditContextOf(s *session.Session) *AuditContext {
	ac := &AuditContext{Actor: s.Identity, RequestID: s.RequestID, Metadata: Metadata{}}
	for k, v := range s.RequestMeta {
		ac.Metadata[k] = v
	}
	return ac
}

// InSession runs fn in a transaction attributed to the session's actor.
func InSession(s *session.Session, fn func(tx *gorm.DB, ac *AuditContext) error) error {
	ac := AuditContextOf(s)
	return InTransaction(persistence.ActiveDataSourceManager.GormDB(s.Context), ac, func(tx *gorm.DB) error {
		return fn(tx, ac)
	})
}

type eventCollector struct {
	records []EventRecord
}

// InTransaction runs fn in one transaction attributed to ac. The audit session variables are the
// first statement of the transaction, the events recorded by fn are dispatched to EventHandlers
// after commit. Deadlocks and lock timeouts restart fn from the top.
func InTransaction(db *gorm.DB, ac *AuditContext, fn func(tx *gorm.DB) error) error {
	if ac == nil {
		return ErrAuditContextRequired
	}

	for attempt := 1; ; attempt++ {
		collector := &eventCollector{}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := bindAuditSession(tx, ac); err != nil {
				return err
			}
			return fn(tx.Set(collectorKey, collector))
		})
		if err == nil {
			dispatch(collector.records)
			return nil
		}
		if !persistence.IsTransientLockError(err) || attempt >= MaxTransactionAttempts {
			return err
		}
		logrus.WithField("requestId", ac.RequestID).Warnf("transaction attempt %d aborted by lock conflict, retry: %v", attempt, err)
		time.Sleep(time.Duration(attempt) * RetryBackoff)
	}
}

// bindAuditSession exposes the actor to database triggers. SQLite has no session variables.
func bindAuditSession(tx *gorm.DB, ac *AuditContext) error {
	if !persistence.IsMysql(tx) {
		return nil
	}
	return tx.Exec("SET @audit_actor_id = ?, @audit_actor_name = ?, @audit_request_id = ?",
		ac.Actor.ID.String(), ac.Actor.Name, ac.RequestID).Error
}

func collect(tx *gorm.DB, record EventRecord) {
	if v, ok := tx.Get(collectorKey); ok {
		if c, ok := v.(*eventCollector); ok {
			c.records = append(c.records, record)
		}
	}
}

func dispatch(records []EventRecord) {
	for i := range records {
		InvokeHandlersFunc(&records[i])
	}
}
