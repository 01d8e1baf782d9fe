package workflow

import (
	"openpka/idgen"
	"openpka/persistence"
	"openpka/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// ledger order, ids are monotonic and break ties within one clock tick
const recencyOrder = "approved_at DESC, id DESC"

var (
	recordIdWorker = idgen.NewWorker()

	ListRecordsFunc = listRecordsAs
)

type RecordQuery struct {
	StepOrder    int    `form:"stepOrder" binding:"omitempty,min=1"`
	ApproverRole string `form:"approverRole"`
}

// appendRecord is the only writer of approval records, rows are never updated or deleted.
func appendRecord(tx *gorm.DB, r *ApprovalRecord) error {
	r.ID = idgen.NextID(recordIdWorker)
	return tx.Create(r).Error
}

// LatestRecord returns nil when the instance has no record.
func LatestRecord(db *gorm.DB, instanceID types.ID) (*ApprovalRecord, error) {
	var r ApprovalRecord
	if err := db.Where("workflow_instance_id = ?", instanceID).Order(recencyOrder).First(&r).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ListRecords returns every record of the instance, newest first.
func ListRecords(db *gorm.DB, instanceID types.ID) ([]ApprovalRecord, error) {
	records := []ApprovalRecord{}
	if err := db.Where("workflow_instance_id = ?", instanceID).Order(recencyOrder).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListRecordsByStepRole returns the records taken on the step of the bound definition
// with the given order and approver role, newest first.
func ListRecordsByStepRole(db *gorm.DB, instanceID types.ID, stepOrder int, approverRole string) ([]ApprovalRecord, error) {
	records := []ApprovalRecord{}
	err := db.Table("approval_records").Select("approval_records.*").
		Joins("JOIN workflow_steps ON workflow_steps.id = approval_records.step_id").
		Where("approval_records.workflow_instance_id = ? AND workflow_steps.step_order = ? AND workflow_steps.approver_role = ?",
			instanceID, stepOrder, approverRole).
		Order("approval_records.approved_at DESC, approval_records.id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func listRecordsAs(instanceID types.ID, q RecordQuery, s *session.Session) ([]ApprovalRecord, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if q.StepOrder > 0 || q.ApproverRole != "" {
		return ListRecordsByStepRole(db, instanceID, q.StepOrder, q.ApproverRole)
	}
	return ListRecords(db, instanceID)
}
