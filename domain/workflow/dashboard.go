package workflow

import (
	"openpka/common"
	"openpka/persistence"
	"openpka/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var GetDashboardDataFunc = getDashboardDataAs

type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Completed  int `json:"completed"`
}

func (c *StatusCounts) add(status string, n int) {
	c.Total += n
	switch status {
	case StatusPending:
		c.Pending += n
	case StatusInProgress:
		c.InProgress += n
	case StatusApproved:
		c.Approved += n
	case StatusRejected:
		c.Rejected += n
	case StatusCompleted:
		c.Completed += n
	}
}

type DashboardData struct {
	StatusCounts
	Overdue      int                      `json:"overdue"`
	ByEntityType map[string]*StatusCounts `json:"byEntityType"`
}

type statusCountRow struct {
	EntityType string
	Status     string
	Count      int
}

// GetDashboardData aggregates instances by status and entity type. Overdue counts open instances
// whose latest record is past its due date.
func GetDashboardData(db *gorm.DB, now time.Time) (*DashboardData, error) {
	var rows []statusCountRow
	if err := db.Model(&WorkflowInstance{}).Select("entity_type, status, count(*) AS count").
		Group("entity_type, status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	data := DashboardData{ByEntityType: map[string]*StatusCounts{}}
	for _, row := range rows {
		data.add(row.Status, row.Count)
		counts, found := data.ByEntityType[row.EntityType]
		if !found {
			counts = &StatusCounts{}
			data.ByEntityType[row.EntityType] = counts
		}
		counts.add(row.Status, row.Count)
	}

	var open []types.ID
	if err := db.Model(&WorkflowInstance{}).Where("status IN (?)", []string{StatusPending, StatusInProgress}).
		Pluck("id", &open).Error; err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return &data, nil
	}

	var records []ApprovalRecord
	if err := db.Where("workflow_instance_id IN (?)", open).Order(recencyOrder).Find(&records).Error; err != nil {
		return nil, err
	}
	seen := map[types.ID]bool{}
	for _, r := range records {
		if seen[r.WorkflowInstanceID] {
			continue
		}
		seen[r.WorkflowInstanceID] = true
		if r.DueDate.Before(now) {
			data.Overdue++
		}
	}
	return &data, nil
}

func getDashboardDataAs(s *session.Session) (*DashboardData, error) {
	return GetDashboardData(persistence.ActiveDataSourceManager.GormDB(s.Context), common.NowFunc().UTC())
}
