package hierarchy

import (
	"openpka/bizerror"
	"openpka/common"
	"openpka/event"
	"openpka/idgen"
	"openpka/persistence"
	"openpka/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

const DefaultUnitStatus = "draft"

var (
	unitIdWorker = idgen.NewWorker()

	CreateOrgUnitFunc = createOrgUnitAs
	DetailOrgUnitFunc = detailOrgUnitAs
	UpdateOrgUnitFunc = updateOrgUnitAs
	LoadOrgUnitsFunc  = loadOrgUnitsAs
	SyncHierarchyFunc = syncHierarchyAs
)

// CreateOrgUnit inserts the unit, an initial parent becomes a direct relation starting today.
func CreateOrgUnit(tx *gorm.DB, c OrgUnitCreation, ac *event.AuditContext) (*OrgUnit, error) {
	var count int
	if err := tx.Model(&OrgUnit{}).Where("code = ?", c.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, bizerror.ErrDuplicateUnitCode
	}

	now := time.Now().UTC()
	u := OrgUnit{
		ID:         idgen.NextID(unitIdWorker),
		Code:       c.Code,
		Name:       c.Name,
		Type:       c.Type,
		Status:     c.Status,
		CreateTime: now,
		UpdateTime: now,
	}
	if u.Status == "" {
		u.Status = DefaultUnitStatus
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, err
	}
	if _, err := event.CreateEvent(SourceTypeOrgUnit, u.ID, u.Name, event.EventCategoryCreated, nil, nil, ac, tx); err != nil {
		return nil, err
	}

	if c.ParentID != nil {
		if _, err := CreateRelation(tx, RelationCreation{
			ParentID: *c.ParentID, ChildID: u.ID, RelationType: RelationDirect, EffectiveFrom: common.Today(),
		}, ac); err != nil {
			return nil, err
		}
	}
	return DetailOrgUnit(tx, u.ID)
}

func DetailOrgUnit(db *gorm.DB, id types.ID) (*OrgUnit, error) {
	return findUnit(db, id)
}

// LoadOrgUnits pages through all units ordered by id, page starts at 1.
func LoadOrgUnits(db *gorm.DB, page, size int) ([]OrgUnit, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	units := []OrgUnit{}
	if err := db.Order("id ASC").Offset(offset).Limit(size).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// UpdateOrgUnit changes business fields. A parent change is recorded as relation history through SetDirectParent.
func UpdateOrgUnit(tx *gorm.DB, id types.ID, c OrgUnitUpdating, ac *event.AuditContext) (*OrgUnit, error) {
	u, err := lockUnit(tx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	var props event.UpdatedProperties
	track := func(column, name string, old string, value *string) {
		if value == nil || *value == old {
			return
		}
		changes[column] = *value
		props = append(props, event.UpdatedProperty{PropertyName: name, PropertyDesc: name,
			OldValue: old, OldValueDesc: old, NewValue: *value, NewValueDesc: *value})
	}
	track("name", "Name", u.Name, c.Name)
	track("type", "Type", u.Type, c.Type)
	track("status", "Status", u.Status, c.Status)

	if len(changes) > 0 {
		changes["update_time"] = time.Now().UTC()
		if err := tx.Model(&OrgUnit{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, err
		}
		if _, err := event.CreateEvent(SourceTypeOrgUnit, u.ID, u.Name, event.EventCategoryPropertyUpdated, props, nil, ac, tx); err != nil {
			return nil, err
		}
	}

	if c.ClearParent {
		if err := SetDirectParent(tx, id, nil, common.Today(), ac); err != nil {
			return nil, err
		}
	} else if c.ParentID != nil {
		if err := SetDirectParent(tx, id, c.ParentID, common.Today(), ac); err != nil {
			return nil, err
		}
	}
	return DetailOrgUnit(tx, id)
}

func UpdateOrgUnitStatus(tx *gorm.DB, id types.ID, status string, ac *event.AuditContext) error {
	_, err := UpdateOrgUnit(tx, id, OrgUnitUpdating{Status: &status}, ac)
	return err
}

func createOrgUnitAs(c OrgUnitCreation, s *session.Session) (*OrgUnit, error) {
	var u *OrgUnit
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		u, err = CreateOrgUnit(tx, c, ac)
		return err
	})
	return u, err
}

// detailOrgUnitAs refreshes the cached parent before reading, a handover scheduled earlier may have
// become effective since the last write.
func detailOrgUnitAs(id types.ID, s *session.Session) (*OrgUnit, error) {
	var u *OrgUnit
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		if _, err := RefreshParent(tx, id, common.Today(), ac); err != nil {
			return err
		}
		var err error
		u, err = DetailOrgUnit(tx, id)
		return err
	})
	return u, err
}

func loadOrgUnitsAs(page, size int, s *session.Session) ([]OrgUnit, error) {
	var units []OrgUnit
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		if units, err = LoadOrgUnits(tx, page, size); err != nil {
			return err
		}
		today := common.Today()
		stale := false
		for _, u := range units {
			changed, err := RefreshParent(tx, u.ID, today, ac)
			if err != nil {
				return err
			}
			stale = stale || changed
		}
		if stale {
			units, err = LoadOrgUnits(tx, page, size)
		}
		return err
	})
	return units, err
}

func syncHierarchyAs(s *session.Session) (int, error) {
	return SyncHierarchy(persistence.ActiveDataSourceManager.GormDB(s.Context), common.Today(), event.AuditContextOf(s))
}

func updateOrgUnitAs(id types.ID, c OrgUnitUpdating, s *session.Session) (*OrgUnit, error) {
	var u *OrgUnit
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		u, err = UpdateOrgUnit(tx, id, c, ac)
		return err
	})
	return u, err
}
