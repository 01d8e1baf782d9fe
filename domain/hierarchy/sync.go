package hierarchy

import (
	"openpka/event"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// SyncParent recomputes the cached parent of the child from its direct relations active on today.
// Relation windows are half-open: an edge ending on today is already inactive, so two edges meeting
// on a boundary day never both count. It writes only when the cached value differs, so a second call
// issues no statement but reads.
func SyncParent(tx *gorm.DB, childID types.ID, today time.Time) (bool, error) {
	var unit OrgUnit
	if err := tx.Where("id = ?", childID).First(&unit).Error; err != nil {
		return false, err
	}
	edges, err := directEdgesOf(tx, childID)
	if err != nil {
		return false, err
	}

	parentID := activeParentOf(childID, edges, today)
	if sameParent(unit.ParentID, parentID) {
		return false, nil
	}

	var value interface{}
	if parentID != nil {
		value = *parentID
	}
	if err := tx.Model(&OrgUnit{}).Where("id = ?", childID).
		Updates(map[string]interface{}{"parent_id": value, "update_time": time.Now().UTC()}).Error; err != nil {
		return false, err
	}
	logrus.WithFields(logrus.Fields{"childId": childID, "from": parentString(unit.ParentID), "to": parentString(parentID)}).
		Info("cached parent synchronized")
	return true, nil
}

// RefreshParent brings a cached parent that fell behind the calendar in line, e.g. after a scheduled
// handover date passed. A current cache costs two reads and no lock; a stale one is re-synchronized
// under the child's row lock and recorded as a parent change of the unit.
func RefreshParent(tx *gorm.DB, childID types.ID, today time.Time, ac *event.AuditContext) (bool, error) {
	unit, err := findUnit(tx, childID)
	if err != nil {
		return false, err
	}
	edges, err := directEdgesOf(tx, childID)
	if err != nil {
		return false, err
	}
	if sameParent(unit.ParentID, activeParentOf(childID, edges, today)) {
		return false, nil
	}

	locked, err := lockUnit(tx, childID)
	if err != nil {
		return false, err
	}
	changed, err := SyncParent(tx, childID, today)
	if err != nil || !changed {
		return changed, err
	}
	synced, err := findUnit(tx, childID)
	if err != nil {
		return false, err
	}
	from, to := parentString(locked.ParentID), parentString(synced.ParentID)
	_, err = event.CreateEvent(SourceTypeOrgUnit, childID, synced.Name, event.EventCategoryPropertyUpdated,
		event.UpdatedProperties{{PropertyName: "ParentID", PropertyDesc: "Parent",
			OldValue: from, OldValueDesc: from, NewValue: to, NewValueDesc: to}}, nil, ac, tx)
	return true, err
}

// SyncHierarchy refreshes every unit holding a direct relation or a cached parent, one transaction
// per unit, and reports how many cached parents moved.
func SyncHierarchy(db *gorm.DB, today time.Time, ac *event.AuditContext) (int, error) {
	var related, cached []types.ID
	if err := db.Model(&OrgUnitRelation{}).Where("relation_type = ?", RelationDirect).
		Pluck("DISTINCT child_id", &related).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&OrgUnit{}).Where("parent_id IS NOT NULL").Pluck("id", &cached).Error; err != nil {
		return 0, err
	}

	seen := map[types.ID]bool{}
	synced := 0
	for _, id := range append(related, cached...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		changed := false
		err := event.InTransaction(db, ac, func(tx *gorm.DB) error {
			var err error
			changed, err = RefreshParent(tx, id, today, ac)
			return err
		})
		if err != nil {
			return synced, err
		}
		if changed {
			synced++
		}
	}
	logrus.WithFields(logrus.Fields{"units": len(seen), "synced": synced, "today": today.Format("2006-01-02")}).
		Info("hierarchy synchronized")
	return synced, nil
}

// SetDirectParent turns a direct edit of the parent into relation history: active direct edges
// to other parents are retired at today and a direct edge [today, ∞) to the new parent is created.
// A nil parent only retires. Asking for the current parent writes nothing.
func SetDirectParent(tx *gorm.DB, childID types.ID, newParentID *types.ID, today time.Time, ac *event.AuditContext) error {
	child, err := lockUnit(tx, childID)
	if err != nil {
		return err
	}
	edges, err := directEdgesOf(tx, childID)
	if err != nil {
		return err
	}

	if sameParent(activeParentOf(childID, edges, today), newParentID) {
		_, err := SyncParent(tx, childID, today)
		return err
	}

	for _, e := range edges {
		if !e.ActiveOn(today) || (newParentID != nil && e.ParentID == *newParentID) {
			continue
		}
		if err := retireEdge(tx, child, e, today, ac); err != nil {
			return err
		}
	}

	if newParentID == nil {
		_, err := SyncParent(tx, childID, today)
		return err
	}
	_, err = createRelation(tx, OrgUnitRelation{
		ParentID:      *newParentID,
		ChildID:       childID,
		RelationType:  RelationDirect,
		EffectiveFrom: today,
		CreateTime:    time.Now().UTC(),
	}, ac, today)
	return err
}

// retireEdge ends e at today, an edge starting today would become empty and is removed instead.
func retireEdge(tx *gorm.DB, child *OrgUnit, e OrgUnitRelation, today time.Time, ac *event.AuditContext) error {
	if !e.EffectiveFrom.Before(today) {
		if err := deleteEdge(tx, e); err != nil {
			return err
		}
		return recordRelationEvent(tx, child, &e, nil, ac)
	}

	retired := e
	retired.EffectiveTo = &today
	if err := updateEdge(tx, retired); err != nil {
		return err
	}
	return recordRelationEvent(tx, child, &e, &retired, ac)
}

func directEdgesOf(tx *gorm.DB, childID types.ID) ([]OrgUnitRelation, error) {
	var edges []OrgUnitRelation
	if err := tx.Where("child_id = ? AND relation_type = ?", childID, RelationDirect).
		Order("effective_from ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// activeParentOf picks the parent of the direct edge active on today. More than one distinct parent
// means the history was edited around the repository, the latest edge wins.
func activeParentOf(childID types.ID, edges []OrgUnitRelation, today time.Time) *types.ID {
	var chosen *OrgUnitRelation
	distinct := map[types.ID]bool{}
	for i := range edges {
		e := edges[i]
		if e.RelationType != RelationDirect || !e.ActiveOn(today) {
			continue
		}
		distinct[e.ParentID] = true
		if chosen == nil || e.EffectiveFrom.After(chosen.EffectiveFrom) {
			chosen = &edges[i]
		}
	}
	if chosen == nil {
		return nil
	}
	if len(distinct) > 1 {
		logrus.WithFields(logrus.Fields{"childId": childID, "parents": len(distinct)}).
			Warn("more than one active direct parent, the latest relation wins")
	}
	id := chosen.ParentID
	return &id
}

func sameParent(a, b *types.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func parentString(id *types.ID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
