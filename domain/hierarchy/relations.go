package hierarchy

import (
	"openpka/bizerror"
	"openpka/common"
	"openpka/event"
	"openpka/persistence"
	"openpka/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

const relationKeyCondition = "parent_id = ? AND child_id = ? AND relation_type = ? AND effective_from = ?"

var (
	CreateRelationFunc = createRelationAs
	UpdateRelationFunc = updateRelationAs
	DeleteRelationFunc = deleteRelationAs
	QueryRelationsFunc = queryRelationsAs
)

// CreateRelation validates and inserts a relation under the child's row lock.
// Direct relations re-synchronize the child's cached parent.
func CreateRelation(tx *gorm.DB, c RelationCreation, ac *event.AuditContext) (*OrgUnitRelation, error) {
	r := OrgUnitRelation{
		ParentID:      c.ParentID,
		ChildID:       c.ChildID,
		RelationType:  c.RelationType,
		EffectiveFrom: common.DayOf(c.EffectiveFrom),
		EffectiveTo:   common.DayPtrOf(c.EffectiveTo),
		Note:          c.Note,
		CreateTime:    time.Now().UTC(),
	}
	return createRelation(tx, r, ac, common.Today())
}

func createRelation(tx *gorm.DB, r OrgUnitRelation, ac *event.AuditContext, today time.Time) (*OrgUnitRelation, error) {
	if err := checkRelationShape(r.ParentID, r.ChildID, r.RelationType, r.EffectiveFrom, r.EffectiveTo); err != nil {
		return nil, err
	}
	child, err := lockUnit(tx, r.ChildID)
	if err != nil {
		return nil, err
	}
	parent, err := findUnit(tx, r.ParentID)
	if err != nil {
		return nil, err
	}

	edges, err := edgesOf(tx, r.ChildID)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if r.Key().Matches(e) {
			return nil, bizerror.ErrDuplicateRelation
		}
	}
	if r.RelationType == RelationDirect {
		if err := checkCycle(tx, r.ChildID, parent.ID); err != nil {
			return nil, err
		}
		if c := ValidateRelation(r, edges, today); c != nil {
			return nil, conflictError(tx, c)
		}
	}

	if err := tx.Create(&r).Error; err != nil {
		return nil, err
	}
	if r.RelationType == RelationDirect {
		if _, err := SyncParent(tx, r.ChildID, today); err != nil {
			return nil, err
		}
	}
	if err := recordRelationEvent(tx, child, nil, &r, ac); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRelation changes the end or the note of a relation, the remaining fields are its identity.
func UpdateRelation(tx *gorm.DB, key RelationKey, u RelationUpdating, ac *event.AuditContext) (*OrgUnitRelation, error) {
	today := common.Today()
	key.EffectiveFrom = common.DayOf(key.EffectiveFrom)

	child, err := lockUnit(tx, key.ChildID)
	if err != nil {
		return nil, err
	}
	edges, err := edgesOf(tx, key.ChildID)
	if err != nil {
		return nil, err
	}
	current, others := splitEdges(edges, key)
	if current == nil {
		return nil, bizerror.ErrNotFound
	}

	updated := *current
	if u.ClearEffectiveTo {
		updated.EffectiveTo = nil
	} else if u.EffectiveTo != nil {
		updated.EffectiveTo = common.DayPtrOf(u.EffectiveTo)
	}
	if u.Note != nil {
		updated.Note = *u.Note
	}
	if err := checkRelationShape(updated.ParentID, updated.ChildID, updated.RelationType, updated.EffectiveFrom, updated.EffectiveTo); err != nil {
		return nil, err
	}
	if c := ValidateRelation(updated, others, today); c != nil {
		return nil, conflictError(tx, c)
	}

	if err := updateEdge(tx, updated); err != nil {
		return nil, err
	}
	if updated.RelationType == RelationDirect {
		if _, err := SyncParent(tx, updated.ChildID, today); err != nil {
			return nil, err
		}
	}
	if err := recordRelationEvent(tx, child, current, &updated, ac); err != nil {
		return nil, err
	}
	return &updated, nil
}

func DeleteRelation(tx *gorm.DB, key RelationKey, ac *event.AuditContext) error {
	key.EffectiveFrom = common.DayOf(key.EffectiveFrom)

	child, err := lockUnit(tx, key.ChildID)
	if err != nil {
		return err
	}
	edges, err := edgesOf(tx, key.ChildID)
	if err != nil {
		return err
	}
	current, _ := splitEdges(edges, key)
	if current == nil {
		return bizerror.ErrNotFound
	}

	if err := deleteEdge(tx, *current); err != nil {
		return err
	}
	if current.RelationType == RelationDirect {
		if _, err := SyncParent(tx, current.ChildID, common.Today()); err != nil {
			return err
		}
	}
	return recordRelationEvent(tx, child, current, nil, ac)
}

// QueryRelations lists relation history, newest window first. AsOf keeps the relations active on that day.
func QueryRelations(db *gorm.DB, q RelationQuery) ([]OrgUnitRelation, error) {
	query := db
	if q.ChildID != nil {
		query = query.Where("child_id = ?", *q.ChildID)
	}
	if q.ParentID != nil {
		query = query.Where("parent_id = ?", *q.ParentID)
	}
	if q.RelationType != "" {
		query = query.Where("relation_type = ?", q.RelationType)
	}

	var relations []OrgUnitRelation
	if err := query.Order("effective_from DESC").Find(&relations).Error; err != nil {
		return nil, err
	}

	result := []OrgUnitRelation{}
	for _, r := range relations {
		if q.AsOf != nil && !r.ActiveOn(common.DayOf(*q.AsOf)) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func createRelationAs(c RelationCreation, s *session.Session) (*OrgUnitRelation, error) {
	var r *OrgUnitRelation
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		r, err = CreateRelation(tx, c, ac)
		return err
	})
	return r, err
}

func updateRelationAs(p RelationPatch, s *session.Session) (*OrgUnitRelation, error) {
	var r *OrgUnitRelation
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		r, err = UpdateRelation(tx, p.RelationKey, p.RelationUpdating, ac)
		return err
	})
	return r, err
}

func deleteRelationAs(key RelationKey, s *session.Session) error {
	return event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		return DeleteRelation(tx, key, ac)
	})
}

func queryRelationsAs(q RelationQuery, s *session.Session) ([]OrgUnitRelation, error) {
	return QueryRelations(persistence.ActiveDataSourceManager.GormDB(s.Context), q)
}

func checkRelationShape(parentID, childID types.ID, relationType string, from time.Time, to *time.Time) error {
	if !IsKnownRelationType(relationType) {
		return bizerror.ErrUnknownRelationType
	}
	if parentID == childID {
		return bizerror.ErrSelfRelation
	}
	if from.IsZero() || (to != nil && !to.After(from)) {
		return bizerror.ErrInvalidInterval
	}
	return nil
}

// checkCycle walks the cached parents of the proposed parent, reaching the child means a loop.
func checkCycle(tx *gorm.DB, childID, parentID types.ID) error {
	visited := map[types.ID]bool{}
	for cur := &parentID; cur != nil; {
		if *cur == childID {
			return bizerror.ErrHierarchyCycle
		}
		if visited[*cur] {
			return nil
		}
		visited[*cur] = true

		var u OrgUnit
		if err := tx.Where("id = ?", *cur).First(&u).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return nil
			}
			return err
		}
		cur = u.ParentID
	}
	return nil
}

func conflictError(tx *gorm.DB, c *Conflict) error {
	name := c.Edge.ParentID.String()
	var parent OrgUnit
	if err := tx.Where("id = ?", c.Edge.ParentID).First(&parent).Error; err == nil {
		name = parent.Name
	} else if !gorm.IsRecordNotFoundError(err) {
		return err
	}
	return &bizerror.ErrRelationConflict{
		ChildID:       c.Edge.ChildID,
		ParentID:      c.Edge.ParentID,
		ParentName:    name,
		EffectiveFrom: c.Edge.EffectiveFrom,
		EffectiveTo:   c.Edge.EffectiveTo,
		Reason:        c.Reason,
	}
}

func lockUnit(tx *gorm.DB, id types.ID) (*OrgUnit, error) {
	var u OrgUnit
	if err := persistence.LockRowForUpdate(tx, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func findUnit(tx *gorm.DB, id types.ID) (*OrgUnit, error) {
	var u OrgUnit
	if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func edgesOf(tx *gorm.DB, childID types.ID) ([]OrgUnitRelation, error) {
	var edges []OrgUnitRelation
	if err := tx.Where("child_id = ?", childID).Order("effective_from ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func splitEdges(edges []OrgUnitRelation, key RelationKey) (*OrgUnitRelation, []OrgUnitRelation) {
	var matched *OrgUnitRelation
	others := make([]OrgUnitRelation, 0, len(edges))
	for i := range edges {
		if matched == nil && key.Matches(edges[i]) {
			matched = &edges[i]
			continue
		}
		others = append(others, edges[i])
	}
	return matched, others
}

func updateEdge(tx *gorm.DB, r OrgUnitRelation) error {
	var to interface{}
	if r.EffectiveTo != nil {
		to = *r.EffectiveTo
	}
	return tx.Model(&OrgUnitRelation{}).
		Where(relationKeyCondition, r.ParentID, r.ChildID, r.RelationType, r.EffectiveFrom).
		Updates(map[string]interface{}{"effective_to": to, "note": r.Note}).Error
}

func deleteEdge(tx *gorm.DB, r OrgUnitRelation) error {
	return tx.Where(relationKeyCondition, r.ParentID, r.ChildID, r.RelationType, r.EffectiveFrom).
		Delete(&OrgUnitRelation{}).Error
}

func recordRelationEvent(tx *gorm.DB, child *OrgUnit, before, after *OrgUnitRelation, ac *event.AuditContext) error {
	change := event.UpdatedRelation{TargetType: SourceTypeOrgUnit, TargetTypeDesc: "Org Unit"}
	for _, r := range []*OrgUnitRelation{before, after} {
		if r == nil {
			continue
		}
		change.PropertyName = r.RelationType
		change.PropertyDesc = r.RelationType + " relation"
	}
	if before != nil {
		change.OldTargetId = before.ParentID.String()
		change.OldTargetDesc = describeWindow(*before)
	}
	if after != nil {
		change.NewTargetId = after.ParentID.String()
		change.NewTargetDesc = describeWindow(*after)
	}
	_, err := event.CreateEvent(SourceTypeOrgUnit, child.ID, child.Name, event.EventCategoryRelationUpdated,
		nil, event.UpdatedRelations{change}, ac, tx)
	return err
}

func describeWindow(r OrgUnitRelation) string {
	to := "open"
	if r.EffectiveTo != nil {
		to = r.EffectiveTo.Format("2006-01-02")
	}
	return r.EffectiveFrom.Format("2006-01-02") + " ~ " + to
}
