package hierarchy

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	RelationDirect   = "direct"
	RelationAdvisory = "advisory"
	RelationSupport  = "support"
	RelationCollab   = "collab"

	SourceTypeOrgUnit = "ORG_UNIT"
)

var RelationTypes = []string{RelationDirect, RelationAdvisory, RelationSupport, RelationCollab}

func IsKnownRelationType(t string) bool {
	for _, v := range RelationTypes {
		if v == t {
			return true
		}
	}
	return false
}

type OrgUnit struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Code   string `json:"code" gorm:"unique_index:uni_org_unit_code"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`

	// ParentID caches the parent of the currently active direct relation, only SyncParent writes it
	ParentID *types.ID `json:"parentId"`

	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

func (OrgUnit) TableName() string {
	return "org_units"
}

type OrgUnitCreation struct {
	Code     string    `json:"code" binding:"required,lte=64"`
	Name     string    `json:"name" binding:"required,lte=255"`
	Type     string    `json:"type" binding:"required,lte=64"`
	Status   string    `json:"status" binding:"lte=64"`
	ParentID *types.ID `json:"parentId"`
}

type OrgUnitUpdating struct {
	Name   *string `json:"name" binding:"omitempty,lte=255"`
	Type   *string `json:"type" binding:"omitempty,lte=64"`
	Status *string `json:"status" binding:"omitempty,lte=64"`

	ParentID    *types.ID `json:"parentId"`
	ClearParent bool      `json:"clearParent"`
}

// OrgUnitRelation is one validity window of a parent-child edge.
// Intervals are half-open [EffectiveFrom, EffectiveTo), a nil EffectiveTo never ends.
type OrgUnitRelation struct {
	ParentID      types.ID  `json:"parentId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ChildID       types.ID  `json:"childId" gorm:"primary_key;index:idx_relation_child" sql:"type:BIGINT UNSIGNED NOT NULL"`
	RelationType  string    `json:"relationType" gorm:"primary_key" sql:"type:VARCHAR(32) NOT NULL"`
	EffectiveFrom time.Time `json:"effectiveFrom" gorm:"primary_key"`

	EffectiveTo *time.Time `json:"effectiveTo"`
	Note        string     `json:"note"`

	CreateTime time.Time `json:"createTime"`
}

func (OrgUnitRelation) TableName() string {
	return "org_unit_relations"
}

func (r OrgUnitRelation) Key() RelationKey {
	return RelationKey{ParentID: r.ParentID, ChildID: r.ChildID, RelationType: r.RelationType, EffectiveFrom: r.EffectiveFrom}
}

// ActiveOn reports whether the relation is in effect on the given calendar day, effective_to itself excluded.
func (r OrgUnitRelation) ActiveOn(day time.Time) bool {
	return !r.EffectiveFrom.After(day) && (r.EffectiveTo == nil || day.Before(*r.EffectiveTo))
}

type RelationKey struct {
	ParentID      types.ID  `json:"parentId" binding:"required"`
	ChildID       types.ID  `json:"childId" binding:"required"`
	RelationType  string    `json:"relationType" binding:"required"`
	EffectiveFrom time.Time `json:"effectiveFrom" binding:"required"`
}

func (k RelationKey) Matches(r OrgUnitRelation) bool {
	return k.ParentID == r.ParentID && k.ChildID == r.ChildID && k.RelationType == r.RelationType &&
		k.EffectiveFrom.Equal(r.EffectiveFrom)
}

type RelationCreation struct {
	ParentID      types.ID   `json:"parentId" binding:"required"`
	ChildID       types.ID   `json:"childId" binding:"required"`
	RelationType  string     `json:"relationType" binding:"required"`
	EffectiveFrom time.Time  `json:"effectiveFrom" binding:"required"`
	EffectiveTo   *time.Time `json:"effectiveTo"`
	Note          string     `json:"note" binding:"lte=1000"`
}

type RelationUpdating struct {
	EffectiveTo      *time.Time `json:"effectiveTo"`
	ClearEffectiveTo bool       `json:"clearEffectiveTo"`
	Note             *string    `json:"note" binding:"omitempty,lte=1000"`
}

type RelationPatch struct {
	RelationKey
	RelationUpdating
}

type RelationQuery struct {
	ChildID      *types.ID  `json:"childId" form:"childId"`
	ParentID     *types.ID  `json:"parentId" form:"parentId"`
	RelationType string     `json:"relationType" form:"relationType"`
	AsOf         *time.Time `json:"asOf" form:"asOf" time_format:"2006-01-02" time_utc:"1"`
}
