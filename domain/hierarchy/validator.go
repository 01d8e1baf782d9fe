package hierarchy

import (
	"time"
)

const (
	ConflictActiveParent = "ACTIVE_PARENT"
	ConflictOverlap      = "OVERLAP"
)

// Conflict carries the existing edge blocking a proposed direct relation.
type Conflict struct {
	Edge   OrgUnitRelation
	Reason string
}

// ValidateRelation checks the proposed edge against the existing edges of the same child.
// Only direct edges are exclusive, edges to the same parent never conflict.
// today must be a calendar day as produced by common.DayOf.
func ValidateRelation(proposed OrgUnitRelation, existing []OrgUnitRelation, today time.Time) *Conflict {
	if proposed.RelationType != RelationDirect {
		return nil
	}

	candidates := make([]OrgUnitRelation, 0, len(existing))
	for _, e := range existing {
		if e.RelationType != RelationDirect || e.ChildID != proposed.ChildID || e.ParentID == proposed.ParentID {
			continue
		}
		candidates = append(candidates, e)
	}

	if proposed.ActiveOn(today) {
		for _, e := range candidates {
			if e.ActiveOn(today) {
				return &Conflict{Edge: e, Reason: ConflictActiveParent}
			}
		}
	}

	for _, e := range candidates {
		if Overlaps(proposed.EffectiveFrom, proposed.EffectiveTo, e.EffectiveFrom, e.EffectiveTo) {
			return &Conflict{Edge: e, Reason: ConflictOverlap}
		}
	}
	return nil
}

// Overlaps tests two half-open intervals [aFrom, aTo) and [bFrom, bTo), nil ends are unbounded.
func Overlaps(aFrom time.Time, aTo *time.Time, bFrom time.Time, bTo *time.Time) bool {
	return before(aFrom, bTo) && before(bFrom, aTo)
}

func before(t time.Time, end *time.Time) bool {
	return end == nil || t.Before(*end)
}
