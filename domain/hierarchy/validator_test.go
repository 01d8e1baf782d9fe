package hierarchy_test

import (
	"math/rand"
	"openpka/common"
	"openpka/domain/hierarchy"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func day(y int, m time.Month, d int) time.Time {
	return common.Date(y, m, d)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := common.Date(y, m, d)
	return &t
}

func direct(parent, child types.ID, from time.Time, to *time.Time) hierarchy.OrgUnitRelation {
	return hierarchy.OrgUnitRelation{ParentID: parent, ChildID: child, RelationType: hierarchy.RelationDirect, EffectiveFrom: from, EffectiveTo: to}
}

func TestValidateRelation(t *testing.T) {
	RegisterTestingT(t)

	existing := []hierarchy.OrgUnitRelation{direct(1, 10, day(2024, 1, 1), dayPtr(2024, 6, 30))}
	today := day(2024, 4, 1)

	t.Run("should ignore non exclusive relation types", func(t *testing.T) {
		for _, relationType := range []string{hierarchy.RelationAdvisory, hierarchy.RelationSupport, hierarchy.RelationCollab} {
			proposed := direct(2, 10, day(2024, 3, 1), nil)
			proposed.RelationType = relationType
			Expect(hierarchy.ValidateRelation(proposed, existing, today)).To(BeNil())
		}
	})

	t.Run("should reject an edge to a different parent active today", func(t *testing.T) {
		c := hierarchy.ValidateRelation(direct(2, 10, day(2024, 3, 1), dayPtr(2024, 12, 31)), existing, today)
		Expect(c).ToNot(BeNil())
		Expect(c.Reason).To(Equal(hierarchy.ConflictActiveParent))
		Expect(c.Edge).To(Equal(existing[0]))
	})

	t.Run("should reject an overlapping future or past edge", func(t *testing.T) {
		c := hierarchy.ValidateRelation(direct(2, 10, day(2023, 6, 1), dayPtr(2024, 1, 2)), existing, today)
		Expect(c).ToNot(BeNil())
		Expect(c.Reason).To(Equal(hierarchy.ConflictOverlap))

		c = hierarchy.ValidateRelation(direct(2, 10, day(2024, 3, 1), dayPtr(2024, 12, 31)), existing, day(2020, 1, 1))
		Expect(c).ToNot(BeNil())
		Expect(c.Reason).To(Equal(hierarchy.ConflictOverlap))
	})

	t.Run("should accept adjacent intervals", func(t *testing.T) {
		Expect(hierarchy.ValidateRelation(direct(2, 10, day(2024, 6, 30), nil), existing, today)).To(BeNil())
		Expect(hierarchy.ValidateRelation(direct(2, 10, day(2024, 7, 1), nil), existing, today)).To(BeNil())
		Expect(hierarchy.ValidateRelation(direct(2, 10, day(2023, 1, 1), dayPtr(2024, 1, 1)), existing, today)).To(BeNil())
	})

	t.Run("should never conflict with the same parent", func(t *testing.T) {
		Expect(hierarchy.ValidateRelation(direct(1, 10, day(2024, 2, 1), nil), existing, today)).To(BeNil())
	})

	t.Run("should ignore edges of other children and other types", func(t *testing.T) {
		others := []hierarchy.OrgUnitRelation{
			direct(1, 11, day(2024, 1, 1), nil),
			{ParentID: 3, ChildID: 10, RelationType: hierarchy.RelationAdvisory, EffectiveFrom: day(2024, 1, 1)},
		}
		Expect(hierarchy.ValidateRelation(direct(2, 10, day(2024, 1, 1), nil), others, today)).To(BeNil())
	})
}

func TestOverlaps(t *testing.T) {
	RegisterTestingT(t)

	Expect(hierarchy.Overlaps(day(2024, 1, 1), nil, day(2030, 1, 1), nil)).To(BeTrue())
	Expect(hierarchy.Overlaps(day(2024, 1, 1), dayPtr(2024, 2, 1), day(2024, 2, 1), nil)).To(BeFalse())
	Expect(hierarchy.Overlaps(day(2024, 1, 1), dayPtr(2024, 2, 2), day(2024, 2, 1), nil)).To(BeTrue())
	Expect(hierarchy.Overlaps(day(2024, 3, 1), nil, day(2024, 1, 1), dayPtr(2024, 3, 1))).To(BeFalse())
}

func TestActiveOn(t *testing.T) {
	RegisterTestingT(t)

	r := direct(1, 2, day(2024, 1, 1), dayPtr(2024, 6, 30))
	Expect(r.ActiveOn(day(2023, 12, 31))).To(BeFalse())
	Expect(r.ActiveOn(day(2024, 1, 1))).To(BeTrue())
	Expect(r.ActiveOn(day(2024, 6, 29))).To(BeTrue())
	Expect(r.ActiveOn(day(2024, 6, 30))).To(BeFalse())
	Expect(direct(1, 2, day(2024, 1, 1), nil).ActiveOn(day(2999, 1, 1))).To(BeTrue())
}

const horizon = 120

func randomEdge(rnd *rand.Rand, parent types.ID) hierarchy.OrgUnitRelation {
	base := day(2024, 1, 1)
	from := rnd.Intn(horizon - 20)
	var to *time.Time
	if rnd.Intn(4) > 0 {
		end := base.AddDate(0, 0, from+1+rnd.Intn(30))
		to = &end
	}
	return direct(parent, 99, base.AddDate(0, 0, from), to)
}

func bruteForceOverlap(a, b hierarchy.OrgUnitRelation) bool {
	for d := day(2024, 1, 1); d.Before(day(2024, 1, 1).AddDate(0, 0, horizon+40)); d = d.AddDate(0, 0, 1) {
		if a.ActiveOn(d) && b.ActiveOn(d) {
			return true
		}
	}
	return false
}

func TestValidateRelationExclusivityProperty(t *testing.T) {
	RegisterTestingT(t)
	rnd := rand.New(rand.NewSource(20240701))

	t.Run("should reject exactly the overlapping pairs", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			existing := randomEdge(rnd, 1)
			proposed := randomEdge(rnd, 2)
			today := day(2024, 1, 1).AddDate(0, 0, rnd.Intn(horizon))

			c := hierarchy.ValidateRelation(proposed, []hierarchy.OrgUnitRelation{existing}, today)
			Expect(c != nil).To(Equal(bruteForceOverlap(existing, proposed)), "existing %v proposed %v", existing, proposed)
		}
	})

	t.Run("accepted edges never overlap across parents", func(t *testing.T) {
		for round := 0; round < 50; round++ {
			accepted := []hierarchy.OrgUnitRelation{}
			today := day(2024, 1, 1).AddDate(0, 0, rnd.Intn(horizon))
			for i := 0; i < 30; i++ {
				proposed := randomEdge(rnd, types.ID(1+rnd.Intn(4)))
				if hierarchy.ValidateRelation(proposed, accepted, today) == nil {
					accepted = append(accepted, proposed)
				}
			}
			for i := range accepted {
				for j := i + 1; j < len(accepted); j++ {
					if accepted[i].ParentID != accepted[j].ParentID {
						Expect(bruteForceOverlap(accepted[i], accepted[j])).To(BeFalse())
					}
				}
			}
		}
	})
}
