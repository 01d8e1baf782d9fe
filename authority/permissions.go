package authority

import "strings"

const (
	PermOrgWrite      = "org:write"
	PermOrgRead       = "org:read"
	PermWorkflowWrite = "workflow:write"
	PermWorkflowAdmin = "workflow:admin"
	PermReviewWrite   = "review:write"
	PermSystemAdmin   = "system:admin"
)

type Permissions []string

// HasPerm is the "is this actor allowed to do X" predicate consumed by handlers.
// system:admin implies every permission.
func (c Permissions) HasPerm(perm string) bool {
	for _, v := range c {
		if strings.EqualFold(v, perm) || strings.EqualFold(v, PermSystemAdmin) {
			return true
		}
	}
	return false
}

func (c Permissions) HasRolePrefix(prefix string) bool {
	for _, v := range c {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
