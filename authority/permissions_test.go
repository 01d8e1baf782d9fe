package authority_test

import (
	"openpka/authority"
	"testing"

	. "github.com/onsi/gomega"
)

func TestPermissions(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should match permission ignoring case", func(t *testing.T) {
		perms := authority.Permissions{"ORG:write", "workflow:read"}
		Expect(perms.HasPerm(authority.PermOrgWrite)).To(BeTrue())
		Expect(perms.HasPerm(authority.PermWorkflowAdmin)).To(BeFalse())
		Expect(perms.HasRolePrefix("workflow:")).To(BeTrue())
	})

	t.Run("system admin should have every permission", func(t *testing.T) {
		perms := authority.Permissions{authority.PermSystemAdmin}
		Expect(perms.HasPerm(authority.PermWorkflowAdmin)).To(BeTrue())
		Expect(perms.HasPerm("anything")).To(BeTrue())
	})

	t.Run("empty permissions have nothing", func(t *testing.T) {
		var perms authority.Permissions
		Expect(perms.HasPerm(authority.PermOrgRead)).To(BeFalse())
	})
}
