package servehttp_test

import (
	"net/http"
	"net/http/httptest"
	"openpka/authority"
	"openpka/domain/hierarchy"
	"openpka/domain/workflow"
	"openpka/indices/search"
	"openpka/servehttp"
	"openpka/session"
	"openpka/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestBuildEngine(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should serve service name", func(t *testing.T) {
		engine := servehttp.BuildEngine(false)
		status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/", nil), engine)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("openpka"))
	})

	t.Run("should require authentication", func(t *testing.T) {
		engine := servehttp.BuildEngine(false)
		status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, hierarchy.PathOrgUnits+"/1", nil), engine)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))
	})

	t.Run("should route authenticated requests", func(t *testing.T) {
		engine := servehttp.BuildEngine(false)
		s := session.RegisterToken("server-test-token", session.Identity{ID: 1, Name: "admin"},
			authority.Permissions{authority.PermSystemAdmin}, time.Minute)
		defer session.TokenCache.Delete(s.Token)

		workflow.GetDashboardDataFunc = func(s *session.Session) (*workflow.DashboardData, error) {
			return &workflow.DashboardData{ByEntityType: map[string]*workflow.StatusCounts{}}, nil
		}
		hierarchy.DetailOrgUnitFunc = func(id types.ID, s *session.Session) (*hierarchy.OrgUnit, error) {
			return &hierarchy.OrgUnit{ID: id, Code: "CS"}, nil
		}

		req := httptest.NewRequest(http.MethodGet, workflow.PathWorkflowDashboard, nil)
		req.Header.Set("Authorization", "Bearer server-test-token")
		status, _, _ := testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusOK))

		req = httptest.NewRequest(http.MethodGet, hierarchy.PathOrgUnits+"/7", nil)
		req.Header.Set("Authorization", "Bearer server-test-token")
		status, _, _ = testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusOK))

		req = httptest.NewRequest(http.MethodGet, search.PathSearchOrgUnits+"?q=cs", nil)
		req.Header.Set("Authorization", "Bearer server-test-token")
		status, _, _ = testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusNotFound))
	})
}
