package session_test

import (
	"net/http"
	"net/http/httptest"
	"openpka/authority"
	"openpka/bizerror"
	"openpka/session"
	"openpka/testinfra"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestExtractSessionFromGinContext(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should return anonymous session when not authenticated", func(t *testing.T) {
		ginCtx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ginCtx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		s := session.ExtractSessionFromGinContext(ginCtx)
		Expect(s.Token).To(BeEmpty())
		Expect(s.Context).ToNot(BeNil())
		Expect(s.RequestID).ToNot(BeEmpty())
		Expect(s.HasPerm(authority.PermOrgRead)).To(BeFalse())
	})

	t.Run("should return a copy of the authenticated session", func(t *testing.T) {
		ginCtx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ginCtx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		ginCtx.Request.Header.Set(session.HeaderRequestID, "req-1")
		origin := testinfra.BuildSession(10, "user 10", authority.PermOrgWrite)
		session.InjectSessionIntoGinContext(ginCtx, origin)

		s := session.ExtractSessionFromGinContext(ginCtx)
		Expect(s).ToNot(BeIdenticalTo(origin))
		Expect(s.Identity).To(Equal(session.Identity{ID: 10, Name: "user 10"}))
		Expect(s.RequestID).To(Equal("req-1"))
		Expect(s.HasPerm(authority.PermOrgWrite)).To(BeTrue())
	})
}

func TestSimpleAuthFilter(t *testing.T) {
	RegisterTestingT(t)

	router := gin.New()
	router.Use(bizerror.ErrorHandling(), session.SimpleAuthFilter())
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, session.ExtractSessionFromGinContext(c).Identity)
	})

	t.Run("should reject requests without valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))

		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer unknown")
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	t.Run("should accept bearer token and cookie", func(t *testing.T) {
		s := session.IssueToken(session.Identity{ID: 20, Name: "user 20"}, authority.Permissions{authority.PermOrgRead}, time.Minute)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+s.Token)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"id":"20","name":"user 20"}`))

		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: s.Token})
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
	})
}

func TestRequirePerm(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	s := testinfra.BuildSession(20, "user 20", authority.PermOrgRead)
	router.GET("/read", testinfra.InjectSession(s), func(c *gin.Context) {
		c.JSON(http.StatusOK, session.RequirePerm(c, authority.PermOrgRead).Identity)
	})
	router.GET("/write", testinfra.InjectSession(s), func(c *gin.Context) {
		c.JSON(http.StatusOK, session.RequirePerm(c, authority.PermOrgWrite).Identity)
	})

	status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/read", nil), router)
	Expect(status).To(Equal(http.StatusOK))
	Expect(body).To(MatchJSON(`{"id":"20","name":"user 20"}`))

	status, body, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/write", nil), router)
	Expect(status).To(Equal(http.StatusForbidden))
	Expect(body).To(MatchJSON(`{"code":"security.forbidden","message":"forbidden","data":null}`))
}
