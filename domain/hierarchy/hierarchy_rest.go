package hierarchy

import (
	"errors"
	"net/http"
	"openpka/authority"
	"openpka/bizerror"
	"openpka/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathOrgUnits     = "/v1/org-units"
	PathOrgRelations = "/v1/org-relations"

	PathHierarchySyncs = "/v1/hierarchy-syncs"
)

func RegisterOrgUnitsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathOrgUnits, middleWares...)
	g.POST("", handleCreateOrgUnit)
	g.GET(":id", handleDetailOrgUnit)
	g.PATCH(":id", handleUpdateOrgUnit)

	r.POST(PathHierarchySyncs, append(middleWares, handleSyncHierarchy)...)
}

func RegisterOrgRelationsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathOrgRelations, middleWares...)
	g.GET("", handleQueryRelations)
	g.POST("", handleCreateRelation)
	g.PATCH("", handleUpdateRelation)
	g.DELETE("", handleDeleteRelation)
}

func handleCreateOrgUnit(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgWrite)
	creation := OrgUnitCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	u, err := CreateOrgUnitFunc(creation, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, u)
}

func handleDetailOrgUnit(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgRead)
	id := pathID(c)
	u, err := DetailOrgUnitFunc(id, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, u)
}

func handleUpdateOrgUnit(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgWrite)
	id := pathID(c)
	updating := OrgUnitUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	u, err := UpdateOrgUnitFunc(id, updating, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, u)
}

func handleSyncHierarchy(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermSystemAdmin)
	synced, err := SyncHierarchyFunc(s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func handleQueryRelations(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgRead)
	query := RelationQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	relations, err := QueryRelationsFunc(query, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, relations)
}

func handleCreateRelation(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgWrite)
	creation := RelationCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	r, err := CreateRelationFunc(creation, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, r)
}

func handleUpdateRelation(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgWrite)
	patch := RelationPatch{}
	if err := c.ShouldBindBodyWith(&patch, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	r, err := UpdateRelationFunc(patch, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, r)
}

func handleDeleteRelation(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgWrite)
	key := RelationKey{}
	if err := c.ShouldBindBodyWith(&key, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := DeleteRelationFunc(key, s); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}
