package workflow

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
	PathWorkflowDefinitions = "/v1/workflow-definitions"
	PathWorkflows           = "/v1/workflows"
	PathWorkflowDashboard   = "/v1/workflow-dashboard"
)

type entityQuery struct {
	EntityType string   `form:"entityType" binding:"required"`
	EntityID   types.ID `form:"entityId" binding:"required"`
}

type definitionQuery struct {
	EntityType string `form:"entityType" binding:"required"`
}

func RegisterWorkflowDefinitionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflowDefinitions, middleWares...)
	g.POST("", handleCreateDefinition)
	g.GET("active", handleFindActiveDefinition)
}

func RegisterWorkflowsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflows, middleWares...)
	g.POST("", handleCreateWorkflow)
	g.GET("", handleGetWorkflowByEntity)
	g.GET(":id", handleDetailWorkflow)
	g.GET(":id/records", handleListRecords)
	g.POST(":id/actions", handleProcessAction)

	r.GET(PathWorkflowDashboard, append(middleWares, handleDashboard)...)
}

func handleCreateDefinition(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowAdmin)
	creation := DefinitionCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	d, err := CreateDefinitionFunc(creation, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, d)
}

func handleFindActiveDefinition(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	q := definitionQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	d, err := FindActiveDefinitionFunc(q.EntityType, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, d)
}

func handleCreateWorkflow(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	creation := WorkflowCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	instance, err := CreateWorkflowFunc(creation, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, instance)
}

func handleGetWorkflowByEntity(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	q := entityQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	instance, err := GetWorkflowByEntityFunc(q.EntityType, q.EntityID, s)
	if err != nil {
		panic(err)
	}
	if instance == nil {
		panic(bizerror.ErrNotFound)
	}
	c.JSON(http.StatusOK, instance)
}

func handleDetailWorkflow(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	detail, err := DetailWorkflowFunc(pathID(c), s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleListRecords(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	id := pathID(c)
	q := RecordQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := ListRecordsFunc(id, q, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleProcessAction(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	id := pathID(c)
	req := ActionRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	instance, err := ProcessActionFunc(id, req, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, instance)
}

func handleDashboard(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermWorkflowWrite)
	data, err := GetDashboardDataFunc(s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, data)
}

func pathID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}
