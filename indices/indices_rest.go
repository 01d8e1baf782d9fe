package indices

import (
	"net/http"
	"openpka/authority"
	"openpka/session"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	PathIndexRequests = "/v1/index-requests"

	reindexLimiter = rate.NewLimiter(rate.Every(time.Minute), 1)
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathIndexRequests, middleWares...)
	g.POST("", handleIndexRequest)
}

func handleIndexRequest(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermSystemAdmin)
	if !reindexLimiter.Allow() {
		c.JSON(http.StatusOK, gin.H{"result": "request rate limited"})
		return
	}
	started, err := ScheduleNewSyncRunFunc(s)
	if err != nil {
		panic(err)
	}
	if !started {
		c.JSON(http.StatusOK, gin.H{"result": "running"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": "started"})
}
