package review

import (
	"net/http"
	"openpka/authority"
	"openpka/bizerror"
	"openpka/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathReviews = "/v1/reviews"

func RegisterReviewsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathReviews, middleWares...)
	g.POST("submissions", handleSubmit)
	g.POST("status-changes", handleChangeStatus)
}

func handleSubmit(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermReviewWrite)
	req := SubmitRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := SubmitForReviewFunc(req, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}

func handleChangeStatus(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermReviewWrite)
	change := StatusChange{}
	if err := c.ShouldBindBodyWith(&change, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := ChangeStatusFunc(change, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}
