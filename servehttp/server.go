package servehttp

import (
	"context"
	"net/http"
	"openpka/bizerror"
	"openpka/common"
	"openpka/domain/hierarchy"
	"openpka/domain/review"
	"openpka/domain/workflow"
	"openpka/indices"
	"openpka/indices/search"
	"openpka/infra/tracing"
	"openpka/session"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var ShutdownTimeout = 3 * time.Second

// BuildEngine registers every REST API behind the token filter, search routes only when search is enabled.
func BuildEngine(searchEnabled bool) *gin.Engine {
	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	auth := session.SimpleAuthFilter()
	hierarchy.RegisterOrgUnitsRestAPI(engine, auth)
	hierarchy.RegisterOrgRelationsRestAPI(engine, auth)
	workflow.RegisterWorkflowDefinitionsRestAPI(engine, auth)
	workflow.RegisterWorkflowsRestAPI(engine, auth)
	review.RegisterReviewsRestAPI(engine, auth)
	if searchEnabled {
		search.RegisterSearchRestAPI(engine, auth)
		indices.RegisterIndicesRestAPI(engine, auth)
	}
	return engine
}

// StartHTTPServer serves until SIGINT or SIGTERM, then drains in-flight requests.
func StartHTTPServer(addr string, engine *gin.Engine) error {
	srv := &http.Server{Addr: addr, Handler: engine}

	failed := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			failed <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-failed:
		return err
	case <-quit:
	}
	logrus.Infof("[QUIT] shutdown signal has been received, the service will exit in %s", ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("[QUIT] http server is shutdown gracefully")
	return nil
}
