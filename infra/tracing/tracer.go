package tracing

import (
	"io"
	"io/ioutil"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

type logrusAdapter struct{}

var _ jaeger.Logger = logrusAdapter{}

func (logrusAdapter) Error(msg string) {
	logrus.WithField("component", "jaeger").Error(msg)
}

func (logrusAdapter) Infof(msg string, args ...interface{}) {
	logrus.WithField("component", "jaeger").Debugf(msg, args...)
}

// InitGlobalTracer configures jaeger from the JAEGER_* environment and installs it as the global tracer.
// When disabled the no-op tracer stays in place.
func InitGlobalTracer(serviceName string, enabled bool) (io.Closer, error) {
	if !enabled {
		return ioutil.NopCloser(nil), nil
	}
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(logrusAdapter{}), jaegercfg.Metrics(metrics.NullFactory))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	logrus.Infof("tracing enabled, service name %s", cfg.ServiceName)
	return closer, nil
}
