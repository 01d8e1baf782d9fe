package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

func init() {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	logger.Formatter = &logrus.JSONFormatter{}
	logger.AddHook(&DefaultFieldsHook{})
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = GetServiceName()
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}

// GetServiceName SERVICE_NAME, default "openpka"
func GetServiceName() string {
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	return "openpka"
}

// GetServiceInstance SERVICE_INSTANCE, falls back to the host name
func GetServiceInstance() string {
	if instance := os.Getenv("SERVICE_INSTANCE"); instance != "" {
		return instance
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// SetLogLevel parses level and applies it to the standard logger, invalid values are ignored.
func SetLogLevel(level string) {
	if level == "" {
		return
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("invalid log level %q, keep %s", level, logrus.GetLevel())
		return
	}
	logrus.SetLevel(l)
}
