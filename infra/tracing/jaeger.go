package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type jaegerLogger struct{}

func (jaegerLogger) Error(msg string) {
	logrus.Error("jaeger: " + msg)
}

func (jaegerLogger) Infof(msg string, args ...interface{}) {
	logrus.Debugf("jaeger: "+msg, args...)
}

// Bootstrap installs a jaeger tracer configured from JAEGER_* variables as the global tracer.
// The returned closer flushes pending spans.
func Bootstrap(serviceName string) (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaegerLogger{}))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	logrus.Infof("tracing enabled, service %s", cfg.ServiceName)
	return closer, nil
}
