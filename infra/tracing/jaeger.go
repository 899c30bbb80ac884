package tracing

import (
	"io"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitGlobalTracer installs a Jaeger tracer configured by the JAEGER_* environment variables. Tracing stays a
// no-op when JAEGER_DISABLED is true or JAEGER_AGENT_HOST and JAEGER_ENDPOINT are both unset.
func InitGlobalTracer(serviceName string) (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	// FromEnv defaults the agent to localhost:6831, only explicit variables enable tracing
	if cfg.Disabled || (os.Getenv("JAEGER_AGENT_HOST") == "" && os.Getenv("JAEGER_ENDPOINT") == "") {
		logrus.Info("tracing disabled")
		return nopCloser{}, nil
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(logrusLogger{}))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	logrus.Infof("tracing enabled for service %s", cfg.ServiceName)
	return closer, nil
}

type logrusLogger struct{}

func (logrusLogger) Error(msg string) {
	logrus.Error(msg)
}

func (logrusLogger) Infof(msg string, args ...interface{}) {
	logrus.Infof(msg, args...)
}
