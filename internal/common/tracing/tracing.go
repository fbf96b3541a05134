package tracing

import (
	"fmt"
	"io"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer 初始化Jaeger Tracer。
// endpoint 为 http(s) URL 时走 collector，否则按 agent host:port 上报。
// sampler 取 (0,1) 时按比例采样，否则全采或不采。
func InitTracer(serviceName, endpoint string, sampler float64) (opentracing.Tracer, io.Closer, error) {
	samplerCfg := &jaegercfg.SamplerConfig{
		Type:  jaeger.SamplerTypeConst,
		Param: 1,
	}
	if sampler <= 0 {
		samplerCfg.Param = 0
	} else if sampler < 1 {
		samplerCfg.Type = jaeger.SamplerTypeProbabilistic
		samplerCfg.Param = sampler
	}

	reporter := &jaegercfg.ReporterConfig{}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		reporter.CollectorEndpoint = endpoint
	} else {
		reporter.LocalAgentHostPort = endpoint
	}

	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     samplerCfg,
		Reporter:    reporter,
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}
