package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/felixgeelhaar/codementor/internal/llm"

// TracingProvider records one span per Generate call on the global tracer
type TracingProvider struct {
	provider Provider
	tracer   trace.Tracer
}

// NewTracingProvider wraps p. When telemetry is disabled the global tracer is a no-op.
func NewTracingProvider(p Provider) *TracingProvider {
	return &TracingProvider{
		provider: p,
		tracer:   otel.Tracer(tracerName),
	}
}

func (p *TracingProvider) Name() string {
	return p.provider.Name()
}

// Unwrap returns the wrapped provider
func (p *TracingProvider) Unwrap() Provider {
	return p.provider
}

// Close closes the wrapped provider if it holds resources
func (p *TracingProvider) Close() error {
	if c, ok := p.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (p *TracingProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.vendor", p.provider.Name()),
			attribute.String("llm.request.model", req.Model),
			attribute.Int("llm.request.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := p.provider.Generate(ctx, req)
	span.SetAttributes(attribute.Int64("llm.latency_ms", time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := StatusCode(err); code != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", code))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("llm.response.model", resp.Model),
		attribute.String("llm.response.finish_reason", resp.FinishReason),
		attribute.Int("llm.token_count.prompt", resp.Usage.InputTokens),
		attribute.Int("llm.token_count.completion", resp.Usage.OutputTokens),
	)
	return resp, nil
}
