package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracedLLM struct {
	next     CoreLLM
	tracer   trace.Tracer
	provider string
}

// TracingMiddleware wraps each request in an "llm.request" span from the
// global tracer provider.
func TracingMiddleware(provider string) Middleware {
	return TracingMiddlewareWithTracer(otel.Tracer("github.com/ahrav/litcast/infrastructure/llm"), provider)
}

// TracingMiddlewareWithTracer is TracingMiddleware with an explicit tracer.
func TracingMiddlewareWithTracer(tracer trace.Tracer, provider string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &tracedLLM{next: next, tracer: tracer, provider: provider}
	}
}

func (t *tracedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "llm.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", t.provider),
			attribute.String("llm.model", t.next.GetModel()),
			attribute.Int("llm.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return response, tokensIn, tokensOut, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", tokensIn),
		attribute.Int("llm.tokens.output", tokensOut),
		attribute.Int("llm.response.length", len(response)),
	)
	return response, tokensIn, tokensOut, nil
}

func (t *tracedLLM) GetModel() string  { return t.next.GetModel() }
func (t *tracedLLM) SetModel(m string) { t.next.SetModel(m) }
