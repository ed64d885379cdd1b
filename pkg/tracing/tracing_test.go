package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newRecorder 安装内存exporter，测试结束后关闭
func newRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

func TestStartSpan_ParentChild(t *testing.T) {
	exporter := newRecorder(t)

	ctx, root := StartSpan(context.Background(), "borrowing.create")
	_, child := StartSpan(ctx, "borrowing.create.tx")
	child.End()
	root.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("期望2个Span，实际: %d", len(spans))
	}
	childStub, rootStub := spans[0], spans[1]
	if childStub.Parent.SpanID() != rootStub.SpanContext.SpanID() {
		t.Error("子Span的父ID应为根Span")
	}
	if childStub.SpanContext.TraceID() != rootStub.SpanContext.TraceID() {
		t.Error("父子Span应属于同一Trace")
	}
}

func TestEnd_SetsStatus(t *testing.T) {
	exporter := newRecorder(t)

	_, okSpan := StartSpan(context.Background(), "ok")
	End(okSpan, nil)
	_, badSpan := StartSpan(context.Background(), "bad")
	End(badSpan, errors.New("out of stock"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("期望2个Span，实际: %d", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("成功Span状态错误: %v", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error || spans[1].Status.Description != "out of stock" {
		t.Errorf("失败Span状态错误: %+v", spans[1].Status)
	}
	if len(spans[1].Events) == 0 {
		t.Error("失败Span应记录错误事件")
	}
}

func TestExtractIDs(t *testing.T) {
	newRecorder(t)

	if ExtractTraceID(context.Background()) != "" || ExtractSpanID(context.Background()) != "" {
		t.Error("无Span时应返回空串")
	}

	ctx, span := StartSpan(context.Background(), "extract")
	defer span.End()

	if got := ExtractTraceID(ctx); len(got) != 32 {
		t.Errorf("TraceID长度错误: %q", got)
	}
	if got := ExtractSpanID(ctx); len(got) != 16 {
		t.Errorf("SpanID长度错误: %q", got)
	}
}
