package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "rank")
	require.NotEmpty(t, root.TraceID)

	childCtx, child := StartSpan(ctx, "scan")
	child.SetAttr("words", 3)
	child.End()
	assert.Same(t, child, SpanFromContext(childCtx))
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, root.TraceID, child.TraceID)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(context.Background(), l)
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "words=3")
}

func TestSeparateRootsGetDistinctTraces(t *testing.T) {
	_, a := StartSpan(context.Background(), "a")
	_, b := StartSpan(context.Background(), "b")
	assert.NotEqual(t, a.TraceID, b.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}
