package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
	"github.com/kailas-cloud/imgdex/internal/logger"
)

type mockEmbedder struct {
	result    domain.EmbeddingResult
	err       error
	lastInput string
	healthErr error
}

func (m *mockEmbedder) EmbedText(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.lastInput = text
	return m.result, m.err
}

func (m *mockEmbedder) EmbedImage(_ context.Context, path string) (domain.EmbeddingResult, error) {
	m.lastInput = path
	return m.result, m.err
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthErr
}

func testMatrix(t *testing.T) matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows([][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return m
}

func TestInstrumentedEmbedder_Text(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Matrix: testMatrix(t), TotalTokens: 4}}
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.New(core))

	result, err := p.EmbedText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matrix.Rows() != 2 || result.TotalTokens != 4 {
		t.Fatalf("unexpected result: rows=%d tokens=%d", result.Matrix.Rows(), result.TotalTokens)
	}
	if inner.lastInput != "hello" {
		t.Errorf("inner got %q", inner.lastInput)
	}

	entries := logs.FilterMessage("Embedding request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 completion log, got %d", len(entries))
	}
	if kind := entries[0].ContextMap()["kind"]; kind != "text" {
		t.Errorf("kind = %v, want text", kind)
	}
}

func TestInstrumentedEmbedder_Image(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Matrix: testMatrix(t)}}
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	if _, err := p.EmbedImage(context.Background(), "/img/cat.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastInput != "/img/cat.png" {
		t.Errorf("inner got %q", inner.lastInput)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.New(core))

	_, err := p.EmbedImage(context.Background(), "/img/broken.png")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if logs.FilterMessage("Embedding request failed").Len() != 1 {
		t.Error("expected an error log entry")
	}
}

func TestInstrumentedEmbedder_UsesContextLogger(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("boom")}
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))
	if _, err := p.EmbedText(ctx, "q"); err == nil {
		t.Fatal("expected error")
	}
	if logs.Len() != 1 {
		t.Errorf("expected request-scoped logger to receive the entry, got %d", logs.Len())
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	inner := &mockEmbedder{healthErr: errors.New("down")}
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error to propagate")
	}
}
