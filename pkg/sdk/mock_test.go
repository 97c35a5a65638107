package imgdex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeEmbedder maps image base names and query texts to fixed token matrices.
type fakeEmbedder struct {
	images  map[string][][]float32
	queries map[string][][]float32
	calls   int
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, path string) (EmbeddingResult, error) {
	f.calls++
	rows, ok := f.images[filepath.Base(path)]
	if !ok {
		return EmbeddingResult{}, errors.New("unreadable image")
	}
	return EmbeddingResult{Tokens: rows, PromptTokens: len(rows), TotalTokens: len(rows)}, nil
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) (EmbeddingResult, error) {
	f.calls++
	rows, ok := f.queries[text]
	if !ok {
		return EmbeddingResult{}, errors.New("unknown query")
	}
	return EmbeddingResult{Tokens: rows}, nil
}

// colorEmbedder knows a red and a blue image; broken.jpg fails to embed.
func colorEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		images: map[string][][]float32{
			"red.png":  {{1, 0}},
			"blue.jpg": {{0, 1}},
		},
		queries: map[string][][]float32{
			"red":  {{3, 0}},
			"blue": {{0, 3}},
		},
	}
}

// imageDir creates empty files; the fake embedder never reads them.
func imageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return dir
}
