package indexstore

import (
	"context"
	"math"
	"testing"

	"github.com/kailas-cloud/imgdex/internal/db"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

// memKV is an in-memory blobKV for tests.
type memKV struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// nanPayload is a quiet NaN with a non-default payload.
var nanPayload = math.Float32frombits(0x7fc00abc)

func sampleIndex(t *testing.T) *index.Index {
	t.Helper()
	idx := index.New("colqwen-test")
	embeddings := map[string][][]float32{
		"/img/b.png": {{1, 0, 0}, {0, 1, 0}},
		"/img/a.jpg": {{float32(math.Inf(1)), float32(math.Inf(-1)), nanPayload}},
		"/img/c.bmp": {{float32(math.Copysign(0, -1)), 0, 0.5}, {0.25, -0.25, 1e-38}, {3, 2, 1}},
	}
	for _, p := range []string{"/img/b.png", "/img/a.jpg", "/img/c.bmp"} {
		m, err := matrix.FromRows(embeddings[p])
		if err != nil {
			t.Fatalf("FromRows: %v", err)
		}
		rec, err := index.NewRecord(p, m)
		if err != nil {
			t.Fatalf("NewRecord: %v", err)
		}
		if err := idx.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return idx
}

// assertSameIndex compares two indexes bit for bit.
func assertSameIndex(t *testing.T, want, got *index.Index) {
	t.Helper()
	if got.Model() != want.Model() {
		t.Errorf("model = %q, want %q", got.Model(), want.Model())
	}
	if got.Dimension() != want.Dimension() {
		t.Errorf("dimension = %d, want %d", got.Dimension(), want.Dimension())
	}
	if got.Len() != want.Len() {
		t.Fatalf("len = %d, want %d", got.Len(), want.Len())
	}
	for i := 0; i < want.Len(); i++ {
		w, g := want.At(i), got.At(i)
		if g.ID() != w.ID() || g.SourcePath() != w.SourcePath() {
			t.Errorf("record %d = (%s, %s), want (%s, %s)", i, g.ID(), g.SourcePath(), w.ID(), w.SourcePath())
		}
		we, ge := w.Embedding(), g.Embedding()
		if ge.Rows() != we.Rows() || ge.Dim() != we.Dim() {
			t.Fatalf("record %d shape = %dx%d, want %dx%d", i, ge.Rows(), ge.Dim(), we.Rows(), we.Dim())
		}
		wd, gd := we.Data(), ge.Data()
		for j := range wd {
			if math.Float32bits(gd[j]) != math.Float32bits(wd[j]) {
				t.Errorf("record %d value %d bits = %#x, want %#x",
					i, j, math.Float32bits(gd[j]), math.Float32bits(wd[j]))
			}
		}
	}
}
