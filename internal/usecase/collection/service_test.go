package collection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
)

// --- Mocks ---

type mockStore struct {
	loaded  *index.Index
	loadErr error
	saveErr error
	saved   []*index.Index
}

func (m *mockStore) Load(_ context.Context) (*index.Index, error) {
	return m.loaded, m.loadErr
}

func (m *mockStore) Save(_ context.Context, idx *index.Index) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, idx)
	return nil
}

type mockBuilder struct {
	idx    *index.Index
	report builder.Report
	err    error
}

func (m *mockBuilder) Build(_ context.Context, _ string) (*index.Index, builder.Report, error) {
	return m.idx, m.report, m.err
}

type mockSearcher struct {
	mu   sync.Mutex
	seen []*index.Index
}

func (m *mockSearcher) Search(_ context.Context, idx *index.Index, _ *request.Request) ([]result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, idx)
	return []result.Result{}, nil
}

type mockEvaluator struct {
	seen *index.Index
}

func (m *mockEvaluator) Evaluate(
	_ context.Context, idx *index.Index, _ []string, thresholds []float64,
) ([]evaluation.ThresholdStat, error) {
	m.seen = idx
	return []evaluation.ThresholdStat{evaluation.NewThresholdStat(thresholds[0], 1, idx.Len())}, nil
}

func newIndex(t *testing.T, model string, paths ...string) *index.Index {
	t.Helper()
	idx := index.New(model)
	for _, p := range paths {
		m, err := matrix.FromRows([][]float32{{1, 0}})
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

func newService(store Store, b Builder, s Searcher) *Service {
	return New(store, b, s, &mockEvaluator{}, "model-a", zap.NewNop())
}

// --- Tests ---

func TestNew_StartsEmpty(t *testing.T) {
	s := newService(&mockStore{}, &mockBuilder{}, &mockSearcher{})
	info := s.Info()
	if info.Records != 0 || info.Model != "model-a" || !info.LoadedAt.IsZero() {
		t.Errorf("unexpected initial info: %+v", info)
	}
}

func TestBuild_PublishesAndPersists(t *testing.T) {
	built := newIndex(t, "model-a", "/img/a.png", "/img/b.png")
	store := &mockStore{}
	s := newService(store, &mockBuilder{idx: built, report: builder.Report{Indexed: 2}}, &mockSearcher{})

	report, err := s.Build(context.Background(), "/img", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Indexed != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(store.saved) != 1 || store.saved[0] != built {
		t.Errorf("expected built index to be saved, got %d saves", len(store.saved))
	}
	info := s.Info()
	if info.Records != 2 || info.Dimension != 2 || info.LoadedAt.IsZero() {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestBuild_WithoutPersist(t *testing.T) {
	store := &mockStore{}
	s := newService(store, &mockBuilder{idx: newIndex(t, "model-a", "/a.png")}, &mockSearcher{})

	if _, err := s.Build(context.Background(), "/img", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected no saves, got %d", len(store.saved))
	}
	if s.Info().Records != 1 {
		t.Errorf("expected published index")
	}
}

func TestBuild_FailedSaveKeepsPreviousIndex(t *testing.T) {
	previous := newIndex(t, "model-a", "/old.png")
	store := &mockStore{loaded: previous}
	b := &mockBuilder{idx: newIndex(t, "model-a", "/a.png", "/b.png", "/c.png")}
	s := newService(store, b, &mockSearcher{})

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	store.saveErr = domain.ErrIndexIO

	_, err := s.Build(context.Background(), "/img", true)
	if !errors.Is(err, domain.ErrIndexIO) {
		t.Fatalf("expected ErrIndexIO, got %v", err)
	}
	if s.Index() != previous {
		t.Error("previous index must stay published after a failed save")
	}
}

func TestBuild_BuilderError(t *testing.T) {
	s := newService(&mockStore{}, &mockBuilder{err: domain.ErrNotFound}, &mockSearcher{})

	if _, err := s.Build(context.Background(), "/missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_ProviderMismatch(t *testing.T) {
	store := &mockStore{loaded: newIndex(t, "model-b", "/a.png")}
	s := newService(store, &mockBuilder{}, &mockSearcher{})

	err := s.Load(context.Background())
	if !errors.Is(err, domain.ErrProviderMismatch) {
		t.Fatalf("expected ErrProviderMismatch, got %v", err)
	}
	var pm *domain.ProviderMismatchError
	if !errors.As(err, &pm) || pm.IndexModel != "model-b" || pm.ProviderModel != "model-a" {
		t.Errorf("unexpected mismatch detail: %v", err)
	}
	if s.Info().Records != 0 {
		t.Error("mismatching index must not be published")
	}
}

func TestLoad_UnknownModelAccepted(t *testing.T) {
	store := &mockStore{loaded: newIndex(t, "", "/a.png")}
	s := newService(store, &mockBuilder{}, &mockSearcher{})

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Info().Records != 1 {
		t.Error("expected index to be published")
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := newService(&mockStore{loadErr: domain.ErrNotFound}, &mockBuilder{}, &mockSearcher{})
	if err := s.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_PersistsPublished(t *testing.T) {
	store := &mockStore{}
	s := newService(store, &mockBuilder{idx: newIndex(t, "model-a", "/a.png")}, &mockSearcher{})
	if _, err := s.Build(context.Background(), "/img", false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0] != s.Index() {
		t.Error("expected the published index to be saved")
	}
}

func TestSearchAndEvaluate_UseSnapshot(t *testing.T) {
	built := newIndex(t, "model-a", "/a.png")
	searcher := &mockSearcher{}
	evaluator := &mockEvaluator{}
	s := New(&mockStore{}, &mockBuilder{idx: built}, searcher, evaluator, "model-a", zap.NewNop())
	if _, err := s.Build(context.Background(), "/img", false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	req, err := request.New("q", 5, 0)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	if _, err := s.Search(context.Background(), &req); err != nil {
		t.Fatalf("Search: %v", err)
	}
	stats, err := s.Evaluate(context.Background(), []string{"q"}, []float64{1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(searcher.seen) != 1 || searcher.seen[0] != built {
		t.Error("search must run against the published index")
	}
	if evaluator.seen != built || stats[0].TotalResults != 1 {
		t.Error("evaluate must run against the published index")
	}
}

func TestConcurrentReadersDuringRebuild(t *testing.T) {
	searcher := &mockSearcher{}
	b := &mockBuilder{idx: newIndex(t, "model-a", "/a.png")}
	s := newService(&mockStore{}, b, searcher)
	req, _ := request.New("q", 5, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Search(context.Background(), &req)
				_ = s.Info()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if _, err := s.Build(context.Background(), "/img", false); err != nil {
			t.Errorf("Build: %v", err)
		}
	}
	wg.Wait()

	for _, idx := range searcher.seen {
		if idx == nil {
			t.Fatal("reader observed a nil index")
		}
	}
}
