package imgdex

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func newFileClient(t *testing.T, emb Embedder, path string, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), emb, append([]Option{WithIndexFile(path)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_NoStore(t *testing.T) {
	if _, err := New(context.Background(), colorEmbedder()); err == nil {
		t.Fatal("expected error when no index store configured")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	if _, err := New(context.Background(), nil, WithIndexFile("x.parquet")); err == nil {
		t.Fatal("expected error without embedder")
	}
}

func TestNew_InvalidS3(t *testing.T) {
	_, err := New(context.Background(), colorEmbedder(), WithS3(S3Config{Endpoint: "localhost:9000"}))
	if err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestNew_LoadOnStartMissingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.parquet")
	c := newFileClient(t, colorEmbedder(), path, WithLoadOnStart())
	if c.Info().Records != 0 {
		t.Errorf("expected empty index, got %+v", c.Info())
	}
}

func TestClient_BuildSearch(t *testing.T) {
	dir := imageDir(t, "blue.jpg", "broken.jpg", "notes.txt", "red.png")
	path := filepath.Join(t.TempDir(), "index.parquet")
	c := newFileClient(t, colorEmbedder(), path, WithModel("m1"))
	ctx := context.Background()

	report, err := c.Build(ctx, dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Scanned != 3 || report.Indexed != 2 || report.Skipped != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(report.Failures) != 1 || filepath.Base(report.Failures[0].Path) != "broken.jpg" {
		t.Errorf("unexpected failures: %+v", report.Failures)
	}

	info := c.Info()
	if info.Records != 2 || info.Dimension != 2 || info.Model != "m1" || info.LoadedAt.IsZero() {
		t.Errorf("unexpected info: %+v", info)
	}

	hits, err := c.Search(ctx, "red")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Filename != "red.png" || hits[0].Score != 3 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Path != filepath.Join(dir, "red.png") || hits[0].ID == "" {
		t.Errorf("unexpected hit identity: %+v", hits[0])
	}

	all, err := c.Search(ctx, "red", WithoutThreshold())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 2 || all[0].Filename != "red.png" || all[1].Filename != "blue.jpg" {
		t.Errorf("expected both images best first, got %+v", all)
	}

	none, err := c.Search(ctx, "red", WithTopK(0))
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty result for top_k 0, got %+v, %v", none, err)
	}
}

func TestClient_BuildWithDimension(t *testing.T) {
	emb := colorEmbedder()
	emb.images["a_wide.png"] = [][]float32{{1, 0, 0}}
	dir := imageDir(t, "a_wide.png", "blue.jpg", "red.png")
	c := newFileClient(t, emb, filepath.Join(t.TempDir(), "index.parquet"), WithDimension(2))

	report, err := c.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Indexed != 2 || report.Skipped != 1 || filepath.Base(report.Failures[0].Path) != "a_wide.png" {
		t.Errorf("unexpected report: %+v", report)
	}
	if !errors.Is(report.Failures[0].Err, ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", report.Failures[0].Err)
	}
	if info := c.Info(); info.Dimension != 2 || info.Records != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestClient_SearchValidation(t *testing.T) {
	c := newFileClient(t, colorEmbedder(), filepath.Join(t.TempDir(), "i.parquet"))

	_, err := c.Search(context.Background(), "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	_, err = c.Search(context.Background(), "red", WithScoreThreshold(math.NaN()))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for NaN threshold, got %v", err)
	}
}

func TestClient_EmptyIndexSkipsEmbedding(t *testing.T) {
	emb := colorEmbedder()
	c := newFileClient(t, emb, filepath.Join(t.TempDir(), "i.parquet"))

	hits, err := c.Search(context.Background(), "red")
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", hits, err)
	}
	if emb.calls != 0 {
		t.Errorf("expected no embedding calls, got %d", emb.calls)
	}
}

func TestClient_PersistAndReload(t *testing.T) {
	dir := imageDir(t, "red.png", "blue.jpg")
	path := filepath.Join(t.TempDir(), "index.parquet")
	ctx := context.Background()

	first := newFileClient(t, colorEmbedder(), path, WithModel("m1"))
	if _, err := first.Build(ctx, dir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	second := newFileClient(t, colorEmbedder(), path, WithModel("m1"), WithLoadOnStart())
	if second.Info().Records != 2 {
		t.Fatalf("expected reloaded index, got %+v", second.Info())
	}
	hits, err := second.Search(ctx, "blue")
	if err != nil || len(hits) != 1 || hits[0].Filename != "blue.jpg" {
		t.Errorf("unexpected hits after reload: %+v, %v", hits, err)
	}
}

func TestClient_BuildWithoutSave(t *testing.T) {
	dir := imageDir(t, "red.png")
	path := filepath.Join(t.TempDir(), "index.parquet")
	c := newFileClient(t, colorEmbedder(), path)

	if _, err := c.Build(context.Background(), dir, WithoutSave()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := c.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected nothing persisted, got %v", err)
	}
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Load(context.Background()); err != nil {
		t.Errorf("Load after Save: %v", err)
	}
}

func TestClient_ProviderMismatch(t *testing.T) {
	dir := imageDir(t, "red.png")
	path := filepath.Join(t.TempDir(), "index.parquet")

	built := newFileClient(t, colorEmbedder(), path, WithModel("m1"))
	if _, err := built.Build(context.Background(), dir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err := New(context.Background(), colorEmbedder(), WithIndexFile(path), WithModel("m2"), WithLoadOnStart())
	if !errors.Is(err, ErrProviderMismatch) {
		t.Fatalf("expected ErrProviderMismatch, got %v", err)
	}
}

func TestClient_BuildMissingDirectory(t *testing.T) {
	c := newFileClient(t, colorEmbedder(), filepath.Join(t.TempDir(), "i.parquet"))
	_, err := c.Build(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Evaluate(t *testing.T) {
	dir := imageDir(t, "red.png", "blue.jpg")
	c := newFileClient(t, colorEmbedder(), filepath.Join(t.TempDir(), "i.parquet"))
	if _, err := c.Build(context.Background(), dir, WithoutSave()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	stats, err := c.Evaluate(context.Background(), []string{"red", "blue"}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := []float64{1.5, 2, 2.5, 3}
	if len(stats) != len(want) {
		t.Fatalf("expected %d stats, got %d", len(want), len(stats))
	}
	for i, s := range stats {
		if s.Threshold != want[i] || s.Queries != 2 || s.TotalResults != 2 || s.AverageResults != 1 {
			t.Errorf("stats[%d] = %+v", i, s)
		}
	}

	stats, err = c.Evaluate(context.Background(), []string{"red"}, []float64{math.Inf(-1), 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if stats[0].AverageResults != 2 || stats[1].AverageResults != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClient_Health(t *testing.T) {
	dir := imageDir(t, "red.png")
	c := newFileClient(t, colorEmbedder(), filepath.Join(t.TempDir(), "i.parquet"))

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["index"] != "empty" || h.Checks["embedding"] != "ok" {
		t.Errorf("unexpected health before build: %+v", h)
	}
	if _, ok := h.Checks["database"]; ok {
		t.Error("file backend must not report a database check")
	}

	if _, err := c.Build(context.Background(), dir, WithoutSave()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h := c.Health(context.Background()); !h.Healthy() || h.Records != 1 {
		t.Errorf("unexpected health after build: %+v", h)
	}
}

func TestClient_Observed(t *testing.T) {
	reg := prometheus.NewRegistry()
	core, logs := zapobserver.New(zap.DebugLevel)
	c := newFileClient(t, colorEmbedder(), filepath.Join(t.TempDir(), "i.parquet"),
		WithPrometheus(reg), WithLogger(zap.New(core)))

	_, _ = c.Search(context.Background(), "red")
	_ = c.Load(context.Background())

	m := c.obs.metrics
	if got := testutil.ToFloat64(m.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("load", "error")); got != 1 {
		t.Errorf("load error = %v, want 1", got)
	}
	if logs.FilterMessage("operation failed").FilterField(zap.String("op", "load")).Len() != 1 {
		t.Errorf("expected a warn line for the failed load, got %v", logs.All())
	}
}

func TestClientOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := &clientConfig{}
	for _, o := range []Option{
		WithValkey("localhost:6379", "secret"),
		WithStandalone(),
		WithIndexName("photos"),
		WithKeyPrefix("app:"),
		WithModel("m1"),
		WithEmbeddingCache(0),
		WithLoadOnStart(),
		WithPrometheus(reg),
	} {
		o.apply(cfg)
	}
	if cfg.backend != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("unexpected connection options: %+v", cfg)
	}
	if cfg.indexName != "photos" || cfg.keyPrefix != "app:" || cfg.model != "m1" {
		t.Errorf("unexpected naming options: %+v", cfg)
	}
	if !cfg.cache || !cfg.loadOnStart || !cfg.standalone || cfg.metricsReg != reg {
		t.Errorf("unexpected flags: %+v", cfg)
	}

	WithRedis("r:6379", "").apply(cfg)
	if cfg.backend != "redis" {
		t.Errorf("backend = %q", cfg.backend)
	}
	WithS3(S3Config{Bucket: "b"}).apply(cfg)
	if cfg.backend != "s3" || cfg.s3.Bucket != "b" {
		t.Errorf("unexpected s3 options: %+v", cfg.s3)
	}
}
