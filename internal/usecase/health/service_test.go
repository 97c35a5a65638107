package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type fixedIndex int

func (f fixedIndex) Len() int { return int(f) }

func indexOf(n int) func() IndexCounter {
	return func() IndexCounter { return fixedIndex(n) }
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockEmbeddingChecker{}, indexOf(3))
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"database", "embedding", "index"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockEmbeddingChecker{}, indexOf(1))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["embedding"] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks["embedding"])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(nil, &mockEmbeddingChecker{err: errors.New("timeout")}, indexOf(1))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks["embedding"])
	}
}

func TestCheck_EmptyIndexDegrades(t *testing.T) {
	svc := New(nil, nil, indexOf(0))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["index"] != CheckEmpty {
		t.Errorf("expected index %q, got %q", CheckEmpty, r.Checks["index"])
	}
}

func TestCheck_OptionalComponentsAbsent(t *testing.T) {
	svc := New(nil, nil, indexOf(2))
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["database"]; ok {
		t.Error("database check should be absent when db is nil")
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
}

type slowChecker struct{}

func (slowChecker) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_RecordsCount(t *testing.T) {
	r := New(nil, nil, indexOf(7)).Check(context.Background())
	if r.Records != 7 {
		t.Errorf("expected 7 records, got %d", r.Records)
	}
}

func TestCheck_NilIndex(t *testing.T) {
	svc := New(nil, nil, func() IndexCounter { return nil })
	if r := svc.Check(context.Background()); r.Checks["index"] != CheckEmpty {
		t.Errorf("expected index %q, got %q", CheckEmpty, r.Checks["index"])
	}
}

func TestCheck_CanceledProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(&mockDBPinger{}, slowChecker{}, indexOf(1)).Check(ctx)
	if r.Checks["embedding"] != CheckError || r.Status != Degraded {
		t.Errorf("expected canceled probe to fail, got %+v", r)
	}
}
