package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockChecker{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentVectorStore, ComponentEmbedding, ComponentGeneration} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_StoreErrorIsUnhealthy(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, &mockChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentVectorStore] != CheckError {
		t.Errorf("expected vector_store %q, got %q", CheckError, r.Checks[ComponentVectorStore])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_EmbeddingErrorIsDegraded(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockChecker{err: errors.New("timeout")}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_GenerationErrorIsDegraded(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockChecker{}, &mockChecker{err: errors.New("401")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentGeneration] != CheckError {
		t.Error("expected generation error")
	}
}

func TestCheck_OptionalCheckersAbsent(t *testing.T) {
	svc := New(&mockStorePinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentEmbedding]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
	if _, ok := r.Checks[ComponentGeneration]; ok {
		t.Error("generation check should be absent when generation is nil")
	}
}
