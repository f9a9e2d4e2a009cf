package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_EmptyHistory(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Initialize(ctx, "rabi_x", []string{"pi_amp"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := s.LastTimestamp(ctx, "rabi_x"); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
	if _, err := s.LastParams(ctx, "rabi_x", []string{"pi_amp"}); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestMemoryStore_NotInitialized(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Insert(ctx, "ghost", map[string]float64{"a": 1}, ""); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := s.LastTimestamp(ctx, "ghost"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestMemoryStore_AppendOnlyLatest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Initialize(ctx, "t1_q0", []string{"t1", "offset"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Первая строка в прошлом, вторая — сейчас.
	past := time.Now().Add(-2 * time.Hour)
	s.Now = func() time.Time { return past }
	if err := s.Insert(ctx, "t1_q0", map[string]float64{"t1": 11.5, "offset": 0.1}, "first"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s.Now = time.Now
	if err := s.Insert(ctx, "t1_q0", map[string]float64{"t1": 12.25, "offset": 0.2}, "second"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ts, err := s.LastTimestamp(ctx, "t1_q0")
	if err != nil {
		t.Fatalf("last timestamp: %v", err)
	}
	if !ts.After(past) {
		t.Errorf("latest timestamp should be the second row, got %v", ts)
	}

	// Значения в порядке запрошенных ключей.
	values, err := s.LastParams(ctx, "t1_q0", []string{"offset", "t1"})
	if err != nil {
		t.Fatalf("last params: %v", err)
	}
	if values[0] != 0.2 || values[1] != 12.25 {
		t.Errorf("expected [0.2 12.25], got %v", values)
	}

	if got := s.RowCount("t1_q0"); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}

func TestMemoryStore_ParamMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Initialize(ctx, "n", []string{"a"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Insert(ctx, "n", map[string]float64{"a": 1}, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := s.LastParams(ctx, "n", []string{"a", "b"}); !errors.Is(err, ErrParamMissing) {
		t.Errorf("expected ErrParamMissing, got %v", err)
	}
}

func TestMemoryStore_History(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Initialize(ctx, "n", []string{"a"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := s.Insert(ctx, "n", map[string]float64{"a": float64(i)}, ""); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	rows, err := s.History(ctx, "n", 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// От новых к старым: 5, 4, 3.
	for i, want := range []float64{5, 4, 3} {
		if rows[i].Values["a"] != want {
			t.Errorf("row %d: expected a=%v, got %v", i, want, rows[i].Values["a"])
		}
	}

	all, err := s.History(ctx, "n", 0)
	if err != nil {
		t.Fatalf("history all: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected all 5 rows, got %d", len(all))
	}
}
