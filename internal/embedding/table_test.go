package embedding

import (
	"math"
	"testing"
)

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) must fail")
	}
	if _, err := New(map[string][]float64{}); err == nil {
		t.Error("New(empty) must fail")
	}
	if _, err := New(map[string][]float64{"a": {1, 2}, "b": {1}}); err == nil {
		t.Error("New must reject inconsistent dimensions")
	}
	if _, err := New(map[string][]float64{"a": {1, math.NaN()}}); err == nil {
		t.Error("New must reject non-finite vectors")
	}
}

func TestLookupKnownEntity(t *testing.T) {
	table, err := New(map[string][]float64{
		"cc-1": {1, 2, 3},
		"cc-2": {4, 5, 6},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if table.Dim() != 3 {
		t.Errorf("Dim = %d, want 3", table.Dim())
	}
	if table.Size() != 2 {
		t.Errorf("Size = %d, want 2", table.Size())
	}

	v := table.Lookup("cc-1")
	if v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("Lookup(cc-1) = %v", v)
	}
	if !table.Known("cc-1") || table.Known("cc-9") {
		t.Error("Known misreports membership")
	}
}

func TestLookupUnknownReturnsMean(t *testing.T) {
	table, err := New(map[string][]float64{
		"cc-1": {1, 10},
		"cc-2": {3, 20},
		"cc-3": {5, 30},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []float64{3, 20}
	got := table.Lookup("cc-unknown")
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("fallback[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// The fallback is the same vector as OOV, and stable across lookups.
	oov := table.OOV()
	for i := range oov {
		if got[i] != oov[i] {
			t.Errorf("Lookup fallback differs from OOV at %d", i)
		}
	}
}
