package tide

import (
	"math"
	"testing"
	"time"
)

func TestHeightBounded(t *testing.T) {
	// Equilibrium tide amplitude cannot exceed the sum of the lunar and
	// solar coefficients (distance factor stays within a few percent).
	m := New(-27.5, 153.0)
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24*30; i++ {
		h := m.Height(start.Add(time.Duration(i) * time.Hour))
		if math.Abs(h) > 0.7 {
			t.Fatalf("height %f m at hour %d outside plausible equilibrium range", h, i)
		}
	}
}

func TestHeightVaries(t *testing.T) {
	// Over a lunar day at mid latitude the tide must actually move.
	m := New(-27.5, 153.0)
	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	lo, hi := m.Range(start, start.AddDate(0, 0, 2), 30*time.Minute)
	if hi-lo < 0.1 {
		t.Errorf("tide range over two days = %f m, expected semidiurnal variation", hi-lo)
	}
}

func TestRangeOrdering(t *testing.T) {
	m := New(-35.0, 150.0)
	start := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	lo, hi := m.Range(start, start.AddDate(0, 1, 0), time.Hour)
	if lo >= hi {
		t.Errorf("lo %f >= hi %f", lo, hi)
	}
}

func TestDeterministic(t *testing.T) {
	m := New(-27.5, 153.0)
	at := time.Date(2016, 7, 4, 12, 0, 0, 0, time.UTC)
	if m.Height(at) != m.Height(at) {
		t.Error("height should be deterministic for a fixed time")
	}
}
