package stats

import (
	"math"
	"testing"
)

func TestMeanEmpty(t *testing.T) {
	var m Mean
	if m.Value() != 0 {
		t.Fatalf("expected 0 mean got %v", m.Value())
	}
	if m.Count() != 0 {
		t.Fatalf("expected 0 count got %d", m.Count())
	}
}

func TestMeanMatchesArithmeticMean(t *testing.T) {
	samples := []float64{100, 250, 75.5, 1000, 3, 42.25}
	var m Mean
	sum := 0.0
	for _, s := range samples {
		m.Observe(s)
		sum += s
	}
	want := sum / float64(len(samples))
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Fatalf("mean=%v want=%v", m.Value(), want)
	}
	if m.Count() != uint64(len(samples)) {
		t.Fatalf("count=%d want=%d", m.Count(), len(samples))
	}
}

func TestMeanSingleSample(t *testing.T) {
	var m Mean
	m.Observe(123.5)
	if m.Value() != 123.5 {
		t.Fatalf("mean=%v want=123.5", m.Value())
	}
}
