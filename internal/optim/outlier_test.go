package optim

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

// TestOutlierDetector_ColdStart tests that the first observation seeds the
// references and is never flagged, for a range of thresholds.
func TestOutlierDetector_ColdStart(t *testing.T) {
	for _, threshold := range []float64{0.5, 1, 10, 1000} {
		d := NewOutlierDetector(threshold)

		if d.InsertObservation(1e6) {
			t.Errorf("threshold %v: first observation must not be an outlier", threshold)
		}
		if d.SlowMVA() != 1e6 || d.FastMVA() != 1e6 {
			t.Errorf("threshold %v: first observation should seed both references: slow=%f fast=%f",
				threshold, d.SlowMVA(), d.FastMVA())
		}
	}
}

// TestOutlierDetector_SteadyStream tests that a constant-level stream never
// flags and the slow reference converges toward the stream's value.
func TestOutlierDetector_SteadyStream(t *testing.T) {
	d := NewOutlierDetector(10)

	rng := rand.New(rand.NewSource(42))
	d.InsertObservation(1.0)
	for i := 0; i < 2000; i++ {
		// Noise well inside threshold*slow.
		v := 1.5 + 0.1*rng.Float64()
		if d.InsertObservation(v) {
			t.Fatalf("observation %d flagged in a steady stream", i)
		}
	}

	if math.Abs(d.SlowMVA()-1.55) > 0.05 {
		t.Errorf("slow reference should converge toward the stream level: got %f", d.SlowMVA())
	}
	if math.Abs(d.FastMVA()-1.55) > 0.05 {
		t.Errorf("fast reference should converge toward the stream level: got %f", d.FastMVA())
	}
}

// TestOutlierDetector_IsolatedSpike tests that exactly the spike is flagged
// and that it leaves the slow reference untouched.
func TestOutlierDetector_IsolatedSpike(t *testing.T) {
	d := NewOutlierDetector(10)

	for i := 0; i < 50; i++ {
		if d.InsertObservation(1.0) {
			t.Fatalf("observation %d flagged before the spike", i)
		}
	}
	before := d.SlowMVA()

	if !d.InsertObservation(before * 10.0001) {
		t.Error("spike above threshold*slow must be flagged")
	}
	if d.SlowMVA() != before {
		t.Errorf("outlier must not move the slow reference: %f -> %f", before, d.SlowMVA())
	}

	if d.InsertObservation(1.0) {
		t.Error("stream value after the spike must not be flagged")
	}
}

// TestOutlierDetector_BoundaryIsNotOutlier tests that a value exactly at
// threshold*slow passes.
func TestOutlierDetector_BoundaryIsNotOutlier(t *testing.T) {
	d := NewOutlierDetector(10)
	d.InsertObservation(1.0)

	if d.InsertObservation(10.0) {
		t.Error("value exactly at threshold*slow must not be flagged")
	}
}

func TestOutlierDetector_Threshold(t *testing.T) {
	if got := NewOutlierDetector(7.5).Threshold(); got != 7.5 {
		t.Errorf("Threshold: got %f, want 7.5", got)
	}
}
