package optim

import (
	"math"
	"sync"
	"testing"

	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
	"github.com/born-ml/lion/internal/tensor"
)

func TestAdjustBetas(t *testing.T) {
	tests := []struct {
		name         string
		increase     bool
		n            int
		want1, want2 float64
	}{
		{"no outliers", true, 0, 0.9, 0.99},
		{"increase n=1", true, 1, 0.95, 0.995},
		{"increase n=2", true, 2, 0.975, 0.9975},
		{"decrease n=1", false, 1, 0.85, 0.985},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b1, b2 := adjustBetas(0.9, 0.99, tt.increase, tt.n)
			if !almostEqual(b1, tt.want1, 1e-12) || !almostEqual(b2, tt.want2, 1e-12) {
				t.Errorf("adjustBetas: got (%f, %f), want (%f, %f)", b1, b2, tt.want1, tt.want2)
			}
		})
	}
}

func TestAdjustLR(t *testing.T) {
	if got := adjustLR(1.0, 0.707, 0, 1e-4); got != 1.0 {
		t.Errorf("n=0: got %f, want 1", got)
	}
	if got := adjustLR(1.0, 0.707, 1, 1e-4); !almostEqual(got, 0.707, 1e-12) {
		t.Errorf("n=1: got %f, want 0.707", got)
	}
	// 0.707^27 is far below the floor.
	if got := adjustLR(1.0, 0.707, 27, 1e-4); got != 1e-4 {
		t.Errorf("deep window must hit the floor: got %g, want 1e-4", got)
	}
}

func TestAdjustParam(t *testing.T) {
	if got := adjustParam(0.9, 0.5, 0); got != 0.9 {
		t.Errorf("n=0: got %f, want 0.9", got)
	}
	if got := adjustParam(0.9, 0.5, 1); !almostEqual(got, 0.45, 1e-12) {
		t.Errorf("n=1: got %f, want 0.45", got)
	}
	if got := adjustParam(0.9, 0.5, 3); !almostEqual(got, 0.1125, 1e-12) {
		t.Errorf("n=3: got %f, want 0.1125", got)
	}
}

// spikeSteps drives o through three calm steps and one spiked gradient so
// exactly one outlier sits in the window afterwards.
func spikeSteps(t *testing.T, o Optimizer, p *nn.Parameter) {
	t.Helper()
	for _, g := range []float64{0.1, 0.1, 0.1, 50.0} {
		setGrad(t, p, g)
		o.Step(nil)
	}
}

// TestAdaBetaLion_SpikeAdaptsBetas tests that one flagged step moves the
// reported betas to the n=1 closed form, and that the update still applies.
func TestAdaBetaLion_SpikeAdaptsBetas(t *testing.T) {
	p := newParam(t, "w", 1.0)
	cfg := DefaultAdaBetaLionConfig()
	cfg.LR = 0.01
	o, err := NewAdaBetaLion([]*nn.Parameter{p}, cfg, nil)
	if err != nil {
		t.Fatalf("NewAdaBetaLion: %v", err)
	}

	spikeSteps(t, o, p)

	m := o.ReportPerParameterMetrics(p, "w", Metrics{})
	if got := m["betas/beta1/w"]; !almostEqual(got, 0.95, 1e-12) {
		t.Errorf("beta1 after one outlier: got %f, want 0.95", got)
	}
	if got := m["betas/beta2/w"]; !almostEqual(got, 0.995, 1e-12) {
		t.Errorf("beta2 after one outlier: got %f, want 0.995", got)
	}

	// All four steps applied, including the spiked one.
	if got := p.Tensor().Data()[0]; !almostEqual(got, 1.0-4*0.01, 1e-12) {
		t.Errorf("parameter after 4 steps: got %f, want %f", got, 1.0-4*0.01)
	}
}

// TestAdaBetaLion_WindowExpiryRestoresBetas tests that once the outlier ages
// past Timeout the betas return to their configured values. Beta2 is kept
// low so the spike washes out of the momentum quickly and the observed
// norms drop back under the detector's bar right after the flagged step.
func TestAdaBetaLion_WindowExpiryRestoresBetas(t *testing.T) {
	p := newParam(t, "w", 1.0)
	o, err := NewAdaBetaLion([]*nn.Parameter{p}, AdaBetaLionConfig{
		LR:               0.01,
		Betas:            [2]float64{0.9, 0.5},
		OutlierThreshold: 10,
		Increase:         true,
		Timeout:          5,
	}, nil)
	if err != nil {
		t.Fatalf("NewAdaBetaLion: %v", err)
	}

	// Warm up so the slow reference settles near the steady observation
	// level, then spike once.
	for it := 0; it < 20; it++ {
		setGrad(t, p, 0.1)
		o.Step(nil)
	}
	setGrad(t, p, 2.0)
	o.Step(nil)

	m := o.ReportPerParameterMetrics(p, "w", Metrics{})
	if got := m["betas/beta1/w"]; !almostEqual(got, 0.95, 1e-12) {
		t.Fatalf("beta1 right after the spike: got %f, want 0.95", got)
	}
	if got := m["betas/beta2/w"]; !almostEqual(got, 0.75, 1e-12) {
		t.Fatalf("beta2 right after the spike: got %f, want 0.75", got)
	}

	// Calm steps until the flagged index falls out of the window.
	for it := 0; it < 8; it++ {
		setGrad(t, p, 0.1)
		o.Step(nil)
	}

	m = o.ReportPerParameterMetrics(p, "w", Metrics{})
	if got := m["betas/beta1/w"]; got != 0.9 {
		t.Errorf("beta1 after window expiry: got %f, want 0.9", got)
	}
	if got := m["betas/beta2/w"]; got != 0.5 {
		t.Errorf("beta2 after window expiry: got %f, want 0.5", got)
	}
}

// TestAdaLRLion_SpikeScalesLR tests that one flagged step scales the
// reported per-layer learning rate by the penalty.
func TestAdaLRLion_SpikeScalesLR(t *testing.T) {
	p := newParam(t, "w", 1.0)
	o, err := NewAdaLRLion([]*nn.Parameter{p}, AdaLRLionConfig{LR: 0.01}, nil)
	if err != nil {
		t.Fatalf("NewAdaLRLion: %v", err)
	}

	spikeSteps(t, o, p)

	m := o.ReportPerParameterMetrics(p, "w", Metrics{})
	if got := m["layerwise_lr/w"]; !almostEqual(got, 0.01*0.707, 1e-12) {
		t.Errorf("layerwise lr after one outlier: got %g, want %g", got, 0.01*0.707)
	}
	// The update-tensor diagnostic uses the unadapted rate.
	if got := m["l2_norm/update/w"]; !almostEqual(got, 0.01, 1e-12) {
		t.Errorf("update norm should reflect the base lr: got %g, want 0.01", got)
	}
}

// TestFullyAdaptiveLion_Beta2CouplesToBeta1 tests the beta2 chaining: with
// one outlier in the window beta1 halves to 0.45 and beta2 is computed from
// that adjusted value, giving 0.225 rather than half the configured beta2.
func TestFullyAdaptiveLion_Beta2CouplesToBeta1(t *testing.T) {
	p := newParam(t, "w", 1.0)
	o, err := NewFullyAdaptiveLion([]*nn.Parameter{p}, FullyAdaptiveLionConfig{
		LR:               0.01,
		OutlierThreshold: 10,
	}, nil)
	if err != nil {
		t.Fatalf("NewFullyAdaptiveLion: %v", err)
	}

	spikeSteps(t, o, p)

	m := o.ReportPerParameterMetrics(p, "w", Metrics{})
	if got := m["betas/beta1/w"]; !almostEqual(got, 0.45, 1e-12) {
		t.Errorf("beta1 after one outlier: got %f, want 0.45", got)
	}
	if got := m["betas/beta2/w"]; !almostEqual(got, 0.225, 1e-12) {
		t.Errorf("beta2 must chain off the adjusted beta1: got %f, want 0.225", got)
	}
	if got := m["layerwise_lr/w"]; !almostEqual(got, 0.005, 1e-12) {
		t.Errorf("lr after one outlier: got %f, want 0.005", got)
	}
}

// TestFullyAdaptiveLion_DriftDerivedWeightDecay tests the weight-decay
// scaling: one step on a [3,4] parameter shrinks its norm from 5, and the
// scaling lands at (‖p‖-5)/5.
func TestFullyAdaptiveLion_DriftDerivedWeightDecay(t *testing.T) {
	p := newParam(t, "w", 3.0, 4.0)
	o, err := NewFullyAdaptiveLion([]*nn.Parameter{p}, FullyAdaptiveLionConfig{LR: 0.1}, nil)
	if err != nil {
		t.Fatalf("NewFullyAdaptiveLion: %v", err)
	}

	setGrad(t, p, 1.0, 1.0)
	o.Step(nil)

	// First step: wd scaling still 0, sign update moves both coordinates
	// down by lr.
	data := p.Tensor().Data()
	if !almostEqual(data[0], 2.9, 1e-12) || !almostEqual(data[1], 3.9, 1e-12) {
		t.Fatalf("parameter after first step: got %v, want [2.9, 3.9]", data)
	}

	want := (math.Sqrt(2.9*2.9+3.9*3.9) - 5.0) / 5.0
	if got := o.WeightDecayScaling(p); !almostEqual(got, want, 1e-12) {
		t.Errorf("weight-decay scaling: got %f, want %f", got, want)
	}
	if o.WeightDecayScaling(p) >= 0 {
		t.Error("a shrinking parameter must get negative decay scaling")
	}
}

// TestFullyAdaptiveLion_ShardedDriftAndAdaptation runs two workers over
// shards of one logical parameter. The drift-derived weight-decay scaling
// must come out of the global norms, identically on both ranks, and a spike
// on one rank's shard must adapt lr and betas on both: each step issues the
// prospective-norm reduction and the deferred initial/current norm
// reductions in the same order on every worker.
func TestFullyAdaptiveLion_ShardedDriftAndAdaptation(t *testing.T) {
	group := dist.NewGroup(2)

	// Logical parameter [3, 0, 0, 4], initial global norm 5.
	paramShards := [][]float64{{3, 0}, {0, 4}}
	// Step 1 is calm everywhere; step 2 spikes rank 0's shard only.
	gradShards := [][][]float64{
		{{1, 1}, {1, 1}},
		{{100, 100}, {0.1, 0.1}},
	}

	type workerOut struct {
		wdAfterFirst float64
		metrics      Metrics
		scaling      float64
	}
	outs := make([]workerOut, 2)

	var wg sync.WaitGroup
	for rank := 0; rank < 2; rank++ {
		rank := rank
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := tensorParam("w", paramShards[rank]...)
			o, err := NewFullyAdaptiveLion([]*nn.Parameter{p}, FullyAdaptiveLionConfig{
				LR: 0.1,
			}, group.Worker(rank))
			if err != nil {
				t.Errorf("rank %d: NewFullyAdaptiveLion: %v", rank, err)
				return
			}

			for i, grads := range gradShards {
				g, _ := tensor.FromSlice(grads[rank], tensor.Shape{2})
				p.SetGrad(g)
				o.Step(nil)
				if i == 0 {
					outs[rank].wdAfterFirst = o.WeightDecayScaling(p)
				}
			}
			outs[rank].metrics = o.ReportPerParameterMetrics(p, "w", Metrics{})
			outs[rank].scaling = o.WeightDecayScaling(p)
		}()
	}
	wg.Wait()

	// First step: no decay yet (scaling starts at 0), so the sign update
	// moves every coordinate by exactly lr. The logical parameter becomes
	// [2.9, -0.1, -0.1, 3.9] and the scaling derives from its global norm.
	wantFirst := (math.Sqrt(2.9*2.9+3.9*3.9+2*0.1*0.1) - 5.0) / 5.0
	for rank := 0; rank < 2; rank++ {
		if got := outs[rank].wdAfterFirst; !almostEqual(got, wantFirst, 1e-12) {
			t.Errorf("rank %d scaling after first step: got %f, want %f", rank, got, wantFirst)
		}
	}

	// The spike lands on rank 0's shard, but the detector sees the global
	// prospective moment norm, so both ranks adapt identically.
	for rank := 0; rank < 2; rank++ {
		m := outs[rank].metrics
		if got := m["layerwise_lr/w"]; !almostEqual(got, 0.05, 1e-12) {
			t.Errorf("rank %d lr after spike: got %f, want 0.05", rank, got)
		}
		if got := m["betas/beta1/w"]; !almostEqual(got, 0.45, 1e-12) {
			t.Errorf("rank %d beta1 after spike: got %f, want 0.45", rank, got)
		}
		if got := m["betas/beta2/w"]; !almostEqual(got, 0.225, 1e-12) {
			t.Errorf("rank %d beta2 after spike: got %f, want 0.225", rank, got)
		}
	}
	if outs[0].scaling != outs[1].scaling {
		t.Errorf("ranks disagree on weight-decay scaling: %f vs %f", outs[0].scaling, outs[1].scaling)
	}
}

// TestFullyAdaptiveLion_ScalingBeforeFirstStep tests the accessor's zero
// value for untouched parameters.
func TestFullyAdaptiveLion_ScalingBeforeFirstStep(t *testing.T) {
	p := newParam(t, "w", 1.0)
	o, err := NewFullyAdaptiveLion([]*nn.Parameter{p}, FullyAdaptiveLionConfig{}, nil)
	if err != nil {
		t.Fatalf("NewFullyAdaptiveLion: %v", err)
	}
	if got := o.WeightDecayScaling(p); got != 0 {
		t.Errorf("scaling before any step: got %f, want 0", got)
	}
}
