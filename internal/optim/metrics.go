package optim

import (
	"math"
	"sort"
	"strings"

	"github.com/born-ml/lion/internal/nn"
	"github.com/born-ml/lion/internal/tensor"
)

// paramMetric enumerates the per-parameter diagnostics every variant emits.
type paramMetric int

const (
	metricMomentNorm paramMetric = iota
	metricParamNorm
	metricUpdateNorm
	metricGradNorm
	metricUpdateGradCosine
	metricMomentGradCosine
	numParamMetrics
)

var paramMetricNames = [numParamMetrics]string{
	metricMomentNorm:       "l2_norm/moment",
	metricParamNorm:        "l2_norm/param",
	metricUpdateNorm:       "l2_norm/update",
	metricGradNorm:         "l2_norm/grad",
	metricUpdateGradCosine: "cosine/update_grad",
	metricMomentGradCosine: "cosine/moment_grad",
}

func (m paramMetric) key(name string) string {
	return paramMetricNames[m] + "/" + name
}

func (m paramMetric) compute(p *nn.Parameter, st *paramState, step *tensor.Tensor) float64 {
	switch m {
	case metricMomentNorm:
		return st.momentum.Norm()
	case metricParamNorm:
		return p.Tensor().Norm()
	case metricUpdateNorm:
		return step.Norm()
	case metricGradNorm:
		return p.Grad().Norm()
	case metricUpdateGradCosine:
		return tensor.CosineSimilarity(p.Grad(), step)
	case metricMomentGradCosine:
		return tensor.CosineSimilarity(p.Grad(), st.momentum)
	default:
		panic("optim: unknown parameter metric")
	}
}

// metricKind drives how a metric family aggregates across workers.
type metricKind int

const (
	// kindL2Norm values square before the sum and square-root after it.
	kindL2Norm metricKind = iota
	// kindCosine values pre-scale by the local operand norms and divide by
	// the reduced operand norms after the sum.
	kindCosine
	// kindPerWorker values never reduce: counters and adapted
	// hyperparameters are either already globally consistent (they derive
	// from globally consistent outlier decisions) or meaningless to sum.
	kindPerWorker
	// kindMean values average across workers.
	kindMean
)

// perWorkerFamilies are the counter/state families that skip reduction.
var perWorkerFamilies = map[string]bool{
	"skipped_batches": true,
	"clipped_batches": true,
	"betas":           true,
	"layerwise_lr":    true,
	"wd_scaling":      true,
}

// classifyMetric maps a metric key to its aggregation kind by its leading
// family segment.
func classifyMetric(key string) metricKind {
	family, _, _ := strings.Cut(key, "/")
	switch {
	case family == "l2_norm":
		return kindL2Norm
	case family == "cosine":
		return kindCosine
	case perWorkerFamilies[family]:
		return kindPerWorker
	default:
		return kindMean
	}
}

// splitCosineKey recovers the operand names and layer from a
// "cosine/<A>_<B>/<layer>" key. The layer segment may itself contain
// slashes.
func splitCosineKey(key string) (a, b, layer string, ok bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	operands := strings.SplitN(parts[1], "_", 2)
	if len(operands) != 2 {
		return "", "", "", false
	}
	return operands[0], operands[1], parts[2], true
}

func l2NormKey(operand, layer string) string {
	return "l2_norm/" + operand + "/" + layer
}

// PreReduceMetrics prepares per-worker metric values for a sum reduction.
//
// L2 norms are squared in place so that summing them across workers yields
// the squared global norm. Cosine values are then multiplied by the local
// (unreduced) norms of their operands, turning each worker's cosine into its
// shard's dot-product contribution; the later sum assembles the global
// numerator. Norms are processed in a first pass because the cosine pass
// reads the squared values.
func (b *lionBase) PreReduceMetrics(metrics Metrics) Metrics {
	for key, v := range metrics {
		if classifyMetric(key) == kindL2Norm {
			metrics[key] = v * v
		}
	}

	for key := range metrics {
		if classifyMetric(key) != kindCosine {
			continue
		}
		opA, opB, layer, ok := splitCosineKey(key)
		if !ok {
			continue
		}
		// The sibling norms were squared above; recover the local norms.
		sqA, okA := metrics[l2NormKey(opA, layer)]
		sqB, okB := metrics[l2NormKey(opB, layer)]
		if !okA || !okB {
			continue
		}
		metrics[key] *= math.Sqrt(sqA) * math.Sqrt(sqB)
	}
	return metrics
}

// DistReduceMetrics folds pre-reduced metric values across workers and
// decodes them back into reportable values.
//
// Keys are walked in sorted order: reduction is a blocking collective, so
// every worker must reduce the same keys in the same sequence. Norm keys
// reduce first because cosine keys divide by the reduced norms.
func (b *lionBase) DistReduceMetrics(metrics Metrics) Metrics {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if classifyMetric(key) != kindL2Norm {
			continue
		}
		metrics[key] = math.Sqrt(b.sumReduce(metrics[key]))
	}

	for _, key := range keys {
		switch classifyMetric(key) {
		case kindL2Norm, kindPerWorker:
			// Norms are done; per-worker families stay as-is.
		case kindCosine:
			reduced := b.sumReduce(metrics[key])
			opA, opB, layer, ok := splitCosineKey(key)
			if !ok {
				metrics[key] = reduced
				continue
			}
			normA := metrics[l2NormKey(opA, layer)]
			normB := metrics[l2NormKey(opB, layer)]
			metrics[key] = reduced / (normA * normB)
		case kindMean:
			metrics[key] = b.sumReduce(metrics[key]) / float64(b.comm.WorldSize())
		}
	}
	return metrics
}

// reportCoreMetrics emits the norm and cosine diagnostics common to every
// variant. The update tensor is rebuilt from stored state with the supplied
// hyperparameters, so reporting runs at any cadence without disturbing the
// live step.
func (b *lionBase) reportCoreMetrics(p *nn.Parameter, st *paramState, name string, metrics Metrics, lr, initialLR, wd, beta1 float64) {
	step := rebuildStep(p, st, lr, initialLR, wd, beta1)
	for m := paramMetric(0); m < numParamMetrics; m++ {
		metrics[m.key(name)] = m.compute(p, st, step)
	}
}
