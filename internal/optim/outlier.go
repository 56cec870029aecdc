package optim

// Smoothing weights for the outlier detector's moving averages, as
// ref += weight*(x - ref). The fast reference tracks the recent magnitude
// level, the slow reference is the robust baseline the outlier decision and
// the clip target are computed from. These constants are part of the
// training recipe: changing them changes which updates are flagged and
// therefore the whole trajectory of a run.
const (
	outlierFastWeight = 0.1
	outlierSlowWeight = 0.01
)

// OutlierDetector flags observations in a stream of non-negative scalar
// magnitudes that are anomalously large relative to recent history.
//
// An observation is an outlier when it exceeds threshold times the slow
// moving average. Outliers leave both moving averages untouched, so a loss
// spike cannot drag the baseline up and mask the spikes that follow it;
// non-outliers fold into both averages by exponential smoothing.
//
// The first observation seeds both averages and is never flagged.
type OutlierDetector struct {
	threshold float64
	fast      float64
	slow      float64
	seeded    bool
}

// NewOutlierDetector creates a detector with the given threshold.
// The threshold must be positive; the optimizer constructors validate it.
func NewOutlierDetector(threshold float64) *OutlierDetector {
	return &OutlierDetector{threshold: threshold}
}

// InsertObservation feeds one magnitude into the detector and reports
// whether it is an outlier. Non-outliers update the moving averages;
// outliers do not.
func (d *OutlierDetector) InsertObservation(value float64) bool {
	if !d.seeded {
		d.fast = value
		d.slow = value
		d.seeded = true
		return false
	}

	if value > d.threshold*d.slow {
		return true
	}

	d.fast += outlierFastWeight * (value - d.fast)
	d.slow += outlierSlowWeight * (value - d.slow)
	return false
}

// SlowMVA returns the slow moving average. Because outliers never
// contaminate it, it doubles as a robust clip target.
func (d *OutlierDetector) SlowMVA() float64 {
	return d.slow
}

// FastMVA returns the fast moving average.
func (d *OutlierDetector) FastMVA() float64 {
	return d.fast
}

// Threshold returns the detector's outlier threshold.
func (d *OutlierDetector) Threshold() float64 {
	return d.threshold
}
