package optim

// outlierWindow records the step indices at which outliers were flagged and
// evicts entries older than timeout steps. Step indices arrive in
// monotonically increasing order, so eviction only ever trims the front;
// the window is a slice-backed deque with O(1) amortized operations.
type outlierWindow struct {
	timeout int
	steps   []int
}

func newOutlierWindow(timeout int) *outlierWindow {
	return &outlierWindow{timeout: timeout}
}

// record appends the step index of a freshly flagged outlier.
func (w *outlierWindow) record(step int) {
	w.steps = append(w.steps, step)
}

// evict drops entries with current-entry > timeout.
func (w *outlierWindow) evict(current int) {
	i := 0
	for i < len(w.steps) && current-w.steps[i] > w.timeout {
		i++
	}
	if i > 0 {
		w.steps = append(w.steps[:0], w.steps[i:]...)
	}
}

// size returns the number of outliers still inside the window.
func (w *outlierWindow) size() int {
	return len(w.steps)
}
