package deferred

type passConfig struct {
	workers   int
	threshold int
}

// PassOption configures a pass.
type PassOption func(*passConfig)

// WithConstantWorkers prepares object constants on n workers for large frames.
// n <= 1 keeps preparation on the render goroutine.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - PassOption: option function to apply
func WithConstantWorkers(n int) PassOption {
	return func(c *passConfig) {
		c.workers = n
	}
}

// WithParallelThreshold sets the minimum number of draws before the worker pool is used.
//
// Parameters:
//   - n: the draw count threshold; values <= 0 keep ParallelThreshold
//
// Returns:
//   - PassOption: option function to apply
func WithParallelThreshold(n int) PassOption {
	return func(c *passConfig) {
		c.threshold = n
	}
}
