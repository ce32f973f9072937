package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged random draws.
// Every draw is logged at debug level so an assignment can be audited.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws with src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn draws from the underlying source and logs the result.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("random draw", zap.Int("n", n), zap.Int("value", v))
	return v
}

// Permutation returns a shuffled [0, n) and logs it.
//
// Postcondition: the result contains every integer in [0, n) exactly once.
func (r *Roller) Permutation(n int) []int {
	p := Permutation(n, r.src)
	r.logger.Debug("permutation", zap.Int("n", n), zap.Ints("order", p))
	return p
}
