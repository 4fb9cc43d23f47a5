package engine

import (
	"math"
	"time"
)

const (
	// MaxPoints is awarded for an instant correct answer.
	MaxPoints = 1000
	// MinCorrectPoints is the floor for any correct answer.
	MinCorrectPoints = 500
	// DefaultWindow is the answering window the speed decay is anchored to.
	// The window is advisory: it only shapes scoring, it never closes
	// answering by itself. The driver closes the phase.
	DefaultWindow = 20 * time.Second
)

// Score computes points for a submission. Wrong answers earn nothing;
// correct answers decay linearly from MaxPoints at elapsed=0 down to
// MinCorrectPoints at elapsed=window. Elapsed is clamped into [0, window],
// so late submissions that slip in before the driver advances the phase
// still earn the floor.
func Score(elapsed, window time.Duration, correct bool) int {
	if !correct {
		return 0
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > window {
		elapsed = window
	}
	decay := float64(MaxPoints-MinCorrectPoints) * float64(elapsed) / float64(window)
	return int(math.Round(MaxPoints - decay))
}
