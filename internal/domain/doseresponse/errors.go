package doseresponse

import (
	"errors"
	"fmt"
)

// ErrInsufficientData indicates fewer usable points than the requested model
// needs. Callers can recover by supplying more data or a simpler model.
var ErrInsufficientData = errors.New("insufficient data")

// ConvergenceError indicates the solver exhausted its budget without finding
// a descent direction or meeting tolerance. The fit never returns degenerate
// parameters silently.
type ConvergenceError struct {
	Model      ModelKind
	Iterations int
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s fit did not converge after %d iterations: %s", e.Model, e.Iterations, e.Reason)
}

func insufficientData(need, got int, model ModelKind) error {
	return fmt.Errorf("%w: %s needs at least %d usable points, got %d", ErrInsufficientData, model, need, got)
}
