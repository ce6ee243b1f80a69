package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Holt is a fitted additive linear-trend exponential smoothing model
// (level + trend, no damping, no seasonality).
type Holt struct {
	Alpha        float64 // smoothing level, [0, 1]
	Beta         float64 // smoothing trend, [0, Alpha]
	InitialLevel float64
	InitialTrend float64
	Level        float64 // level after the last observation
	Trend        float64 // trend after the last observation
	SSE          float64 // one-step-ahead sum of squared errors
}

// FitHolt estimates the smoothing parameters and the initial state by
// minimising the one-step-ahead squared error. y must hold at least two
// finite values.
func FitHolt(y []float64) (*Holt, error) {
	if len(y) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInsufficientData, len(y))
	}
	if floats.HasNaN(y) || hasInf(y) {
		return nil, fmt.Errorf("%w: series contains non-finite values", ErrFitFailed)
	}

	// Fit on a unit scale so the simplex step suits any magnitude.
	scale := floats.Norm(y, math.Inf(1))
	if scale == 0 {
		scale = 1
	}
	scaled := make([]float64, len(y))
	floats.ScaleTo(scaled, 1/scale, y)

	// Start from the backcast state, so an exactly linear series already
	// has zero error.
	trend0 := scaled[1] - scaled[0]
	x0 := []float64{logit(0.5), logit(0.1), scaled[0] - trend0, trend0}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, beta := smoothing(x[0], x[1])
			sse, _, _ := holtFilter(scaled, alpha, beta, x[2], x[3])
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-12,
			Iterations: 200,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if res == nil {
		return nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	if hasNonFinite(res.X) || math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, fmt.Errorf("%w: optimiser produced non-finite parameters", ErrFitFailed)
	}

	alpha, beta := smoothing(res.X[0], res.X[1])
	l0, b0 := res.X[2], res.X[3]
	sse, level, trend := holtFilter(scaled, alpha, beta, l0, b0)

	return &Holt{
		Alpha:        alpha,
		Beta:         beta,
		InitialLevel: l0 * scale,
		InitialTrend: b0 * scale,
		Level:        level * scale,
		Trend:        trend * scale,
		SSE:          sse * scale * scale,
	}, nil
}

// Forecast projects the fitted level and trend steps periods ahead
func (h *Holt) Forecast(steps int) []float64 {
	out := make([]float64, steps)
	for i := range out {
		out[i] = h.Level + float64(i+1)*h.Trend
	}
	return out
}

// holtFilter runs the smoothing recursions and returns the one-step error
// together with the final state.
func holtFilter(y []float64, alpha, beta, level, trend float64) (sse, lastLevel, lastTrend float64) {
	for _, v := range y {
		e := v - (level + trend)
		sse += e * e

		prev := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
	}
	return sse, level, trend
}

// smoothing maps unconstrained optimiser coordinates onto 0 <= beta <= alpha <= 1
func smoothing(u, v float64) (alpha, beta float64) {
	alpha = sigmoid(u)
	beta = alpha * sigmoid(v)
	return alpha, beta
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func hasInf(s []float64) bool {
	for _, v := range s {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func hasNonFinite(s []float64) bool {
	return floats.HasNaN(s) || hasInf(s)
}
