package doseresponse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Levenberg-Marquardt tuning constants.
const (
	lmInitialLambda = 1e-3
	lmLambdaShrink  = 0.1
	lmLambdaGrow    = 10.0
	lmLambdaMin     = 1e-12
	lmLambdaMax     = 1e10
	lmRelTolerance  = 1e-12
	lmGradTolerance = 1e-12
	machineEpsilon  = 2.220446049250313e-16
)

// curveFunc evaluates a model at x with parameter vector p.
type curveFunc func(x float64, p []float64) float64

// lmProblem is a bounded nonlinear least-squares problem.
type lmProblem struct {
	f       curveFunc
	x, y    []float64
	lower   []float64 // nil disables bounds
	upper   []float64
	maxIter int
}

// solve runs damped Gauss-Newton (Levenberg-Marquardt) with parameter
// projection onto the bounds. Returns the optimum and the residual sum of
// squares there.
func (pr *lmProblem) solve(p0 []float64) ([]float64, float64, error) {
	k := len(p0)
	p := pr.clip(append([]float64(nil), p0...))
	res := pr.residuals(p)
	ssr := sumSquares(res)
	lambda := lmInitialLambda

	jtj := make([]float64, k*k)
	jtr := make([]float64, k)

	for iter := 1; iter <= pr.maxIter; iter++ {
		jac := pr.jacobian(p)
		normalEquations(jac, res, jtj, jtr)

		if maxAbs(jtr) < lmGradTolerance {
			return p, ssr, nil
		}

		accepted := false
		for lambda <= lmLambdaMax {
			delta, ok := solveDamped(jtj, jtr, lambda, k)
			if !ok {
				lambda *= lmLambdaGrow
				continue
			}

			cand := make([]float64, k)
			for i := range cand {
				cand[i] = p[i] + delta[i]
			}
			cand = pr.clip(cand)

			candRes := pr.residuals(cand)
			candSSR := sumSquares(candRes)
			if candSSR < ssr {
				improvement := ssr - candSSR
				p, res, ssr = cand, candRes, candSSR
				lambda = math.Max(lambda*lmLambdaShrink, lmLambdaMin)
				accepted = true
				if improvement <= lmRelTolerance*(ssr+machineEpsilon) {
					return p, ssr, nil
				}
				break
			}
			lambda *= lmLambdaGrow
		}

		if !accepted {
			// Damping maxed out without a downhill step: the current point is
			// either a (possibly bounded) minimum or the surface is hopeless.
			if maxAbs(jtr) < math.Sqrt(lmGradTolerance) {
				return p, ssr, nil
			}
			return nil, 0, &ConvergenceError{
				Iterations: iter,
				Reason:     "no descent direction within damping budget",
			}
		}
	}

	return nil, 0, &ConvergenceError{
		Iterations: pr.maxIter,
		Reason:     "iteration budget exhausted before tolerance",
	}
}

// residuals computes y - f(x, p) for every point.
func (pr *lmProblem) residuals(p []float64) []float64 {
	res := make([]float64, len(pr.x))
	for i, xi := range pr.x {
		res[i] = pr.y[i] - pr.f(xi, p)
	}
	return res
}

// jacobian computes the forward-difference Jacobian of the residual vector.
// Rows are points, columns are parameters. dres/dp = -df/dp.
func (pr *lmProblem) jacobian(p []float64) [][]float64 {
	n, k := len(pr.x), len(p)
	jac := make([][]float64, n)
	for i := range jac {
		jac[i] = make([]float64, k)
	}

	base := make([]float64, n)
	for i, xi := range pr.x {
		base[i] = pr.f(xi, p)
	}

	step := make([]float64, k)
	for j := range p {
		h := math.Sqrt(machineEpsilon) * math.Max(math.Abs(p[j]), 1e-3)
		// Step backward when forward would leave the feasible box.
		if pr.upper != nil && p[j]+h > pr.upper[j] {
			h = -h
		}
		step[j] = h
	}

	perturbed := make([]float64, k)
	for j := 0; j < k; j++ {
		copy(perturbed, p)
		perturbed[j] += step[j]
		for i, xi := range pr.x {
			jac[i][j] = -(pr.f(xi, perturbed) - base[i]) / step[j]
		}
	}
	return jac
}

// clip projects p onto the bound box in place.
func (pr *lmProblem) clip(p []float64) []float64 {
	if pr.lower == nil || pr.upper == nil {
		return p
	}
	for i := range p {
		if p[i] < pr.lower[i] {
			p[i] = pr.lower[i]
		}
		if p[i] > pr.upper[i] {
			p[i] = pr.upper[i]
		}
	}
	return p
}

// covariance estimates the parameter covariance diagonal at optimum p:
// sqrt(diag((J'J)^-1 * ssr/(n-k))). Returns NaNs when the problem is
// degenerate (singular J'J or no residual degrees of freedom).
func (pr *lmProblem) covarianceDiag(p []float64, ssr float64) []float64 {
	n, k := len(pr.x), len(p)
	diag := make([]float64, k)
	for i := range diag {
		diag[i] = math.NaN()
	}
	if n <= k {
		return diag
	}

	jac := pr.jacobian(p)
	jtj := make([]float64, k*k)
	jtr := make([]float64, k)
	normalEquations(jac, make([]float64, n), jtj, jtr)

	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(k, k, jtj)); err != nil {
		return diag
	}

	sigma2 := ssr / float64(n-k)
	for i := 0; i < k; i++ {
		v := inv.At(i, i) * sigma2
		if v >= 0 {
			diag[i] = math.Sqrt(v)
		}
	}
	return diag
}

// normalEquations fills jtj = J'J and jtr = -J'r, the right-hand side of the
// Gauss-Newton step for minimizing |r|^2.
func normalEquations(jac [][]float64, res []float64, jtj, jtr []float64) {
	k := len(jtr)
	for i := range jtj {
		jtj[i] = 0
	}
	for i := range jtr {
		jtr[i] = 0
	}
	for i, row := range jac {
		for a := 0; a < k; a++ {
			jtr[a] -= row[a] * res[i]
			for b := a; b < k; b++ {
				jtj[a*k+b] += row[a] * row[b]
			}
		}
	}
	// Mirror the upper triangle.
	for a := 0; a < k; a++ {
		for b := 0; b < a; b++ {
			jtj[a*k+b] = jtj[b*k+a]
		}
	}
}

// solveDamped solves (J'J + lambda*diag(J'J)) delta = -J'r.
func solveDamped(jtj, jtr []float64, lambda float64, k int) ([]float64, bool) {
	damped := make([]float64, len(jtj))
	copy(damped, jtj)
	for i := 0; i < k; i++ {
		d := jtj[i*k+i]
		if d == 0 {
			d = 1.0
		}
		damped[i*k+i] = jtj[i*k+i] + lambda*d
	}

	var delta mat.VecDense
	if err := delta.SolveVec(mat.NewDense(k, k, damped), mat.NewVecDense(k, jtr)); err != nil {
		return nil, false
	}

	out := make([]float64, k)
	for i := range out {
		v := delta.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func sumSquares(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		s += v * v
	}
	return s
}

func maxAbs(xs []float64) float64 {
	var m float64
	for _, v := range xs {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
