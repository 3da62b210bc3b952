// Project: pybats - Bayesian forecasting with dynamic generalized linear models
// Date: Aug 29th 2026

package forecast

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// The adapters below implement ConjugateModel for the standard
// exponential families. The linear-predictor moments are
// family-independent; the link enters through the conjugate matching.

// linearPredictorMeanAndVar computes ft = F'a and qt = F'RF.
func linearPredictorMeanAndVar(F, a mat.Vector, R mat.Matrix) (float64, float64) {
	ft := mat.Dot(F, a)
	tmp := mat.NewVecDense(F.Len(), nil)
	tmp.MulVec(R, F)
	qt := mat.Dot(F, tmp)
	return ft, qt
}

func trigamma(x float64) float64 { return mathext.Zeta(2, x) }

// gammaConjugateParams solves psi(alpha) - ln(beta) = ft and
// psi'(alpha) = qt for a Gamma(alpha, rate beta) prior. The trigamma
// equation is solved by Newton iteration (psi'' = -2*zeta(3, .)); alpha
// then fixes beta through the digamma equation. The starting point
// 1/qt is the large-alpha limit of the system.
func gammaConjugateParams(ft, qt float64) (float64, float64) {
	alpha := 1 / qt
	if alpha < 1e-8 {
		alpha = 1e-8
	}

	for iter := 0; iter < 100; iter++ {
		f := trigamma(alpha) - qt
		if math.Abs(f) < 1e-12 {
			break
		}
		df := -2 * mathext.Zeta(3, alpha)
		next := alpha - f/df
		if next <= 0 {
			next = alpha / 2
		}
		alpha = next
	}

	beta := math.Exp(mathext.Digamma(alpha) - ft)
	return alpha, beta
}

// betaConjugateParams solves psi(a) - psi(b) = ft and
// psi'(a) + psi'(b) = qt for a Beta(a, b) prior, by a damped
// two-dimensional Newton iteration. The starting point comes from the
// large-(a, b) limit: a/(a+b) = logistic(ft) with the precisions split
// to match qt.
func betaConjugateParams(ft, qt float64) (float64, float64) {
	r := 1 / (1 + math.Exp(-ft))
	s := (1/r + 1/(1-r)) / qt
	a := r * s
	b := (1 - r) * s
	if a < 1e-8 {
		a = 1e-8
	}
	if b < 1e-8 {
		b = 1e-8
	}

	for iter := 0; iter < 200; iter++ {
		f1 := mathext.Digamma(a) - mathext.Digamma(b) - ft
		f2 := trigamma(a) + trigamma(b) - qt
		if math.Abs(f1) < 1e-10 && math.Abs(f2) < 1e-10 {
			break
		}

		j11 := trigamma(a)
		j12 := -trigamma(b)
		j21 := -2 * mathext.Zeta(3, a)
		j22 := -2 * mathext.Zeta(3, b)

		det := j11*j22 - j12*j21
		if det == 0 {
			break
		}

		da := (f1*j22 - f2*j12) / det
		db := (j11*f2 - j21*f1) / det

		na := a - da
		nb := b - db
		if na <= 0 {
			na = a / 2
		}
		if nb <= 0 {
			nb = b / 2
		}
		a, b = na, nb
	}

	return a, b
}

// ============================================================================
// POISSON / GAMMA
// ============================================================================

// PoissonModel is a Poisson sampling model under a log link with a
// conjugate Gamma(alpha, rate beta) prior on the rate.
type PoissonModel struct{}

func (PoissonModel) MeanAndVar(F, a mat.Vector, R mat.Matrix) (float64, float64) {
	return linearPredictorMeanAndVar(F, a, R)
}

func (PoissonModel) ConjugateParams(ft, qt, _, _ float64) (float64, float64) {
	return gammaConjugateParams(ft, qt)
}

func (PoissonModel) ConjugateMean(alpha, beta float64) float64 {
	return alpha / beta
}

// Simulate draws from the prior-marginalized forecast distribution by
// composition: a Gamma rate draw followed by a Poisson draw.
func (PoissonModel) Simulate(alpha, beta float64, nsamps int, src rand.Source) []float64 {
	g := distuv.Gamma{Alpha: alpha, Beta: beta, Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = distuv.Poisson{Lambda: g.Rand(), Src: src}.Rand()
	}
	return out
}

func (PoissonModel) SimulateFromPrior(alpha, beta float64, nsamps int, src rand.Source) []float64 {
	g := distuv.Gamma{Alpha: alpha, Beta: beta, Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = g.Rand()
	}
	return out
}

func (PoissonModel) SimulateFromSamplingModel(priorSamps []float64, src rand.Source) []float64 {
	out := make([]float64, len(priorSamps))
	for i, lam := range priorSamps {
		switch {
		case math.IsInf(lam, 1):
			out[i] = math.Inf(1)
		case lam <= 0:
			out[i] = 0
		default:
			out[i] = distuv.Poisson{Lambda: lam, Src: src}.Rand()
		}
	}
	return out
}

func (PoissonModel) UpdateConjugateParams(y, alpha, beta float64) (float64, float64, float64, float64) {
	alpha += y
	beta++
	ft := mathext.Digamma(alpha) - math.Log(beta)
	qt := trigamma(alpha)
	return alpha, beta, ft, qt
}

func (PoissonModel) PriorInverseCDF(u, alpha, beta float64) float64 {
	return distuv.Gamma{Alpha: alpha, Beta: beta}.Quantile(u)
}

func (PoissonModel) SamplingDensity(y float64, priorSamps []float64) []float64 {
	dens := make([]float64, len(priorSamps))
	for i, lam := range priorSamps {
		switch {
		case math.IsInf(lam, 1):
			dens[i] = 0
		case lam <= 0:
			if y == 0 {
				dens[i] = 1
			}
		default:
			dens[i] = distuv.Poisson{Lambda: lam}.Prob(y)
		}
	}
	return dens
}

// ============================================================================
// BERNOULLI / BETA
// ============================================================================

// BernoulliModel is a Bernoulli sampling model under a logit link with a
// conjugate Beta(a, b) prior on the success probability.
type BernoulliModel struct{}

func (BernoulliModel) MeanAndVar(F, a mat.Vector, R mat.Matrix) (float64, float64) {
	return linearPredictorMeanAndVar(F, a, R)
}

func (BernoulliModel) ConjugateParams(ft, qt, _, _ float64) (float64, float64) {
	return betaConjugateParams(ft, qt)
}

func (BernoulliModel) ConjugateMean(a, b float64) float64 {
	return a / (a + b)
}

func (BernoulliModel) Simulate(a, b float64, nsamps int, src rand.Source) []float64 {
	prior := distuv.Beta{Alpha: a, Beta: b, Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = distuv.Bernoulli{P: prior.Rand(), Src: src}.Rand()
	}
	return out
}

func (BernoulliModel) SimulateFromPrior(a, b float64, nsamps int, src rand.Source) []float64 {
	prior := distuv.Beta{Alpha: a, Beta: b, Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = prior.Rand()
	}
	return out
}

func (BernoulliModel) SimulateFromSamplingModel(priorSamps []float64, src rand.Source) []float64 {
	out := make([]float64, len(priorSamps))
	for i, p := range priorSamps {
		out[i] = distuv.Bernoulli{P: p, Src: src}.Rand()
	}
	return out
}

func (BernoulliModel) UpdateConjugateParams(y, a, b float64) (float64, float64, float64, float64) {
	a += y
	b += 1 - y
	ft := mathext.Digamma(a) - mathext.Digamma(b)
	qt := trigamma(a) + trigamma(b)
	return a, b, ft, qt
}

func (BernoulliModel) PriorInverseCDF(u, a, b float64) float64 {
	return distuv.Beta{Alpha: a, Beta: b}.Quantile(u)
}

func (BernoulliModel) SamplingDensity(y float64, priorSamps []float64) []float64 {
	dens := make([]float64, len(priorSamps))
	for i, p := range priorSamps {
		if y == 1 {
			dens[i] = p
		} else {
			dens[i] = 1 - p
		}
	}
	return dens
}

// ============================================================================
// NORMAL
// ============================================================================

// NormalModel is a normal sampling model with known observation variance
// V under an identity link; the conjugate prior is normal, so matching
// and updating are exact.
type NormalModel struct {
	V float64
}

func (NormalModel) MeanAndVar(F, a mat.Vector, R mat.Matrix) (float64, float64) {
	return linearPredictorMeanAndVar(F, a, R)
}

func (NormalModel) ConjugateParams(ft, qt, _, _ float64) (float64, float64) {
	return ft, qt
}

func (NormalModel) ConjugateMean(m, _ float64) float64 {
	return m
}

func (nm NormalModel) Simulate(m, q float64, nsamps int, src rand.Source) []float64 {
	d := distuv.Normal{Mu: m, Sigma: math.Sqrt(q + nm.V), Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (NormalModel) SimulateFromPrior(m, q float64, nsamps int, src rand.Source) []float64 {
	d := distuv.Normal{Mu: m, Sigma: math.Sqrt(q), Src: src}
	out := make([]float64, nsamps)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (nm NormalModel) SimulateFromSamplingModel(priorSamps []float64, src rand.Source) []float64 {
	sd := math.Sqrt(nm.V)
	out := make([]float64, len(priorSamps))
	for i, theta := range priorSamps {
		out[i] = distuv.Normal{Mu: theta, Sigma: sd, Src: src}.Rand()
	}
	return out
}

func (nm NormalModel) UpdateConjugateParams(y, m, q float64) (float64, float64, float64, float64) {
	qv := q + nm.V
	m2 := m + q*(y-m)/qv
	q2 := q * nm.V / qv
	return m2, q2, m2, q2
}

func (NormalModel) PriorInverseCDF(u, m, q float64) float64 {
	return distuv.Normal{Mu: m, Sigma: math.Sqrt(q)}.Quantile(u)
}

func (nm NormalModel) SamplingDensity(y float64, priorSamps []float64) []float64 {
	sd := math.Sqrt(nm.V)
	dens := make([]float64, len(priorSamps))
	for i, theta := range priorSamps {
		dens[i] = distuv.Normal{Mu: theta, Sigma: sd}.Prob(y)
	}
	return dens
}
