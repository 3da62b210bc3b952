// Project: pybats - Bayesian forecasting with dynamic generalized linear models
// Date: Aug 29th 2026

package forecast

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================================
// CONJUGATE MATCHING TESTS
// ============================================================================

func TestGammaConjugateParamsMatchesMoments(t *testing.T) {
	cases := []struct{ ft, qt float64 }{
		{0, 1},
		{1.2, 0.4},
		{-0.5, 0.05},
		{2.5, 2.0},
	}
	for _, c := range cases {
		alpha, beta := gammaConjugateParams(c.ft, c.qt)
		if alpha <= 0 || beta <= 0 {
			t.Fatalf("ft=%v qt=%v: alpha=%v beta=%v, want positive", c.ft, c.qt, alpha, beta)
		}
		// The matched prior must reproduce the linear-predictor moments:
		// E[log rate] = psi(alpha) - ln(beta), V[log rate] = psi'(alpha)
		gotFt := mathext.Digamma(alpha) - math.Log(beta)
		gotQt := trigamma(alpha)
		if !almostEqual(gotFt, c.ft, 1e-6) {
			t.Errorf("ft=%v qt=%v: recovered ft = %v", c.ft, c.qt, gotFt)
		}
		if !almostEqual(gotQt, c.qt, 1e-6) {
			t.Errorf("ft=%v qt=%v: recovered qt = %v", c.ft, c.qt, gotQt)
		}
	}
}

func TestBetaConjugateParamsMatchesMoments(t *testing.T) {
	cases := []struct{ ft, qt float64 }{
		{0, 1},
		{0.3, 0.5},
		{-1.0, 0.2},
		{1.5, 1.0},
	}
	for _, c := range cases {
		a, b := betaConjugateParams(c.ft, c.qt)
		if a <= 0 || b <= 0 {
			t.Fatalf("ft=%v qt=%v: a=%v b=%v, want positive", c.ft, c.qt, a, b)
		}
		gotFt := mathext.Digamma(a) - mathext.Digamma(b)
		gotQt := trigamma(a) + trigamma(b)
		if !almostEqual(gotFt, c.ft, 1e-6) {
			t.Errorf("ft=%v qt=%v: recovered ft = %v", c.ft, c.qt, gotFt)
		}
		if !almostEqual(gotQt, c.qt, 1e-6) {
			t.Errorf("ft=%v qt=%v: recovered qt = %v", c.ft, c.qt, gotQt)
		}
	}
}

func TestPoissonUpdateMomentsAreSelfConsistent(t *testing.T) {
	model := PoissonModel{}
	alpha, beta := gammaConjugateParams(0.8, 0.3)

	a2, b2, ftStar, qtStar := model.UpdateConjugateParams(3, alpha, beta)
	if a2 != alpha+3 {
		t.Errorf("posterior alpha = %v, want %v", a2, alpha+3)
	}
	if b2 != beta+1 {
		t.Errorf("posterior beta = %v, want %v", b2, beta+1)
	}

	// Re-matching the returned posterior moments recovers the posterior
	ra, rb := gammaConjugateParams(ftStar, qtStar)
	if !almostEqual(ra, a2, 1e-5) {
		t.Errorf("re-matched alpha = %v, want %v", ra, a2)
	}
	if !almostEqual(rb, b2, 1e-5*b2) {
		t.Errorf("re-matched beta = %v, want %v", rb, b2)
	}
}

func TestBernoulliUpdate(t *testing.T) {
	model := BernoulliModel{}

	a2, b2, ftStar, qtStar := model.UpdateConjugateParams(1, 2, 3)
	if a2 != 3 || b2 != 3 {
		t.Errorf("posterior after success = (%v, %v), want (3, 3)", a2, b2)
	}
	if !almostEqual(ftStar, mathext.Digamma(3)-mathext.Digamma(3), 1e-12) {
		t.Errorf("posterior ft = %v, want 0", ftStar)
	}
	if !almostEqual(qtStar, 2*trigamma(3), 1e-12) {
		t.Errorf("posterior qt = %v, want %v", qtStar, 2*trigamma(3))
	}

	a2, b2, _, _ = model.UpdateConjugateParams(0, 2, 3)
	if a2 != 2 || b2 != 4 {
		t.Errorf("posterior after failure = (%v, %v), want (2, 4)", a2, b2)
	}
}

func TestNormalUpdateClosedForm(t *testing.T) {
	model := NormalModel{V: 1}

	// m=0, q=1, V=1, y=2: Kalman gain 1/2, so m2=1, q2=1/2
	m2, q2, ftStar, qtStar := model.UpdateConjugateParams(2, 0, 1)
	if !almostEqual(m2, 1, 1e-14) {
		t.Errorf("posterior mean = %v, want 1", m2)
	}
	if !almostEqual(q2, 0.5, 1e-14) {
		t.Errorf("posterior variance = %v, want 0.5", q2)
	}
	if ftStar != m2 || qtStar != q2 {
		t.Error("normal posterior moments should equal the posterior parameters")
	}
}

// ============================================================================
// CONJUGATE MEAN TESTS
// ============================================================================

func TestConjugateMeans(t *testing.T) {
	if got := (PoissonModel{}).ConjugateMean(6, 2); !almostEqual(got, 3, 1e-14) {
		t.Errorf("Poisson conjugate mean = %v, want 3", got)
	}
	if got := (BernoulliModel{}).ConjugateMean(2, 6); !almostEqual(got, 0.25, 1e-14) {
		t.Errorf("Bernoulli conjugate mean = %v, want 0.25", got)
	}
	if got := (NormalModel{V: 1}).ConjugateMean(1.3, 0.4); got != 1.3 {
		t.Errorf("Normal conjugate mean = %v, want 1.3", got)
	}
}

// ============================================================================
// SAMPLING DENSITY TESTS
// ============================================================================

func TestPoissonSamplingDensity(t *testing.T) {
	model := PoissonModel{}

	dens := model.SamplingDensity(1, []float64{2})
	want := 2 * math.Exp(-2)
	if !almostEqual(dens[0], want, 1e-12) {
		t.Errorf("P(y=1 | lam=2) = %v, want %v", dens[0], want)
	}

	// Degenerate rates from extreme copula uniforms
	dens = model.SamplingDensity(0, []float64{0})
	if dens[0] != 1 {
		t.Errorf("P(y=0 | lam=0) = %v, want 1", dens[0])
	}
	dens = model.SamplingDensity(3, []float64{0})
	if dens[0] != 0 {
		t.Errorf("P(y=3 | lam=0) = %v, want 0", dens[0])
	}
	dens = model.SamplingDensity(3, []float64{math.Inf(1)})
	if dens[0] != 0 {
		t.Errorf("P(y=3 | lam=+Inf) = %v, want 0", dens[0])
	}
}

func TestBernoulliSamplingDensity(t *testing.T) {
	model := BernoulliModel{}

	dens := model.SamplingDensity(1, []float64{0.3, 0.8})
	if dens[0] != 0.3 || dens[1] != 0.8 {
		t.Errorf("P(y=1) = %v, want [0.3 0.8]", dens)
	}
	dens = model.SamplingDensity(0, []float64{0.3})
	if !almostEqual(dens[0], 0.7, 1e-14) {
		t.Errorf("P(y=0 | p=0.3) = %v, want 0.7", dens[0])
	}
}

func TestNormalSamplingDensity(t *testing.T) {
	model := NormalModel{V: 4}

	dens := model.SamplingDensity(1.5, []float64{0.5})
	want := distuv.Normal{Mu: 0.5, Sigma: 2}.Prob(1.5)
	if !almostEqual(dens[0], want, 1e-14) {
		t.Errorf("normal sampling density = %v, want %v", dens[0], want)
	}
}

// ============================================================================
// PRIOR INVERSE CDF TESTS
// ============================================================================

func TestPriorInverseCDFMonotone(t *testing.T) {
	us := []float64{0.1, 0.5, 0.9}

	prev := math.Inf(-1)
	for _, u := range us {
		v := (PoissonModel{}).PriorInverseCDF(u, 3, 2)
		if v <= prev {
			t.Errorf("Gamma quantile not increasing at u=%v: %v <= %v", u, v, prev)
		}
		prev = v
	}

	prev = math.Inf(-1)
	for _, u := range us {
		v := (BernoulliModel{}).PriorInverseCDF(u, 2, 2)
		if v <= prev || v < 0 || v > 1 {
			t.Errorf("Beta quantile out of order or range at u=%v: %v", u, v)
		}
		prev = v
	}

	// The normal inverse CDF at the median is the mean
	if v := (NormalModel{}).PriorInverseCDF(0.5, 1.7, 0.4); !almostEqual(v, 1.7, 1e-12) {
		t.Errorf("normal median = %v, want 1.7", v)
	}
}

// ============================================================================
// SIMULATION TESTS
// ============================================================================

func TestPoissonSimulateDeterministic(t *testing.T) {
	model := PoissonModel{}

	first := model.Simulate(3, 2, 32, rand.NewPCG(7, 7))
	second := model.Simulate(3, 2, 32, rand.NewPCG(7, 7))
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs across identical seeds: %v vs %v", i, first[i], second[i])
		}
		if first[i] < 0 || first[i] != math.Trunc(first[i]) {
			t.Errorf("sample %d = %v, want a non-negative integer", i, first[i])
		}
	}
}

func TestNormalSimulateMoments(t *testing.T) {
	model := NormalModel{V: 0.5}

	// Marginalized forecast: N(m, q + V)
	samps := model.Simulate(1, 0.5, 30000, rand.NewPCG(15, 15))
	if got := stat.Mean(samps, nil); !almostEqual(got, 1, 0.03) {
		t.Errorf("sample mean = %v, want approx 1", got)
	}
	if got := stat.Variance(samps, nil); !almostEqual(got, 1, 0.05) {
		t.Errorf("sample variance = %v, want approx 1", got)
	}
}

func TestBernoulliSimulateRange(t *testing.T) {
	model := BernoulliModel{}

	samps := model.Simulate(2, 2, 200, rand.NewPCG(4, 4))
	for i, v := range samps {
		if v != 0 && v != 1 {
			t.Errorf("sample %d = %v, want 0 or 1", i, v)
		}
	}

	priors := model.SimulateFromPrior(2, 2, 200, rand.NewPCG(4, 4))
	for i, p := range priors {
		if p < 0 || p > 1 {
			t.Errorf("prior sample %d = %v, want within [0, 1]", i, p)
		}
	}
}

func TestPoissonSimulateFromSamplingModelEdges(t *testing.T) {
	model := PoissonModel{}

	out := model.SimulateFromSamplingModel([]float64{0, math.Inf(1), 2}, rand.NewPCG(1, 1))
	if out[0] != 0 {
		t.Errorf("sample at lam=0 is %v, want 0", out[0])
	}
	if !math.IsInf(out[1], 1) {
		t.Errorf("sample at lam=+Inf is %v, want +Inf", out[1])
	}
	if out[2] < 0 || out[2] != math.Trunc(out[2]) {
		t.Errorf("sample at lam=2 is %v, want a non-negative integer", out[2])
	}
}
