// Project: pybats - Bayesian forecasting with dynamic generalized linear models
// Date: Aug 29th 2026

package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EvolveState propagates the state prior k steps ahead:
// a_k = G^(k-1) a, R_k = G^(k-1) R (G^(k-1))'. Under discount forecasting
// the accumulated evolution noise is approximated by a constant per-step
// contribution, adding (k-1)*W. At k=1 this returns (a, R) unchanged.
// The snapshot is never modified; fresh copies are returned.
func EvolveState(snap *ModelSnapshot, k int) (*mat.VecDense, *mat.SymDense, error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("%w: k = %d", ErrInvalidHorizon, k)
	}

	p := snap.StateDim()

	// Gk = G^(k-1); G^0 is the identity
	Gk := mat.NewDense(p, p, nil)
	Gk.Pow(snap.G, k-1)

	a := mat.NewVecDense(p, nil)
	a.MulVec(Gk, snap.A)

	var GR, Rk mat.Dense
	GR.Mul(Gk, snap.R)
	Rk.Mul(&GR, Gk.T())

	// Re-symmetrize to counter floating-point drift in the products
	R := symFromDense(&Rk)

	if snap.DiscountForecast && k > 1 {
		for i := 0; i < p; i++ {
			for j := 0; j <= i; j++ {
				R.SetSym(i, j, R.At(i, j)+float64(k-1)*snap.W.At(i, j))
			}
		}
	}

	return a, R, nil
}

// ForecastMarginal produces the k-step-ahead marginal forecast. The
// request mode selects exactly one output: the raw linear-predictor
// moments, the moment-matched conjugate mean, or nsamps draws from the
// forecast distribution. x holds the future regression values for this
// step (ignored when the model has no regression component).
func ForecastMarginal(model ConjugateModel, snap *ModelSnapshot, k int, x []float64, req MarginalRequest, nsamps int, src rand.Source) (*MarginalForecast, error) {
	F, err := designVector(snap, x)
	if err != nil {
		return nil, err
	}

	a, R, err := EvolveState(snap, k)
	if err != nil {
		return nil, err
	}

	ft, qt := model.MeanAndVar(F, a, R)

	switch req {
	case RequestMoments:
		return &MarginalForecast{Moments: &LinearPredictorMoments{Ft: ft, Qt: qt}}, nil
	case RequestMean:
		p1, p2 := model.ConjugateParams(ft, qt, snap.Param1, snap.Param2)
		return &MarginalForecast{Mean: model.ConjugateMean(p1, p2)}, nil
	case RequestSamples:
		if nsamps < 1 {
			return nil, fmt.Errorf("nsamps must be >= 1, got %d", nsamps)
		}
		p1, p2 := model.ConjugateParams(ft, qt, snap.Param1, snap.Param2)
		return &MarginalForecast{Samples: model.Simulate(p1, p2, nsamps, src)}, nil
	}
	return nil, fmt.Errorf("unknown marginal request mode %d", req)
}

// ForecastPath draws nsamps full k-step sample paths with exact
// sequential dependence: within each path, every simulated observation
// feeds a conjugate update and a linear-Bayes correction of the state
// before the next step. X carries the future regression values, one row
// per step. Paths are simulated in parallel across samples; per-sample
// seeds are drawn up front from src so the output is reproducible for a
// fixed source regardless of scheduling.
func ForecastPath(model ConjugateModel, snap *ModelSnapshot, k int, X *mat.Dense, nsamps int, src rand.Source) (*mat.Dense, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k = %d", ErrInvalidHorizon, k)
	}
	if nsamps < 1 {
		return nil, fmt.Errorf("nsamps must be >= 1, got %d", nsamps)
	}

	// Resolve the design vector for every step before spawning workers
	Fs := make([]*mat.VecDense, k)
	for i := 0; i < k; i++ {
		row, err := regressorRow(snap, X, k, i)
		if err != nil {
			return nil, err
		}
		F, err := designVector(snap, row)
		if err != nil {
			return nil, err
		}
		Fs[i] = F
	}

	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	// One seed per sample path, so workers never share a generator
	seeds := make([]uint64, nsamps)
	for n := range seeds {
		seeds[n] = src.Uint64()
	}

	samps := mat.NewDense(nsamps, k, nil)

	numWorkers := runtime.NumCPU()
	if numWorkers > nsamps {
		numWorkers = nsamps
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for n := range jobs {
				rng := rand.New(rand.NewPCG(seeds[n], seeds[n]))
				simulatePath(model, snap, Fs, samps, n, rng)
			}
		}()
	}

	for n := 0; n < nsamps; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	return samps, nil
}

// simulatePath fills row n of samps with one exact sample path. It works
// on private copies of the state and conjugate parameters, leaving the
// snapshot untouched.
func simulatePath(model ConjugateModel, snap *ModelSnapshot, Fs []*mat.VecDense, samps *mat.Dense, n int, rng rand.Source) {
	p := snap.StateDim()

	p1, p2 := snap.Param1, snap.Param2
	a := mat.VecDenseCopyOf(snap.A)
	R := mat.DenseCopyOf(snap.R)

	for i, F := range Fs {
		// Moments of the linear predictor under the current prior
		ft, qt := model.MeanAndVar(F, a, R)

		// Match a conjugate prior and simulate the next observation
		p1, p2 = model.ConjugateParams(ft, qt, p1, p2)
		y := model.Simulate(p1, p2, 1, rng)[0]
		samps.Set(n, i, y)

		// Conjugate update with the realized observation
		var ftStar, qtStar float64
		p1, p2, ftStar, qtStar = model.UpdateConjugateParams(y, p1, p2)

		// Linear-Bayes correction of the state:
		// m = a + R F (ft* - ft)/qt
		// C = R - R F F' R (1 - qt*/qt)/qt
		RF := mat.NewVecDense(p, nil)
		RF.MulVec(R, F)

		m := mat.NewVecDense(p, nil)
		m.AddScaledVec(a, (ftStar-ft)/qt, RF)

		var outer mat.Dense
		outer.Outer((1-qtStar/qt)/qt, RF, RF)
		C := mat.NewDense(p, p, nil)
		C.Sub(R, &outer)

		// Priors a, R for the next time step
		a.MulVec(snap.G, m)
		var GC, Rnext mat.Dense
		GC.Mul(snap.G, C)
		Rnext.Mul(&GC, snap.G.T())

		for r := 0; r < p; r++ {
			for c := 0; c < p; c++ {
				v := (Rnext.At(r, c) + Rnext.At(c, r)) / 2
				if snap.DiscountForecast {
					v += snap.W.At(r, c)
				}
				R.Set(r, c, v)
			}
		}
	}
}

// PathDistribution builds the joint mean vector and covariance matrix of
// the linear predictor over the next k steps, without simulating. The
// diagonal equals the per-step marginal variance; cross terms come from
// the closed-form state cross-covariance cov(theta_j, theta_i) =
// G^(i-j) R_j, so Cov[j,i] = F_j' G^(i-j) R_j F_i. This ignores the
// data-dependent correction the exact path simulator applies, trading
// exactness for O(k^2) cost and reuse across simulation and density
// evaluation.
func PathDistribution(model ConjugateModel, snap *ModelSnapshot, k int, X *mat.Dense) (*JointDistribution, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k = %d", ErrInvalidHorizon, k)
	}

	p := snap.StateDim()
	mu := mat.NewVecDense(k, nil)
	cov := mat.NewSymDense(k, nil)

	Fs := make([]*mat.VecDense, k)
	Rs := make([]*mat.SymDense, k)

	for i := 0; i < k; i++ {
		// Evolve to the prior at time t + i + 1
		a, R, err := EvolveState(snap, i+1)
		if err != nil {
			return nil, err
		}
		Rs[i] = R

		row, err := regressorRow(snap, X, k, i)
		if err != nil {
			return nil, err
		}
		F, err := designVector(snap, row)
		if err != nil {
			return nil, err
		}
		Fs[i] = F

		ft, qt := model.MeanAndVar(F, a, R)
		mu.SetVec(i, ft)
		cov.SetSym(i, i, qt)

		// Covariances with the earlier steps
		for j := 0; j < i; j++ {
			Gp := mat.NewDense(p, p, nil)
			Gp.Pow(snap.G, i-j)

			var covij mat.Dense
			covij.Mul(Gp, Rs[j])

			var tmp mat.VecDense
			tmp.MulVec(&covij, Fs[i])
			cov.SetSym(j, i, mat.Dot(Fs[j], &tmp))
		}
	}

	return &JointDistribution{Mu: mu, Cov: cov}, nil
}

// ForecastPathApprox draws nsamps k-step paths under the copula
// approximation: one joint Gaussian (or Student-t with nu degrees of
// freedom) draw per sample, transformed margin by margin through the
// conjugate prior. Faster than ForecastPath for long horizons.
func ForecastPathApprox(model ConjugateModel, snap *ModelSnapshot, k int, X *mat.Dense, nsamps int, tDist bool, nu float64, src rand.Source) (*mat.Dense, error) {
	joint, err := PathDistribution(model, snap, k, X)
	if err != nil {
		return nil, err
	}
	return SamplePathApprox(model, snap, joint, nsamps, tDist, nu, src)
}

// SamplePathApprox is the single-series copula sampler over a prebuilt
// joint distribution. Every margin shares the snapshot's model and
// conjugate parameters.
func SamplePathApprox(model ConjugateModel, snap *ModelSnapshot, joint *JointDistribution, nsamps int, tDist bool, nu float64, src rand.Source) (*mat.Dense, error) {
	series := make([]SeriesMargin, joint.Dim())
	for i := range series {
		series[i] = SeriesMargin{Model: model, Param1: snap.Param1, Param2: snap.Param2}
	}
	return SampleJointApprox(series, joint, nsamps, tDist, nu, src)
}

// SampleJointApprox is the multi-series copula sampler: each margin of
// the shared joint distribution may belong to a distinct model, and
// contributes its own conjugate match, inverse CDF and sampling step.
func SampleJointApprox(series []SeriesMargin, joint *JointDistribution, nsamps int, tDist bool, nu float64, src rand.Source) (*mat.Dense, error) {
	d := joint.Dim()
	if len(series) != d {
		return nil, fmt.Errorf("%w: %d margins for a %d-dimensional joint distribution", ErrDimensionMismatch, len(series), d)
	}
	if nsamps < 1 {
		return nil, fmt.Errorf("nsamps must be >= 1, got %d", nsamps)
	}

	draws, cdfs, err := copulaDraws(joint, nsamps, tDist, nu, src)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(nsamps, d, nil)
	priors := make([]float64, nsamps)

	for i := 0; i < d; i++ {
		sm := series[i]

		// Match this margin's conjugate prior to its joint moments
		p1, p2 := sm.Model.ConjugateParams(joint.Mu.AtVec(i), joint.Cov.At(i, i), sm.Param1, sm.Param2)

		// CDF maps each joint draw to a uniform variate; the conjugate
		// inverse CDF maps it onto the natural-parameter scale
		for n := 0; n < nsamps; n++ {
			u := cdfs[i](draws.At(n, i))
			priors[n] = sm.Model.PriorInverseCDF(u, p1, p2)
		}

		obs := sm.Model.SimulateFromSamplingModel(priors, src)
		for n := 0; n < nsamps; n++ {
			out.Set(n, i, obs[n])
		}
	}

	return out, nil
}

// PathLogDensity evaluates the log density of the observed path y under
// the copula approximation, by Monte Carlo over nsamps joint draws.
// Missing entries of y are NaN and are dropped, together with the
// matching rows/columns of the joint distribution, before sampling. A
// result of -Inf (every sample underflowed) is valid.
func PathLogDensity(model ConjugateModel, snap *ModelSnapshot, k int, X *mat.Dense, y []float64, nsamps int, tDist bool, nu float64, src rand.Source) (float64, error) {
	if len(y) != k {
		return 0, fmt.Errorf("%w: len(y) = %d, horizon = %d", ErrDimensionMismatch, len(y), k)
	}

	joint, err := PathDistribution(model, snap, k, X)
	if err != nil {
		return 0, err
	}

	idx := observedIndexes(y)
	if len(idx) == 0 {
		return 0, ErrAllMissing
	}

	series := make([]SeriesMargin, len(idx))
	ys := make([]float64, len(idx))
	for j, i := range idx {
		series[j] = SeriesMargin{Model: model, Param1: snap.Param1, Param2: snap.Param2}
		ys[j] = y[i]
	}

	return copulaLogDensity(series, ys, subJoint(joint, idx), nsamps, tDist, nu, src)
}

// JointLogDensity is the multi-series analogue of PathLogDensity: y[i]
// is an observation of series[i]'s margin under the shared joint
// distribution. Missing entries drop their margin, model and all.
func JointLogDensity(series []SeriesMargin, y []float64, joint *JointDistribution, nsamps int, tDist bool, nu float64, src rand.Source) (float64, error) {
	d := joint.Dim()
	if len(series) != d || len(y) != d {
		return 0, fmt.Errorf("%w: %d margins, %d observations, %d-dimensional joint distribution", ErrDimensionMismatch, len(series), len(y), d)
	}

	idx := observedIndexes(y)
	if len(idx) == 0 {
		return 0, ErrAllMissing
	}

	sub := make([]SeriesMargin, len(idx))
	ys := make([]float64, len(idx))
	for j, i := range idx {
		sub[j] = series[i]
		ys[j] = y[i]
	}

	return copulaLogDensity(sub, ys, subJoint(joint, idx), nsamps, tDist, nu, src)
}

// copulaLogDensity runs the shared Monte Carlo estimator: per joint
// draw, the path density is the product of the margins' sampling
// densities (independent conditional on the realized prior values),
// accumulated in log space and exponentiated per sample to avoid
// underflow; the estimate is the log of the across-sample mean.
func copulaLogDensity(series []SeriesMargin, y []float64, joint *JointDistribution, nsamps int, tDist bool, nu float64, src rand.Source) (float64, error) {
	if nsamps < 1 {
		return 0, fmt.Errorf("nsamps must be >= 1, got %d", nsamps)
	}

	draws, cdfs, err := copulaDraws(joint, nsamps, tDist, nu, src)
	if err != nil {
		return 0, err
	}

	d := joint.Dim()
	logdens := make([]float64, nsamps)
	priors := make([]float64, nsamps)

	for i := 0; i < d; i++ {
		sm := series[i]
		p1, p2 := sm.Model.ConjugateParams(joint.Mu.AtVec(i), joint.Cov.At(i, i), sm.Param1, sm.Param2)

		for n := 0; n < nsamps; n++ {
			u := cdfs[i](draws.At(n, i))
			priors[n] = sm.Model.PriorInverseCDF(u, p1, p2)
		}

		dens := sm.Model.SamplingDensity(y[i], priors)
		for n := 0; n < nsamps; n++ {
			logdens[n] += math.Log(dens[n])
		}
	}

	paths := make([]float64, nsamps)
	for n := 0; n < nsamps; n++ {
		paths[n] = math.Exp(logdens[n])
	}

	return math.Log(stat.Mean(paths, nil)), nil
}

// ForecastMarginalLogDensity is the single-time-point Monte Carlo
// density: nsamps draws straight from the moment-matched conjugate prior
// (no copula, a single margin needs no joint distribution), with the
// sampling density at y averaged across draws on the log scale.
func ForecastMarginalLogDensity(model ConjugateModel, snap *ModelSnapshot, k int, x []float64, y float64, nsamps int, src rand.Source) (float64, error) {
	if nsamps < 1 {
		return 0, fmt.Errorf("nsamps must be >= 1, got %d", nsamps)
	}

	F, err := designVector(snap, x)
	if err != nil {
		return 0, err
	}
	a, R, err := EvolveState(snap, k)
	if err != nil {
		return 0, err
	}

	ft, qt := model.MeanAndVar(F, a, R)
	p1, p2 := model.ConjugateParams(ft, qt, snap.Param1, snap.Param2)

	priorSamps := model.SimulateFromPrior(p1, p2, nsamps, src)
	dens := model.SamplingDensity(y, priorSamps)

	return math.Log(stat.Mean(dens, nil)), nil
}

// copulaDraws samples nsamps joint reference vectors and returns them
// with the matching marginal CDFs. Under the Student-t option the scale
// is Cov*(nu-2)/nu so the t covariance equals Cov.
func copulaDraws(joint *JointDistribution, nsamps int, tDist bool, nu float64, src rand.Source) (*mat.Dense, []func(float64) float64, error) {
	d := joint.Dim()
	cdfs := make([]func(float64) float64, d)

	if tDist {
		if nu <= 2 {
			return nil, nil, fmt.Errorf("t-distributed joint draws need nu > 2 degrees of freedom, got %v", nu)
		}
		scale := mat.NewSymDense(d, nil)
		for i := 0; i < d; i++ {
			for j := 0; j <= i; j++ {
				scale.SetSym(i, j, joint.Cov.At(i, j)*(nu-2)/nu)
			}
		}

		draws, err := sampleMultivariateT(joint.Mu, scale, nu, nsamps, src)
		if err != nil {
			return nil, nil, err
		}

		for i := 0; i < d; i++ {
			td := distuv.StudentsT{Mu: joint.Mu.AtVec(i), Sigma: math.Sqrt(scale.At(i, i)), Nu: nu}
			cdfs[i] = td.CDF
		}
		return draws, cdfs, nil
	}

	B, err := covarianceFactor(joint.Cov)
	if err != nil {
		return nil, nil, err
	}

	draws := sampleGaussian(joint.Mu, B, nsamps, src)

	for i := 0; i < d; i++ {
		nd := distuv.Normal{Mu: joint.Mu.AtVec(i), Sigma: math.Sqrt(joint.Cov.At(i, i))}
		cdfs[i] = nd.CDF
	}
	return draws, cdfs, nil
}

// covarianceFactor returns a matrix B with B B' = cov. A Cholesky
// factor is used when one exists; a singular but positive semi-definite
// matrix falls back to an eigendecomposition with the zero eigenvalues
// kept, so rank-deficient joint distributions (perfectly correlated
// steps, for example) remain sampleable. Only genuinely indefinite
// input is an error.
func covarianceFactor(cov *mat.SymDense) (*mat.Dense, error) {
	d := cov.SymmetricDim()

	var chol mat.Cholesky
	if chol.Factorize(cov) {
		L := mat.NewTriDense(d, mat.Lower, nil)
		chol.LTo(L)
		return mat.DenseCopyOf(L), nil
	}

	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return nil, fmt.Errorf("%w: eigendecomposition failed", ErrIndefiniteCovariance)
	}

	vals := es.Values(nil)
	var Q mat.Dense
	es.VectorsTo(&Q)

	// Negative eigenvalues within rounding error of zero are clipped;
	// anything larger means the matrix is indefinite
	tol := 0.0
	for _, v := range vals {
		if a := math.Abs(v); a > tol {
			tol = a
		}
	}
	tol *= 1e-10

	B := mat.NewDense(d, d, nil)
	for j, v := range vals {
		if v < -tol {
			return nil, fmt.Errorf("%w: eigenvalue %v is negative", ErrIndefiniteCovariance, v)
		}
		if v < 0 {
			v = 0
		}
		s := math.Sqrt(v)
		for i := 0; i < d; i++ {
			B.Set(i, j, s*Q.At(i, j))
		}
	}
	return B, nil
}

// sampleGaussian draws nsamps rows of mu + B z with z standard normal.
func sampleGaussian(mu *mat.VecDense, B *mat.Dense, nsamps int, src rand.Source) *mat.Dense {
	d := mu.Len()
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	z := mat.NewVecDense(d, nil)
	x := mat.NewVecDense(d, nil)

	out := mat.NewDense(nsamps, d, nil)
	for n := 0; n < nsamps; n++ {
		for i := 0; i < d; i++ {
			z.SetVec(i, std.Rand())
		}
		x.MulVec(B, z)
		for i := 0; i < d; i++ {
			out.Set(n, i, mu.AtVec(i)+x.AtVec(i))
		}
	}
	return out
}

// sampleMultivariateT draws nsamps vectors from a multivariate Student-t
// with the given mean, scale matrix and nu degrees of freedom: a
// Gamma(nu/2, rate nu/2) mixing variate per sample divides a zero-mean
// Gaussian draw elementwise by its square root.
func sampleMultivariateT(mu *mat.VecDense, scale *mat.SymDense, nu float64, nsamps int, src rand.Source) (*mat.Dense, error) {
	d := mu.Len()

	B, err := covarianceFactor(scale)
	if err != nil {
		return nil, err
	}

	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	g := distuv.Gamma{Alpha: nu / 2, Beta: nu / 2, Src: src}

	z := mat.NewVecDense(d, nil)
	x := mat.NewVecDense(d, nil)

	out := mat.NewDense(nsamps, d, nil)
	for n := 0; n < nsamps; n++ {
		for i := 0; i < d; i++ {
			z.SetVec(i, std.Rand())
		}
		x.MulVec(B, z)
		w := math.Sqrt(g.Rand())
		for i := 0; i < d; i++ {
			out.Set(n, i, mu.AtVec(i)+x.AtVec(i)/w)
		}
	}
	return out, nil
}

// MultivariateTDensity evaluates the closed-form multivariate Student-t
// density at y. The one-dimensional case takes a separate branch so no
// degenerate matrix inverse or determinant is formed.
func MultivariateTDensity(y, mu mat.Vector, scale *mat.SymDense, nu float64) (float64, error) {
	d := y.Len()
	if mu.Len() != d || scale.SymmetricDim() != d {
		return 0, fmt.Errorf("%w: y %d, mean %d, scale %d", ErrDimensionMismatch, d, mu.Len(), scale.SymmetricDim())
	}

	fd := float64(d)

	if d == 1 {
		s := scale.At(0, 0)
		diff := y.AtVec(0) - mu.AtVec(0)
		logConst := lgamma((nu+1)/2) - lgamma(nu/2) - 0.5*math.Log(math.Pi*nu*s)
		return math.Exp(logConst - (nu+1)/2*math.Log(1+diff*diff/(nu*s))), nil
	}

	var chol mat.Cholesky
	if !chol.Factorize(scale) {
		return 0, fmt.Errorf("%w: scale matrix has no Cholesky factorization", ErrIndefiniteCovariance)
	}

	diff := mat.NewVecDense(d, nil)
	diff.SubVec(y, mu)

	var solved mat.VecDense
	if err := chol.SolveVecTo(&solved, diff); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndefiniteCovariance, err)
	}
	quad := mat.Dot(diff, &solved)

	logConst := lgamma((nu+fd)/2) - lgamma(nu/2) - 0.5*(fd*math.Log(math.Pi*nu)+chol.LogDet())
	return math.Exp(logConst - (nu+fd)/2*math.Log(1+quad/nu)), nil
}

// ============================================================================
// HELPERS
// ============================================================================

// designVector copies the snapshot's design vector and substitutes the
// regression values x at the regression indexes.
func designVector(snap *ModelSnapshot, x []float64) (*mat.VecDense, error) {
	F := mat.VecDenseCopyOf(snap.F)
	if snap.NRegn() == 0 {
		return F, nil
	}
	if len(x) != snap.NRegn() {
		return nil, fmt.Errorf("%w: %d regressors supplied, design vector expects %d", ErrDimensionMismatch, len(x), snap.NRegn())
	}
	for j, idx := range snap.IRegn {
		F.SetVec(idx, x[j])
	}
	return F, nil
}

// regressorRow extracts row i of the future regressor matrix X, after
// checking its shape against the horizon and regression count.
func regressorRow(snap *ModelSnapshot, X *mat.Dense, k, i int) ([]float64, error) {
	if snap.NRegn() == 0 {
		return nil, nil
	}
	if X == nil {
		return nil, fmt.Errorf("%w: model has %d regression components but no future regressors were supplied", ErrDimensionMismatch, snap.NRegn())
	}
	r, c := X.Dims()
	if r != k || c != snap.NRegn() {
		return nil, fmt.Errorf("%w: X is %dx%d, want %dx%d", ErrDimensionMismatch, r, c, k, snap.NRegn())
	}
	return mat.Row(nil, i, X), nil
}

// symFromDense averages a nearly-symmetric dense matrix into a SymDense.
func symFromDense(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// observedIndexes returns the indexes of the non-missing (non-NaN)
// entries of y.
func observedIndexes(y []float64) []int {
	idx := make([]int, 0, len(y))
	for i, v := range y {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	return idx
}

// subJoint restricts a joint distribution to the given margin indexes.
func subJoint(joint *JointDistribution, idx []int) *JointDistribution {
	m := len(idx)
	mu := mat.NewVecDense(m, nil)
	cov := mat.NewSymDense(m, nil)
	for a, i := range idx {
		mu.SetVec(a, joint.Mu.AtVec(i))
		for b := 0; b <= a; b++ {
			cov.SetSym(a, b, joint.Cov.At(i, idx[b]))
		}
	}
	return &JointDistribution{Mu: mu, Cov: cov}
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
