// Project: pybats - Bayesian forecasting with dynamic generalized linear models
// Date: Aug 29th 2026

package forecast

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Precondition failures surfaced to the caller. Numerical underflow in
// density averages is not an error; it yields a -Inf log density.
var (
	ErrInvalidHorizon       = errors.New("forecast horizon must be >= 1")
	ErrDimensionMismatch    = errors.New("dimension mismatch")
	ErrIndefiniteCovariance = errors.New("covariance matrix is not positive definite")
	ErrAllMissing           = errors.New("all observations are missing")
)

// ModelSnapshot is the posterior state of a DGLM at the forecast origin.
// It is owned by the caller: every forecast routine works on private
// copies and never mutates A, R, Param1 or Param2.
type ModelSnapshot struct {
	// State mean (length p) and covariance (p x p)
	A *mat.VecDense
	R *mat.SymDense

	// State transition matrix (p x p)
	G *mat.Dense

	// Evolution noise covariance (p x p), used when DiscountForecast is set
	W *mat.SymDense

	// Design vector (length p); regression entries are substituted at IRegn
	F *mat.VecDense

	// Indices of F holding regression components
	IRegn []int

	// Current conjugate prior parameters
	Param1 float64
	Param2 float64

	// Accumulate evolution noise over multi-step forecasts
	DiscountForecast bool
}

// NRegn returns the number of regression components in the design vector.
func (s *ModelSnapshot) NRegn() int { return len(s.IRegn) }

// StateDim returns the state dimension p.
func (s *ModelSnapshot) StateDim() int { return s.A.Len() }

// ConjugateModel is the capability interface implemented once per
// exponential-family sampling distribution. The forecasting engine calls
// only these methods and never touches family internals. Sampling
// methods take a rand source; nil means the shared global source.
type ConjugateModel interface {
	// Mean and variance of the linear predictor F'theta under (a, R)
	MeanAndVar(F mat.Vector, a mat.Vector, R mat.Matrix) (ft, qt float64)

	// Moment-match a conjugate prior to the target mean and variance.
	// The previous parameters are passed through as a warm start.
	ConjugateParams(ft, qt, param1, param2 float64) (float64, float64)

	// Predictive mean of the conjugate prior
	ConjugateMean(param1, param2 float64) float64

	// Draw observations from the forecast (prior-marginalized) distribution
	Simulate(param1, param2 float64, nsamps int, src rand.Source) []float64

	// Draw natural-parameter values from the conjugate prior itself
	SimulateFromPrior(param1, param2 float64, nsamps int, src rand.Source) []float64

	// Draw observations conditioned on realized natural-parameter values
	SimulateFromSamplingModel(priorSamps []float64, src rand.Source) []float64

	// Exact conjugate update given one realized observation, plus the
	// implied pseudo-moments of the linear predictor
	UpdateConjugateParams(y, param1, param2 float64) (p1, p2, ftStar, qtStar float64)

	// Inverse CDF of the conjugate prior margin
	PriorInverseCDF(u, param1, param2 float64) float64

	// Observation density at y, evaluated at each realized prior draw
	SamplingDensity(y float64, priorSamps []float64) []float64
}

// Which output a marginal forecast call should produce
type MarginalRequest int

const (
	// Raw linear-predictor moments (ft, qt)
	RequestMoments MarginalRequest = iota
	// Moment-matched conjugate predictive mean
	RequestMean
	// Draws from the forecast distribution
	RequestSamples
)

// LinearPredictorMoments is the scalar mean/variance pair of the linear
// predictor at one future time, family-independent.
type LinearPredictorMoments struct {
	Ft float64
	Qt float64
}

// MarginalForecast holds exactly one of the three marginal outputs,
// matching the request mode.
type MarginalForecast struct {
	Moments *LinearPredictorMoments
	Mean    float64
	Samples []float64
}

// JointDistribution is the closed-form joint Gaussian approximation of
// the linear predictor over a forecast horizon. Built once per horizon
// by PathDistribution; immutable after construction. The diagonal of Cov
// equals the per-step marginal variance qt.
type JointDistribution struct {
	Mu  *mat.VecDense
	Cov *mat.SymDense
}

// Dim returns the number of margins in the joint distribution.
func (d *JointDistribution) Dim() int { return d.Mu.Len() }

// SeriesMargin binds one margin of a multi-series joint forecast to its
// own model and conjugate prior parameters.
type SeriesMargin struct {
	Model  ConjugateModel
	Param1 float64
	Param2 float64
}
