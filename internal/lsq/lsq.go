// Package lsq solves linear least-squares problems. The pipeline uses it as
// synthetic per-tick load.
package lsq

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/tickstream/internal/dynamo"
)

// Tolerance is the relative singular value cutoff used to pick the rank.
const Tolerance = 1e-7

const (
	RandomRows = 10
	RandomCols = 5
)

var ErrNoConvergence = errors.New("lsq: svd did not converge")

// SolveGiven returns the minimum-norm x minimising |Ax - b|.
func SolveGiven(a mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if b.Len() != rows {
		return nil, fmt.Errorf("%w: A is %dx%d, b has %d entries", dynamo.ErrDimensionMismatch, rows, cols, b.Len())
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrNoConvergence
	}

	x := mat.NewVecDense(cols, nil)
	rank := svd.Rank(Tolerance)
	if rank == 0 {
		return x, nil
	}
	svd.SolveVecTo(x, b, rank)
	return x, nil
}

// RandomProblem draws a RandomRows x RandomCols system with entries in
// [-10, 10).
func RandomProblem(rng *rand.Rand) (*mat.Dense, *mat.VecDense) {
	uniform := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = rng.Float64()*20 - 10
		}
		return out
	}
	return mat.NewDense(RandomRows, RandomCols, uniform(RandomRows*RandomCols)),
		mat.NewVecDense(RandomRows, uniform(RandomRows))
}

func SolveRandom(rng *rand.Rand) (*mat.VecDense, error) {
	a, b := RandomProblem(rng)
	return SolveGiven(a, b)
}

// Load returns a hook that solves one random problem per call. The hook is
// not safe for concurrent use.
func Load(seed int64) func() {
	rng := rand.New(rand.NewSource(seed))
	return func() {
		_, _ = SolveRandom(rng)
	}
}
