package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split holds row positions for one train/test partition.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles n row positions and holds out ceil(testSize*n) of them.
func TrainTestSplit(n int, testSize float64, seed int64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, fmt.Errorf("test size must be in (0,1), got %g", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return Split{}, fmt.Errorf("cannot split %d rows with test size %g", n, testSize)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{Train: perm[nTest:], Test: perm[:nTest]}, nil
}

// KFold partitions n row positions into k folds. The first n%k folds hold one extra row.
func KFold(n, k int, shuffle bool, seed int64) ([]Split, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("cannot make %d folds from %d rows", k, n)
	}
	order := make([]int, n)
	if shuffle {
		order = rand.New(rand.NewSource(seed)).Perm(n)
	} else {
		for i := range order {
			order[i] = i
		}
	}
	folds := make([]Split, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := order[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, order[:start]...)
		train = append(train, order[start+size:]...)
		folds[f] = Split{Train: train, Test: append([]int(nil), test...)}
		start += size
	}
	return folds, nil
}

// Pick gathers y at the given row positions.
func Pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
