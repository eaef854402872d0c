package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Split shuffles records into a training and a held-out partition. The test
// partition receives round(testFraction*N) rows, clamped so that both sides
// are non-empty whenever N >= 2. A zero seed draws a random shuffle; any
// other seed reproduces the same partition for the same input.
func Split(records []Record, testFraction float64, seed uint64) (train, test []Record, err error) {
	if math.IsNaN(testFraction) || testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0,1), got %v", testFraction)
	}
	n := len(records)
	if n == 0 {
		return []Record{}, []Record{}, nil
	}
	testN := int(math.Round(testFraction * float64(n)))
	if n >= 2 {
		testN = max(1, min(testN, n-1))
	} else {
		testN = 0
	}

	perm := newRand(seed).Perm(n)
	test = make([]Record, 0, testN)
	train = make([]Record, 0, n-testN)
	for i, j := range perm {
		if i < testN {
			test = append(test, records[j])
		} else {
			train = append(train, records[j])
		}
	}
	return train, test, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
