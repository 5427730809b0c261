package dataset

import (
	"fmt"
	"math"
	"sort"

	"bczsl/internal/randsrc"
)

// StratifiedSplit partitions row indices into train and test so that every
// class keeps roughly its share in both parts. Each class contributes
// round(testSize*count) rows to test, at least one when it has two or more
// rows. Indices are returned in ascending order.
func StratifiedSplit(labels []string, testSize float64, src *randsrc.Source) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("dataset: test size %v outside (0, 1)", testSize)
	}
	byClass := make(map[string][]int)
	var classes []string
	for i, l := range labels {
		if _, ok := byClass[l]; !ok {
			classes = append(classes, l)
		}
		byClass[l] = append(byClass[l], i)
	}
	sort.Strings(classes)

	for _, c := range classes {
		idx := byClass[c]
		src.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testSize * float64(len(idx))))
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
