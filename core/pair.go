package core

// UnorderedPair is a pair of account ids where (a,b) and (b,a) are the
// same pair. The constructor stores the smaller id first, so pairs compare
// equal with == and the canonical ordering carries through to storage.
type UnorderedPair struct {
	First  int64
	Second int64
}

// NewUnorderedPair builds the canonical pair for two account ids.
func NewUnorderedPair(a, b int64) UnorderedPair {
	if b < a {
		a, b = b, a
	}
	return UnorderedPair{First: a, Second: b}
}

// UnorderedPairsOf returns every distinct unordered pair among the given
// account ids: combinations, not permutations. Duplicate ids in the input
// do not produce self-pairs or repeated pairs.
func UnorderedPairsOf(accountIDs []int64) []UnorderedPair {
	seen := make(map[UnorderedPair]struct{})
	var pairs []UnorderedPair
	for i := 0; i < len(accountIDs); i++ {
		for j := i + 1; j < len(accountIDs); j++ {
			if accountIDs[i] == accountIDs[j] {
				continue
			}
			p := NewUnorderedPair(accountIDs[i], accountIDs[j])
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}
