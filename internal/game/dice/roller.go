package dice

// Shuffle permutes n elements in place with a Fisher-Yates pass, calling swap
// for every exchange.
//
// Precondition: n >= 0; src and swap must be non-nil.
// Postcondition: every permutation of the n elements is equally likely when
// src is uniform.
func Shuffle(n int, src Source, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		if i != j {
			swap(i, j)
		}
	}
}

// Pick returns a uniformly chosen index in [0, n), or -1 when n == 0.
//
// Precondition: src must be non-nil.
func Pick(n int, src Source) int {
	if n <= 0 {
		return -1
	}
	return src.Intn(n)
}

// Permutation returns a shuffled [0, n).
func Permutation(n int, src Source) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	Shuffle(n, src, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
