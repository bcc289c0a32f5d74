package slabpool

import "math/bits"

const wordBits = 32

// activeSet is one bit per slot, set while the slot holds a live value.
type activeSet struct {
	words []uint32
}

func newActiveSet(n int) activeSet {
	return activeSet{words: make([]uint32, (n+wordBits-1)/wordBits)}
}

func (s *activeSet) set(i int) {
	s.words[i/wordBits] |= 1 << (i % wordBits)
}

func (s *activeSet) clear(i int) {
	s.words[i/wordBits] &^= 1 << (i % wordBits)
}

func (s *activeSet) test(i int) bool {
	return s.words[i/wordBits]&(1<<(i%wordBits)) != 0
}

// count returns the number of set bits.
func (s *activeSet) count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount32(w)
	}
	return n
}

// each calls fn for every set bit below limit in ascending order, stopping
// when fn returns false.
func (s *activeSet) each(limit int, fn func(i int) bool) {
	for wi, w := range s.words {
		for w != 0 {
			i := wi*wordBits + bits.TrailingZeros32(w)
			if i >= limit {
				return
			}
			if !fn(i) {
				return
			}
			w &= w - 1
		}
	}
}
