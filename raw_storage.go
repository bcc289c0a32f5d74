package slabpool

// noCopy may be embedded into structs which must not be copied after first
// use. go vet's copylocks check reports copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// RawStorage is the fixed backing array of a pool: capacity slots of T
// allocated once and never resized. It tracks no lifecycle; owners decide
// which slots hold live values.
type RawStorage[T any] struct {
	_   noCopy
	buf []T
}

// NewRawStorage returns storage for n slots. It panics if n < 1.
func NewRawStorage[T any](n int) RawStorage[T] {
	if n < 1 {
		fatalf(ErrInvalidCapacity, "raw storage of %d slots", n)
	}
	return RawStorage[T]{buf: make([]T, n)}
}

// Data returns a pointer to the first slot.
func (r *RawStorage[T]) Data() *T {
	return &r.buf[0]
}

// At returns a pointer to slot i.
func (r *RawStorage[T]) At(i int) *T {
	return &r.buf[i]
}

// Capacity returns the number of slots.
func (r *RawStorage[T]) Capacity() int {
	return len(r.buf)
}
