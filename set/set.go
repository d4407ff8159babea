// Package set provides a tiny generic set.
package set

// Set is an unordered collection of comparable values. The zero value is
// ready to use.
type Set[T comparable] struct {
	set map[T]struct{}
}

// New returns a set holding the given values.
func New[T comparable](values ...T) *Set[T] {
	s := &Set[T]{}
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

func (s *Set[T]) Insert(k T) {
	if s.set == nil {
		s.set = make(map[T]struct{})
	}
	s.set[k] = struct{}{}
}

func (s *Set[T]) Contains(k T) bool {
	_, ok := s.set[k]
	return ok
}

// Len returns the number of values in the set.
func (s *Set[T]) Len() int {
	return len(s.set)
}
