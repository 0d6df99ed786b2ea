package memir

import "sort"

// NameSet is a set of names.
type NameSet map[Name]struct{}

// NewNameSet creates a set containing the given names.
func NewNameSet(names ...Name) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts a name into the set.
func (s NameSet) Add(n Name) {
	s[n] = struct{}{}
}

// Contains returns true if the name is in the set.
func (s NameSet) Contains(n Name) bool {
	_, ok := s[n]
	return ok
}

// Copy returns an independent copy of the set.
func (s NameSet) Copy() NameSet {
	c := make(NameSet, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}

// Disjoint returns true if the two sets share no name.
func (s NameSet) Disjoint(other NameSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for n := range small {
		if large.Contains(n) {
			return false
		}
	}
	return true
}

// Sorted returns the set's names in lexicographic order.
func (s NameSet) Sorted() []Name {
	names := make([]Name, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})
	return names
}
