package temp

import "sort"

// Set is a set of temporaries
type Set map[Temp]struct{}

// NewSet creates a set holding the given temps
func NewSet(ts ...Temp) Set {
	s := make(Set, len(ts))
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

// Add adds a temp to the set
func (s Set) Add(t Temp) {
	s[t] = struct{}{}
}

// Remove deletes a temp from the set
func (s Set) Remove(t Temp) {
	delete(s, t)
}

// Contains reports whether t is in the set
func (s Set) Contains(t Temp) bool {
	_, ok := s[t]
	return ok
}

// Union returns a new set with the elements of both sets
func (s Set) Union(other Set) Set {
	result := make(Set, len(s)+len(other))
	for t := range s {
		result.Add(t)
	}
	for t := range other {
		result.Add(t)
	}
	return result
}

// Minus returns a new set with the elements of s not in other
func (s Set) Minus(other Set) Set {
	result := make(Set, len(s))
	for t := range s {
		if !other.Contains(t) {
			result.Add(t)
		}
	}
	return result
}

// Equal compares by contents
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Copy returns an independent copy
func (s Set) Copy() Set {
	result := make(Set, len(s))
	for t := range s {
		result.Add(t)
	}
	return result
}

// Slice returns the elements sorted by ID so that callers iterate deterministically
func (s Set) Slice() []Temp {
	result := make([]Temp, 0, len(s))
	for t := range s {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}
