// Package netlist resolves named pin-to-pin connections into nets. Nets are
// kept in a union-find structure keyed by pin (or sheet point) with the net
// name attached to each set's root, so that merging is order-independent.
package netlist

import (
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Sets is a disjoint-set forest with an optional name per set.
type Sets[K comparable] struct {
	parent map[K]K
	rank   map[K]int
	names  map[K]string // root -> name
	named  map[string]K // name -> member of the named set
	order  []K

	// Lenient makes conflicting unions keep the lexically smaller name
	// instead of failing. Conflicts are recorded.
	Lenient   bool
	Conflicts [][2]string
}

// NewSets creates an empty forest.
func NewSets[K comparable]() *Sets[K] {
	return &Sets[K]{
		parent: make(map[K]K),
		rank:   make(map[K]int),
		names:  make(map[K]string),
		named:  make(map[string]K),
	}
}

// Add inserts k as a singleton set if it is not present yet.
func (s *Sets[K]) Add(k K) {
	if _, ok := s.parent[k]; ok {
		return
	}
	s.parent[k] = k
	s.rank[k] = 0
	s.order = append(s.order, k)
}

// Has reports whether k has been added.
func (s *Sets[K]) Has(k K) bool {
	_, ok := s.parent[k]
	return ok
}

// Find returns the root of the set containing k, adding k if needed.
// Uses path compression.
func (s *Sets[K]) Find(k K) K {
	s.Add(k)

	root := k
	for s.parent[root] != root {
		root = s.parent[root]
	}

	current := k
	for current != root {
		next := s.parent[current]
		s.parent[current] = root
		current = next
	}

	return root
}

// Name returns the name of the set containing k, or "".
func (s *Sets[K]) Name(k K) string {
	return s.names[s.Find(k)]
}

// Same reports whether a and b are in the same set.
func (s *Sets[K]) Same(a, b K) bool {
	return s.Find(a) == s.Find(b)
}

// Union merges the sets of a and b. A named set gives its name to the
// merged set; two distinct names are a conflict and leave both sets
// untouched.
func (s *Sets[K]) Union(a, b K) error {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return nil
	}

	na, nb := s.names[ra], s.names[rb]
	name := na
	if na == "" {
		name = nb
	} else if nb != "" && na != nb {
		if !s.Lenient {
			return errors.NewNetConflict(na, nb)
		}
		s.Conflicts = append(s.Conflicts, [2]string{na, nb})
		if nb < na {
			name = nb
		}
		delete(s.named, na)
		delete(s.named, nb)
	}

	delete(s.names, ra)
	delete(s.names, rb)

	// Union by rank
	root := ra
	switch {
	case s.rank[ra] < s.rank[rb]:
		s.parent[ra] = rb
		root = rb
	case s.rank[ra] > s.rank[rb]:
		s.parent[rb] = ra
	default:
		s.parent[rb] = ra
		s.rank[ra]++
	}

	if name != "" {
		s.names[root] = name
		s.named[name] = root
	}
	return nil
}

// SetName names the set containing k. A set already carrying the same name
// elsewhere is merged in; a set carrying a different name is a conflict.
func (s *Sets[K]) SetName(k K, name string) error {
	root := s.Find(k)
	current := s.names[root]
	if current == name {
		return nil
	}
	if current != "" {
		if !s.Lenient {
			return errors.NewNetConflict(current, name)
		}
		s.Conflicts = append(s.Conflicts, [2]string{current, name})
		if current < name {
			return nil
		}
		delete(s.named, current)
	}

	if other, ok := s.named[name]; ok && s.Find(other) != root {
		delete(s.names, root)
		return s.Union(k, other)
	}

	s.names[root] = name
	s.named[name] = root
	return nil
}

// Groups returns the members of every set, in order of first insertion.
func (s *Sets[K]) Groups() [][]K {
	index := make(map[K]int)
	var groups [][]K
	for _, k := range s.order {
		root := s.Find(k)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], k)
	}
	return groups
}
