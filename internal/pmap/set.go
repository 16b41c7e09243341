package pmap

// StringSet is a persistent set of strings, built on Map.
type StringSet struct {
	m Map
}

// NewStringSet returns an empty StringSet, optionally seeded with members.
func NewStringSet(members ...string) StringSet {
	s := StringSet{m: NewMap()}
	for _, v := range members {
		s = s.Add(v)
	}
	return s
}

// Len returns the number of members.
func (s StringSet) Len() int { return s.m.Len() }

// Has reports whether v is a member.
func (s StringSet) Has(v string) bool { return s.m.Has(v) }

// Add returns a new StringSet with v added.
func (s StringSet) Add(v string) StringSet { return StringSet{m: s.m.Set(v, struct{}{})} }

// Remove returns a new StringSet with v removed.
func (s StringSet) Remove(v string) StringSet { return StringSet{m: s.m.Delete(v)} }

// Union returns a new StringSet containing the members of both sets.
func (s StringSet) Union(other StringSet) StringSet {
	result := s
	other.Range(func(v string) bool {
		result = result.Add(v)
		return true
	})
	return result
}

// Range calls f for every member; iteration stops early if f returns false.
func (s StringSet) Range(f func(v string) bool) {
	s.m.Range(func(k string, _ any) bool { return f(k) })
}

// Slice returns the members in unspecified but stable order.
func (s StringSet) Slice() []string { return s.m.Keys() }
