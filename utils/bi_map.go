package utils

// BiMap is an immutable bidirectional map. Lookups work by key or by value,
// so both types must be comparable.
type BiMap[K comparable, V comparable] struct {
	a    map[K]V // key -> value
	b    map[V]K // value -> key
	keys []K     // backs Keys()
}

// NewBiMap copies input into a new BiMap. If input holds duplicate values,
// the reverse direction keeps an arbitrary one of the keys.
func NewBiMap[K comparable, V comparable](input map[K]V) *BiMap[K, V] {
	a := make(map[K]V, len(input))
	b := make(map[V]K, len(input))
	keys := make([]K, 0, len(input))

	for k, v := range input {
		a[k] = v
		b[v] = k
		keys = append(keys, k)
	}

	return &BiMap[K, V]{a: a, b: b, keys: keys}
}

// Lookup finds a value by key.
func (m *BiMap[K, V]) Lookup(key K) (V, bool) {
	value, ok := m.a[key]
	return value, ok
}

// DirectLookup returns the value for key, or the zero value of V.
func (m *BiMap[K, V]) DirectLookup(key K) V {
	return m.a[key]
}

// RLookup finds a key by value.
func (m *BiMap[K, V]) RLookup(value V) (K, bool) {
	key, ok := m.b[value]
	return key, ok
}

// DirectRLookup returns the key for value, or the zero value of K.
func (m *BiMap[K, V]) DirectRLookup(value V) K {
	return m.b[value]
}

// Len returns the number of entries.
func (m *BiMap[K, V]) Len() int {
	return len(m.a)
}

// Keys returns a copy of all keys in unspecified order.
func (m *BiMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}
