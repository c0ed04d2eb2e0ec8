package stationsum

// newTable allocates a zeroed table of n elements and returns it with a
// release func to call once the table is dead. With the hugepage hint
// set the table is backed by an anonymous mapping advised onto huge
// pages where the platform supports it.
func newTable[T any](n int, huge bool) ([]T, func()) {
	if huge {
		if t, free, ok := mapTable[T](n); ok {
			return t, free
		}
	}
	return make([]T, n), func() {}
}
