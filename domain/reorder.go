package domain

// Reorder returns a copy of items with the element at from moved to to. The
// relative order of every other element is preserved. Both indices must be
// within range.
func Reorder[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	moved := items[from]
	for i, item := range items {
		if i == from {
			continue
		}
		if len(out) == to {
			out = append(out, moved)
		}
		out = append(out, item)
	}
	if len(out) == to {
		out = append(out, moved)
	}
	return out
}
