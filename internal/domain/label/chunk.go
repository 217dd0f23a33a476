package label

// Chunk partitions items into consecutive groups of at most size elements.
// Order is preserved; the final group holds the remainder when len(items)
// is not a multiple of size. An empty input yields zero groups.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, NewConfigurationError("items_per_page", "items per page must be a positive integer", nil)
	}

	groups := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		groups = append(groups, items[start:end:end])
	}
	return groups, nil
}

// PageCount returns the number of page groups n items occupy at size items per page
func PageCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
