package utils

// Distinct reports whether arr holds no repeated items.
func Distinct[T comparable](arr []T) bool {
	seen := make(map[T]struct{}, len(arr))
	for _, i := range arr {
		if _, ok := seen[i]; ok {
			return false
		}
		seen[i] = struct{}{}
	}

	return true
}
