package game

// RouteLength is the number of directions scored against the optimal route.
const RouteLength = 4

// Accuracy compares the first RouteLength realized directions with the
// optimal ones index by index and returns the share of exact matches.
// Missing or invalid directions count as mismatches.
func Accuracy(realized, optimal []Direction) float64 {
	matches := 0
	for i := 0; i < RouteLength; i++ {
		if i >= len(realized) || i >= len(optimal) {
			break
		}
		if realized[i] != DirectionInvalid && realized[i] == optimal[i] {
			matches++
		}
	}
	return float64(matches) / RouteLength
}
