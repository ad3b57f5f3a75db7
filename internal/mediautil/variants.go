package mediautil

// VideoCandidate is one quality option for the same logical video,
// discovered during extraction and consumed immediately by BestVariant.
type VideoCandidate struct {
	URL     string
	Bitrate int64
}

// BestVariant returns the candidate with the highest declared bitrate.
// Candidates without a bitrate score zero; ties keep the first-encountered
// candidate. Returns false when the list is empty.
func BestVariant(candidates []VideoCandidate) (VideoCandidate, bool) {
	var best VideoCandidate
	bestScore := int64(-1)
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		score := c.Bitrate
		if score < 0 {
			score = 0
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore >= 0
}
