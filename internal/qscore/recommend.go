package qscore

// weakFraction is the per-dimension level below which an advisory is issued.
const weakFraction = 0.5

// recommendations derives guidance strings from the dimension fractions and
// the composite score. Output is deterministic: advisories in fixed
// dimension order, then exactly one summary line.
func recommendations(lat, tput, qual, rel, qScore float64) []string {
	recs := make([]string, 0, 5)
	if lat < weakFraction {
		recs = append(recs, "Consider optimizing inference latency")
	}
	if tput < weakFraction {
		recs = append(recs, "Throughput could be improved with batching")
	}
	if qual < weakFraction {
		recs = append(recs, "Model accuracy needs improvement")
	}
	if rel < weakFraction {
		recs = append(recs, "Improve uptime and reduce error rates")
	}

	switch {
	case qScore >= ExcellentScore:
		recs = append(recs, "Excellent performance - eligible for premium rates")
	case qScore >= MinScoreForMint:
		recs = append(recs, "Good performance - eligible for token minting")
	default:
		recs = append(recs, "Below threshold - improvements needed before minting")
	}
	return recs
}
