package dialogue

// Score computes the heuristic specificity of an answer in [0, 1].
// It is a weighted, capped sum: length tier, numeric token, deadline
// expression, step-specific positive keyword and (for how) an action or
// frequency expression. Deterministic for identical (message, step) input.
func (r *Rules) Score(message string, step Step) float64 {
	length := runeLen(message)
	score := 0.0

	switch {
	case length >= r.Thresholds.Adequate:
		score += 0.3
	case length >= r.Thresholds.Short:
		score += 0.2
	case length >= r.Thresholds.VeryShort:
		score += 0.1
	}

	if hasNumericToken(message) {
		score += 0.2
	}
	if r.hasDeadline(message) {
		score += 0.2
	}
	if _, ok := containsAny(message, r.positiveKeywords(step)); ok {
		score += 0.2
	}
	if step == StepHow && r.hasActionFrequency(message) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
