package dialogue

import "strings"

// maxRubricQuestions caps the diagnostic follow-ups per quality check.
const maxRubricQuestions = 2

// QualityCheck evaluates the recorded answers against the three rubrics and
// returns up to two targeted questions; when fewer than two rubrics flag, one
// fixed anticipated-obstacle question is appended. Used at the confirm step
// instead of reprinting the recap, so the dialogue never repeats itself.
func (r *Rules) QualityCheck(ans Answers) []string {
	var questions []string

	// WHY: extrinsic-only wording, or too short to carry a motivation.
	if (r.HasExtrinsic(ans.Why) && !r.HasIntrinsic(ans.Why)) || runeLen(ans.Why) < r.Thresholds.VeryShort {
		questions = append(questions, r.Templates.RubricWhy)
	}

	// WHAT: neither a numeric token nor a date expression.
	if len(questions) < maxRubricQuestions && !hasNumericToken(ans.What) && !r.hasDeadline(ans.What) {
		questions = append(questions, r.Templates.RubricWhat)
	}

	// HOW: no frequency or quantity expression.
	if len(questions) < maxRubricQuestions && !r.hasActionFrequency(ans.How) && !hasNumericToken(ans.How) {
		questions = append(questions, r.Templates.RubricHow)
	}

	if len(questions) < maxRubricQuestions {
		questions = append(questions, r.Templates.ObstacleQuestion)
	}

	return questions
}

// QualityCheckMessage renders the full sub-dialogue reply with its
// non-judgmental preamble.
func (r *Rules) QualityCheckMessage(ans Answers) string {
	parts := append([]string{r.Templates.QualityPreamble}, r.QualityCheck(ans)...)
	return strings.Join(parts, "\n")
}
