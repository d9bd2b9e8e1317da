package dialogue

// patternRule is one (predicate, pattern) pair of the classifier. Rules are
// evaluated strictly in slice order; the first hit wins. An explicit slice is
// used instead of a map so the priority contract cannot depend on iteration
// order.
type patternRule struct {
	pattern func(step Step) Pattern
	applies func(step Step) bool
	match   func(r *Rules, msg string, length int) (string, bool)
}

func fixed(p Pattern) func(Step) Pattern {
	return func(Step) Pattern { return p }
}

func anyStep(Step) bool { return true }

func onlySteps(steps ...Step) func(Step) bool {
	return func(s Step) bool {
		for _, step := range steps {
			if s == step {
				return true
			}
		}
		return false
	}
}

func keywordMatch(pick func(k *Keywords) []string) func(*Rules, string, int) (string, bool) {
	return func(r *Rules, msg string, _ int) (string, bool) {
		return containsAny(msg, pick(&r.Keywords))
	}
}

// taxonomyRules is the fixed priority order of the keyword taxonomy,
// safety first, then help signals, then the quality patterns.
var taxonomyRules = []patternRule{
	{
		pattern: fixed(PatternMentalHealth),
		applies: anyStep,
		match:   keywordMatch(func(k *Keywords) []string { return k.MentalHealth }),
	},
	{
		pattern: HelpQuestion,
		applies: anyStep,
		match: func(r *Rules, msg string, _ int) (string, bool) {
			if isQuestion(msg) {
				return "?", true
			}
			return containsAny(msg, r.Keywords.HelpSeeking)
		},
	},
	{
		pattern: HelpConfused,
		applies: anyStep,
		match:   keywordMatch(func(k *Keywords) []string { return k.Confusion }),
	},
	{
		pattern: fixed(PatternCareer),
		applies: onlySteps(StepWhy),
		match:   keywordMatch(func(k *Keywords) []string { return k.Career }),
	},
	{
		pattern: fixed(PatternOtherBlame),
		applies: anyStep,
		match:   keywordMatch(func(k *Keywords) []string { return k.OtherBlame }),
	},
	{
		pattern: fixed(PatternNoGoal),
		applies: onlySteps(StepWhy),
		match:   keywordMatch(func(k *Keywords) []string { return k.NoGoal }),
	},
	{
		pattern: fixed(PatternPrivateOnly),
		applies: onlySteps(StepWhy, StepWhat),
		match:   keywordMatch(func(k *Keywords) []string { return k.PrivateOnly }),
	},
	{
		pattern: fixed(PatternAbstract),
		applies: anyStep,
		match: func(r *Rules, msg string, length int) (string, bool) {
			if length < r.Thresholds.VeryShort {
				return "", false
			}
			return containsAny(msg, r.Keywords.Abstract)
		},
	},
}

// Detect classifies one user message at one step. Pure: no side effects, no
// state beyond the inputs and the immutable rule set.
func (r *Rules) Detect(message string, step Step, dctx Context) (Pattern, Evaluation) {
	length := runeLen(message)
	eval := Evaluation{
		Length:     length,
		IsQuestion: isQuestion(message),
		RetryCount: dctx.RetryCount,
	}
	if _, ok := containsAny(message, r.Keywords.Confusion); ok {
		eval.IsConfused = true
	}

	for _, rule := range taxonomyRules {
		if !rule.applies(step) {
			continue
		}
		keyword, ok := rule.match(r, message, length)
		if !ok {
			continue
		}
		pattern := rule.pattern(step)
		if keyword != "" {
			eval.Keywords = append(eval.Keywords, keyword)
		}
		eval.Issues = append(eval.Issues, string(pattern))
		return pattern, eval
	}

	// Length gates sit below the keyword taxonomy: a safety keyword in a
	// three-character message still wins above.
	if length < r.Thresholds.ExtremelyShort {
		eval.Specificity = 0.1
		eval.Issues = append(eval.Issues, string(PatternTooShort))
		return PatternTooShort, eval
	}
	if length < r.Thresholds.VeryShort {
		eval.Specificity = 0.2
		eval.Issues = append(eval.Issues, string(PatternTooShort))
		return PatternTooShort, eval
	}

	eval.Specificity = r.Score(message, step)

	if step == StepWhat && !hasNumericToken(message) && length < r.Thresholds.Short {
		eval.Issues = append(eval.Issues, string(PatternAbstract))
		return PatternAbstract, eval
	}
	if step == StepHow && !r.hasActionFrequency(message) && length < r.Thresholds.Short {
		eval.Issues = append(eval.Issues, string(PatternAbstract))
		return PatternAbstract, eval
	}

	return PatternOK, eval
}
