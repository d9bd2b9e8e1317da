package dialogue

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ryotagoto/mokuhyo/internal/config"
)

// Thresholds are the rune-length tiers used by the detector and scorer.
type Thresholds struct {
	ExtremelyShort int
	VeryShort      int
	Short          int
	Adequate       int
	LongResponse   int
}

// Keywords are the fixed vocabulary lists behind every heuristic check.
type Keywords struct {
	MentalHealth []string
	HelpSeeking  []string
	Confusion    []string
	Career       []string
	OtherBlame   []string
	NoGoal       []string
	PrivateOnly  []string
	Abstract     []string

	Exit        []string
	Restart     []string
	Frustration []string

	Confirmation    []string
	FeedbackRequest []string
	Doubt           []string

	Intrinsic []string
	Extrinsic []string

	ActionFrequency []string
	Deadline        []string

	PositiveWhy  []string
	PositiveWhat []string
	PositiveHow  []string
}

// Rules is the single immutable configuration value the orchestrator runs on.
// Construct it once with NewRules and pass it by reference; it has no setters.
type Rules struct {
	Thresholds   Thresholds
	RetryCeiling int
	Keywords     Keywords
	Templates    Templates
}

// NewRules builds the rule set from configured thresholds and the fixed vocabulary.
func NewRules(cfg config.DialogueConfig) *Rules {
	t := Thresholds{
		ExtremelyShort: cfg.ExtremelyShortLen,
		VeryShort:      cfg.VeryShortLen,
		Short:          cfg.ShortLen,
		Adequate:       cfg.AdequateLen,
		LongResponse:   cfg.LongResponseLen,
	}
	if t.ExtremelyShort <= 0 {
		t.ExtremelyShort = config.DefaultDialogueExtremelyShortLen
	}
	if t.VeryShort <= 0 {
		t.VeryShort = config.DefaultDialogueVeryShortLen
	}
	if t.Short <= 0 {
		t.Short = config.DefaultDialogueShortLen
	}
	if t.Adequate <= 0 {
		t.Adequate = config.DefaultDialogueAdequateLen
	}
	if t.LongResponse <= 0 {
		t.LongResponse = config.DefaultDialogueLongResponseLen
	}

	ceiling := cfg.RetryCeiling
	if ceiling <= 0 {
		ceiling = config.DefaultDialogueRetryCeiling
	}

	return &Rules{
		Thresholds:   t,
		RetryCeiling: ceiling,
		Keywords:     defaultKeywords(),
		Templates:    defaultTemplates(),
	}
}

func defaultKeywords() Keywords {
	return Keywords{
		MentalHealth: []string{
			"exhausted", "burned out", "burnt out", "can't sleep", "cannot sleep",
			"hopeless", "worthless", "want to disappear", "can't go on",
			"breaking down", "depressed", "no point in living",
		},
		HelpSeeking: []string{
			"help", "for example", "what should i", "how should i",
			"what do you mean", "can you explain", "give me an example", "not sure what to",
		},
		Confusion: []string{
			"i don't know", "dont know", "no idea", "confused", "can't decide",
			"cannot decide", "unsure", "nothing comes to mind",
		},
		Career: []string{
			"change jobs", "changing jobs", "new job", "resign", "resigning",
			"leave the company", "leaving the company", "quit my job", "transfer out",
		},
		OtherBlame: []string{
			"my boss", "my manager", "company's fault", "because of the company",
			"they won't let", "nobody supports", "it's their fault",
		},
		NoGoal: []string{
			"no goal", "nothing in particular", "don't have one", "dont have one",
			"don't really have", "whatever is fine", "nothing really",
		},
		PrivateOnly: []string{
			"hobby", "hobbies", "video game", "my vacation", "private life only",
			"just for fun", "personal trip",
		},
		Abstract: []string{
			"do my best", "try my best", "try hard", "work harder", "somehow",
			"properly", "as much as possible", "in general",
		},
		Exit: []string{
			"exit", "quit", "stop here", "end session", "cancel", "later",
		},
		Restart: []string{
			"restart", "start over", "from the beginning", "from scratch", "redo this",
		},
		Frustration: []string{
			"already told you", "i said that", "as i said", "i just told you",
			"told you already",
		},
		Confirmation: []string{
			"ok", "okay", "yes", "yep", "yeah", "that's right", "thats right",
			"correct", "looks good", "sounds good", "perfect", "go ahead",
		},
		FeedbackRequest: []string{
			"feedback", "advice", "your thoughts", "what do you think",
			"is this okay", "is this good", "any suggestions",
		},
		Doubt: []string{
			"not confident", "worried", "anxious", "can i really", "not sure i can",
			"doubt", "afraid",
		},
		Intrinsic: []string{
			"want to", "grow", "enjoy", "love", "improve myself", "proud",
			"excited", "curious", "challenge myself",
		},
		Extrinsic: []string{
			"have to", "told to", "supposed to", "required", "my boss wants",
			"was assigned", "expected of me",
		},
		ActionFrequency: []string{
			"every day", "daily", "each day", "every morning", "each morning",
			"per day", "per week", "weekly", "every week", "times a", "each time",
			"calls", "visits", "follow-ups", "followups",
		},
		Deadline: []string{
			"by ", "until", "deadline", "this month", "this quarter", "this week",
			"end of month", "end of the month", "end of quarter", "within",
			"january", "february", "march", "april", "may", "june", "july",
			"august", "september", "october", "november", "december",
		},
		PositiveWhy: []string{
			"because", "want", "grow", "improve", "matter", "important",
		},
		PositiveWhat: []string{
			"sales", "revenue", "deals", "contracts", "customers", "clients",
			"appointments", "orders", "yen",
		},
		PositiveHow: []string{
			"call", "visit", "propose", "prepare", "review", "practice",
			"follow up", "prospect", "list",
		},
	}
}

var numericTokenRe = regexp.MustCompile(`[0-9][0-9,.]*|[０-９]+`)

// runeLen measures message length the way every threshold is defined: in runes.
func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func containsAny(text string, needles []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if needle != "" && strings.Contains(lower, needle) {
			return needle, true
		}
	}
	return "", false
}

// negations disqualify a confirmation match: "not correct" and "no, okay as
// is?" must never read as agreement.
var negations = []string{
	"no", "not", "nope", "never", "don't", "dont", "isn't", "isnt", "wrong",
}

// containsWordAny matches needles on word boundaries, so "ok" never fires
// inside "broken" and "correct" never fires inside "incorrect". Multi-word
// needles are bounded at both ends.
func containsWordAny(text string, needles []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(lower[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(needle)
			if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
				return needle, true
			}
			from = end
		}
	}
	return "", false
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func hasNumericToken(text string) bool {
	return numericTokenRe.MatchString(text)
}

func (r *Rules) hasDeadline(text string) bool {
	_, ok := containsAny(text, r.Keywords.Deadline)
	return ok
}

func (r *Rules) hasActionFrequency(text string) bool {
	_, ok := containsAny(text, r.Keywords.ActionFrequency)
	return ok
}

func (r *Rules) positiveKeywords(step Step) []string {
	switch step {
	case StepWhy:
		return r.Keywords.PositiveWhy
	case StepWhat:
		return r.Keywords.PositiveWhat
	case StepHow:
		return r.Keywords.PositiveHow
	}
	return nil
}

func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？")
}

// IsExit reports an explicit request to leave the dialogue. Exit keywords only
// count on short messages so "I want to quit smoking by June" stays an answer.
func (r *Rules) IsExit(text string) bool {
	if runeLen(text) > r.Thresholds.Short {
		return false
	}
	_, ok := containsWordAny(text, r.Keywords.Exit)
	return ok
}

// IsRestart reports an explicit request to throw the session away and start fresh.
func (r *Rules) IsRestart(text string) bool {
	_, ok := containsWordAny(text, r.Keywords.Restart)
	return ok
}

// IsFrustration reports an "I already told you that" expression.
func (r *Rules) IsFrustration(text string) bool {
	_, ok := containsWordAny(text, r.Keywords.Frustration)
	return ok
}

// IsConfirmation reports a pure confirmation utterance: it must match a
// confirmation keyword as a whole word, carry no negation, and must not also
// ask for more.
func (r *Rules) IsConfirmation(text string) bool {
	if _, ok := containsWordAny(text, r.Keywords.Confirmation); !ok {
		return false
	}
	if _, negated := containsWordAny(text, negations); negated {
		return false
	}
	if r.IsFeedbackRequest(text) || r.IsDoubt(text) {
		return false
	}
	return runeLen(text) <= r.Thresholds.Adequate
}

// IsFeedbackRequest reports a request for advice or review.
func (r *Rules) IsFeedbackRequest(text string) bool {
	_, ok := containsWordAny(text, r.Keywords.FeedbackRequest)
	return ok
}

// IsDoubt reports an anxiety or low-confidence expression.
func (r *Rules) IsDoubt(text string) bool {
	_, ok := containsWordAny(text, r.Keywords.Doubt)
	return ok
}

// HasIntrinsic reports intrinsic-motivation wording.
func (r *Rules) HasIntrinsic(text string) bool {
	_, ok := containsAny(text, r.Keywords.Intrinsic)
	return ok
}

// HasExtrinsic reports extrinsic-motivation wording.
func (r *Rules) HasExtrinsic(text string) bool {
	_, ok := containsAny(text, r.Keywords.Extrinsic)
	return ok
}

// Themes extracts coarse motivation themes from a WHY answer.
func (r *Rules) Themes(text string) []string {
	var themes []string
	if r.HasIntrinsic(text) {
		themes = append(themes, "intrinsic")
	}
	if r.HasExtrinsic(text) {
		themes = append(themes, "extrinsic")
	}
	return themes
}

// SatisfiesStep reports whether text already fulfils a step it was not asked
// for, used to skip steps a rich answer covers.
func (r *Rules) SatisfiesStep(text string, step Step) bool {
	switch step {
	case StepWhat:
		return hasNumericToken(text) && r.hasDeadline(text)
	case StepHow:
		return r.hasActionFrequency(text)
	}
	return false
}
