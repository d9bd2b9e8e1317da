package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExitOnlyOnShortMessages(t *testing.T) {
	r := testRules()

	assert.True(t, r.IsExit("exit"))
	assert.True(t, r.IsExit("ok, stop here"))

	// An exit keyword buried in a real answer is not an exit.
	assert.False(t, r.IsExit("I want to quit smoking and get healthier before the summer"))
}

func TestIsConfirmation(t *testing.T) {
	r := testRules()

	assert.True(t, r.IsConfirmation("OK"))
	assert.True(t, r.IsConfirmation("yes, looks good"))

	// A confirmation keyword plus a request for more is not a pure confirmation.
	assert.False(t, r.IsConfirmation("okay but what do you think?"))
	assert.False(t, r.IsConfirmation("yes although I'm worried I can't do it"))

	// Pure confirmations are short; a paragraph is something else.
	long := "okay so here is the thing, I have been thinking about this a lot and there is more to say"
	assert.False(t, r.IsConfirmation(long))
}

func TestIsConfirmationRejectsNegationsAndEmbeddedWords(t *testing.T) {
	r := testRules()

	// Keywords match whole words only, never substrings of a rejection.
	assert.False(t, r.IsConfirmation("no, that's incorrect"))
	assert.False(t, r.IsConfirmation("this plan is broken"))

	// A negated confirmation word is a rejection.
	assert.False(t, r.IsConfirmation("not correct"))
	assert.False(t, r.IsConfirmation("no, that's wrong"))
	assert.False(t, r.IsConfirmation("this isn't right, don't save it"))

	assert.True(t, r.IsConfirmation("correct"))
	assert.True(t, r.IsConfirmation("yep, go ahead"))
}

func TestThemes(t *testing.T) {
	r := testRules()

	assert.Equal(t, []string{"intrinsic"}, r.Themes("I want to get better at this"))
	assert.Equal(t, []string{"extrinsic"}, r.Themes("it is expected of me"))
	assert.Equal(t, []string{"intrinsic", "extrinsic"}, r.Themes("I want to grow but it is also expected of me"))
	assert.Empty(t, r.Themes("sales numbers"))
}

func TestSatisfiesStep(t *testing.T) {
	r := testRules()

	assert.True(t, r.SatisfiesStep("3,000,000 yen by march", StepWhat))
	assert.False(t, r.SatisfiesStep("3,000,000 yen someday", StepWhat))
	assert.True(t, r.SatisfiesStep("10 calls every morning", StepHow))
	assert.False(t, r.SatisfiesStep("keep trying", StepHow))
	assert.False(t, r.SatisfiesStep("anything at all", StepWhy))
}

func TestFeedbackToneEscalates(t *testing.T) {
	r := testRules()

	first := r.Feedback(PatternAbstract, StepWhat, 1)
	second := r.Feedback(PatternAbstract, StepWhat, 2)
	third := r.Feedback(PatternAbstract, StepWhat, 3)

	assert.Contains(t, first, "Hmm")
	assert.Contains(t, second, "No rush")
	assert.Contains(t, third, "That works too")
	assert.NotEqual(t, first, second)
	assert.NotEqual(t, second, third)
}

func TestRecapShowsPlaceholders(t *testing.T) {
	r := testRules()

	recap := r.Recap(Answers{Why: "growth"})
	assert.Contains(t, recap, "growth")
	assert.Contains(t, recap, "(not decided yet)")
}
