package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreWeights(t *testing.T) {
	r := testRules()

	assert.InDelta(t, 0.0, r.Score("hi", StepWhy), 1e-9)

	// Length tier only.
	assert.InDelta(t, 0.1, r.Score("growing here", StepHow), 1e-9)

	// Short tier, numeric, deadline and a what keyword.
	score := r.Score("3,000,000 yen in sales by month end", StepWhat)
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestScoreIsCapped(t *testing.T) {
	r := testRules()

	msg := "I will make 10 prospecting calls every morning and send 5 proposals per week until the end of the month"
	score := r.Score(msg, StepHow)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreDeterministic(t *testing.T) {
	r := testRules()
	msg := "visit 8 clients per week until march"

	assert.Equal(t, r.Score(msg, StepHow), r.Score(msg, StepHow))
}
