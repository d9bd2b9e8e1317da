package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityCheckSolidAnswersGetObstacleQuestion(t *testing.T) {
	r := testRules()

	ans := Answers{
		Why:  "I want to grow into bigger accounts",
		What: "3,000,000 yen in new sales by month end",
		How:  "10 calls every morning",
	}

	questions := r.QualityCheck(ans)
	require.Len(t, questions, 1)
	assert.Equal(t, r.Templates.ObstacleQuestion, questions[0])
}

func TestQualityCheckCapsAtTwoQuestions(t *testing.T) {
	r := testRules()

	// All three rubrics flag, only the first two fit.
	ans := Answers{
		Why:  "I was told to pick something by my manager",
		What: "more sales somehow",
		How:  "work harder",
	}

	questions := r.QualityCheck(ans)
	require.Len(t, questions, maxRubricQuestions)
	assert.Equal(t, r.Templates.RubricWhy, questions[0])
	assert.Equal(t, r.Templates.RubricWhat, questions[1])
	assert.NotContains(t, questions, r.Templates.ObstacleQuestion)
}

func TestQualityCheckShortWhyFlags(t *testing.T) {
	r := testRules()

	ans := Answers{
		Why:  "money",
		What: "5 new contracts by friday",
		How:  "3 visits per week",
	}

	questions := r.QualityCheck(ans)
	require.Len(t, questions, 2)
	assert.Equal(t, r.Templates.RubricWhy, questions[0])
	assert.Equal(t, r.Templates.ObstacleQuestion, questions[1])
}

func TestQualityCheckMessageHasPreamble(t *testing.T) {
	r := testRules()

	msg := r.QualityCheckMessage(Answers{})
	assert.True(t, strings.HasPrefix(msg, r.Templates.QualityPreamble))
}
