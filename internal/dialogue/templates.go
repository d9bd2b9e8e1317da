package dialogue

import (
	"fmt"
	"strings"
)

// Templates are the fixed response texts. Like Keywords they are part of the
// immutable Rules value and never change after construction.
type Templates struct {
	Intro          string
	QuestionWhy    string
	QuestionWhat   string
	QuestionHow    string
	ConfirmPrompt  string
	Crisis         string
	ExitAck        string
	RestartAck     string
	Completed      string
	SaveFailed     string
	NotRegistered  string
	OrgUnavailable string

	QualityPreamble  string
	RubricWhy        string
	RubricWhat       string
	RubricHow        string
	ObstacleQuestion string
}

func defaultTemplates() Templates {
	return Templates{
		Intro: "Hi! I'm here to help you set this month's goal. We'll go through three quick questions: why it matters, what exactly you'll aim for, and how you'll get there.",
		QuestionWhy: "First, the why: what makes this goal matter to you personally?",
		QuestionWhat: "Next, the what: what exactly will you aim for? A number with a deadline works best, like \"3,000,000 yen in sales this month\".",
		QuestionHow: "Last, the how: what concrete actions will you take, and how often?",
		ConfirmPrompt: "Does this capture it? If so just say OK, or tell me what to change.",
		Crisis: "It sounds like you're carrying a lot right now, and that matters more than any target. Please consider talking to someone you trust or a professional support line. We can come back to goal setting whenever you're ready.",
		ExitAck: "All right, stopping here. Message me again whenever you want to pick this back up.",
		RestartAck: "Starting fresh.",
		Completed: "Your goal is registered. I'll check in with you along the way. Good luck!",
		SaveFailed: "Sorry, I couldn't save your goal just now. Nothing is lost; please send one more message in a moment and we'll finish up.",
		NotRegistered: "Sorry, I couldn't find your account. Please ask your administrator to register you before we start.",
		OrgUnavailable: "Sorry, your organization isn't set up for goal coaching yet. Please contact your administrator.",

		QualityPreamble: "There is no single correct answer here — a couple of things worth a look:",
		RubricWhy: "Your why leans on outside expectations. Is there a part of this goal you personally care about?",
		RubricWhat: "Your target has no number or date yet. How will you know, on the last day, whether you hit it?",
		RubricHow: "Your plan doesn't say how often. What would a normal week of working on this look like?",
		ObstacleQuestion: "What is the most likely thing to get in the way this month, and what's your first move when it does?",
	}
}

// stepQuestion returns the elicitation question for a step.
func (r *Rules) stepQuestion(step Step) string {
	switch step {
	case StepWhy:
		return r.Templates.QuestionWhy
	case StepWhat:
		return r.Templates.QuestionWhat
	case StepHow:
		return r.Templates.QuestionHow
	}
	return r.Templates.ConfirmPrompt
}

// guidance is the per-pattern corrective hint used inside retry feedback.
func (r *Rules) guidance(pattern Pattern, step Step) string {
	switch {
	case pattern == PatternTooShort:
		return "could you say a little more? Even one full sentence helps."
	case pattern == PatternCareer:
		return "a job change is a big topic of its own — for this goal, let's focus on what you want out of your current work."
	case pattern == PatternOtherBlame:
		return "other people are hard to control. What part of this is in your own hands?"
	case pattern == PatternNoGoal:
		return "that's okay — is there anything about this month you'd like to be even a little different?"
	case pattern == PatternPrivateOnly:
		return "sounds fun! For this session though, let's anchor the goal in your work."
	case pattern == PatternAbstract:
		switch step {
		case StepWhat:
			return "can you put a number and a date on it? \"More sales\" is hard to check; \"3,000,000 yen by month end\" isn't."
		case StepHow:
			return "can you name a concrete action and how often? For example \"10 calls every morning\"."
		default:
			return "can you make that more concrete? A specific situation or example works well."
		}
	case pattern.IsHelp():
		return r.helpGuidance(step)
	}
	return "could you try rephrasing that?"
}

func (r *Rules) helpGuidance(step Step) string {
	switch step {
	case StepWhy:
		return "think about a moment at work recently that felt genuinely good, or genuinely frustrating — your why usually hides in one of those."
	case StepWhat:
		return "a good target is a number you can check on the last day of the month: an amount, a count of deals, a number of new customers."
	case StepHow:
		return "break it down to something you could do tomorrow morning: who do you contact, how many times, how often per week?"
	}
	return "tell me in your own words, roughly is fine."
}

// Feedback renders the escalating-tone retry template for a rejected answer.
// Attempt 1 is corrective, attempt 2 gentler, attempt 3 and later accepting.
func (r *Rules) Feedback(pattern Pattern, step Step, attempt int) string {
	g := r.guidance(pattern, step)
	switch {
	case attempt <= 1:
		return fmt.Sprintf("Hmm, %s", g)
	case attempt == 2:
		return fmt.Sprintf("No rush — %s", g)
	default:
		return fmt.Sprintf("That works too. If it helps, %s", g)
	}
}

// Recap renders the known answers with placeholders for the unknown ones.
func (r *Rules) Recap(ans Answers) string {
	line := func(label, v string) string {
		if v == "" {
			v = "(not decided yet)"
		}
		return fmt.Sprintf("- %s: %s", label, v)
	}
	return strings.Join([]string{
		"Here's what we have so far:",
		line("Why", ans.Why),
		line("What", ans.What),
		line("How", ans.How),
	}, "\n")
}

// ConfirmRecap is the recap plus the confirmation prompt.
func (r *Rules) ConfirmRecap(ans Answers) string {
	return r.Recap(ans) + "\n\n" + r.Templates.ConfirmPrompt
}

// Transition renders the message that moves the dialogue to the next step,
// acknowledging any steps the previous answer already covered.
func (r *Rules) Transition(next Step, skipped []Step) string {
	var b strings.Builder
	if len(skipped) > 0 {
		names := make([]string, len(skipped))
		for i, s := range skipped {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "Great — that already covers the %s. ", strings.Join(names, " and the "))
	} else {
		b.WriteString("Got it. ")
	}
	b.WriteString(r.stepQuestion(next))
	return b.String()
}

// PartialRecapTransition is used after a successful extraction: recap what is
// known, then ask the earliest unanswered question.
func (r *Rules) PartialRecapTransition(ans Answers, next Step) string {
	return r.Recap(ans) + "\n\n" + r.stepQuestion(next)
}

// IntroWithWhy is the first message of a fresh session.
func (r *Rules) IntroWithWhy() string {
	return r.Templates.Intro + "\n\n" + r.Templates.QuestionWhy
}
