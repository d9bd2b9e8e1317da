package dialogue

// Step is a phase of the goal-setting walk-through.
type Step string

const (
	StepWhy       Step = "why"
	StepWhat      Step = "what"
	StepHow       Step = "how"
	StepConfirm   Step = "confirm"
	StepComplete  Step = "complete"
	StepAbandoned Step = "abandoned"
)

// elicitationSteps is the fixed order used to find the earliest unanswered step.
var elicitationSteps = []Step{StepWhy, StepWhat, StepHow}

// Pattern classifies the quality of one user message.
type Pattern string

const (
	PatternOK           Pattern = "ok"
	PatternTooShort     Pattern = "too_short"
	PatternMentalHealth Pattern = "ng_mental_health"
	PatternCareer       Pattern = "ng_career"
	PatternOtherBlame   Pattern = "ng_other_blame"
	PatternNoGoal       Pattern = "ng_no_goal"
	PatternPrivateOnly  Pattern = "ng_private_only"
	PatternAbstract     Pattern = "ng_abstract"

	// Step-qualified bases; Detect appends "_{step}".
	patternHelpQuestion Pattern = "help_question"
	patternHelpConfused Pattern = "help_confused"
)

// HelpQuestion returns the step-qualified help-question pattern.
func HelpQuestion(step Step) Pattern {
	return patternHelpQuestion + "_" + Pattern(step)
}

// HelpConfused returns the step-qualified confusion pattern.
func HelpConfused(step Step) Pattern {
	return patternHelpConfused + "_" + Pattern(step)
}

// IsHelp reports whether p is a help-question or confusion pattern for any step.
func (p Pattern) IsHelp() bool {
	s := string(p)
	return len(s) > len(patternHelpQuestion) &&
		(s[:len(patternHelpQuestion)] == string(patternHelpQuestion) ||
			s[:len(patternHelpConfused)] == string(patternHelpConfused))
}

// Evaluation is the ephemeral analysis record attached to each interaction log entry.
type Evaluation struct {
	Keywords    []string `json:"keywords,omitempty"`
	Specificity float64  `json:"specificity"`
	Issues      []string `json:"issues,omitempty"`
	Length      int      `json:"length"`
	IsQuestion  bool     `json:"is_question"`
	IsConfused  bool     `json:"is_confused"`
	RetryCount  int      `json:"retry_count"`
}

// Answers holds the recorded content of the three elicitation phases.
// Empty string means the step has not been answered yet.
type Answers struct {
	Why  string `json:"why"`
	What string `json:"what"`
	How  string `json:"how"`
}

// Get returns the recorded answer for an elicitation step.
func (a Answers) Get(step Step) string {
	switch step {
	case StepWhy:
		return a.Why
	case StepWhat:
		return a.What
	case StepHow:
		return a.How
	}
	return ""
}

// Set records an answer for an elicitation step.
func (a *Answers) Set(step Step, text string) {
	switch step {
	case StepWhy:
		a.Why = text
	case StepWhat:
		a.What = text
	case StepHow:
		a.How = text
	}
}

// Complete reports whether all three phases are answered.
func (a Answers) Complete() bool {
	return a.Why != "" && a.What != "" && a.How != ""
}

// NextUnanswered returns the earliest unanswered step in the fixed
// why -> what -> how order, or StepConfirm when all are answered.
func (a Answers) NextUnanswered() Step {
	for _, s := range elicitationSteps {
		if a.Get(s) == "" {
			return s
		}
	}
	return StepConfirm
}

// Context carries the per-turn inputs of the Pattern Detector beyond the message.
type Context struct {
	RetryCount int
	Answers    Answers
}

// TurnRequest is the input of the single exposed process-turn operation.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	AccountID      string `json:"account_id"`
	Text           string `json:"text"`
}

// TurnResult is the output of the process-turn operation.
type TurnResult struct {
	Success   bool    `json:"success"`
	Response  string  `json:"response"`
	SessionID string  `json:"session_id,omitempty"`
	Step      Step    `json:"step,omitempty"`
	Pattern   Pattern `json:"pattern,omitempty"`
}
