package dialogue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/directory"
	"github.com/ryotagoto/mokuhyo/internal/errors"
	"github.com/ryotagoto/mokuhyo/internal/goal"
	"github.com/ryotagoto/mokuhyo/internal/learning"
	"github.com/ryotagoto/mokuhyo/internal/logger"
	"github.com/ryotagoto/mokuhyo/internal/session"

	"github.com/oklog/ulid/v2"
)

// Orchestrator composes the detector, scorer, extractor and quality check
// into the turn-processing state machine. One instance serves all
// conversations; per-turn state lives in the session store.
type Orchestrator struct {
	rules     *Rules
	store     *session.Store
	registrar *goal.Registrar
	directory directory.Client
	extractor *Extractor
	hook      learning.Hook
}

func NewOrchestrator(rules *Rules, store *session.Store, registrar *goal.Registrar, dir directory.Client, extractor *Extractor, hook learning.Hook) *Orchestrator {
	if hook == nil {
		hook = learning.Nop{}
	}
	return &Orchestrator{
		rules:     rules,
		store:     store,
		registrar: registrar,
		directory: dir,
		extractor: extractor,
		hook:      hook,
	}
}

// ProcessTurn is the single operation exposed to host integrations.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	ctx = logger.WithTurnID(ctx, ulid.Make().String())
	slog.DebugContext(ctx, "Turn received",
		"conversation", req.ConversationID,
		"len", runeLen(req.Text))

	user, err := o.directory.Lookup(ctx, req.AccountID)
	if err != nil {
		switch {
		case errors.IsCategory(err, errors.ErrUserNotRegistered):
			return &TurnResult{Success: false, Response: o.rules.Templates.NotRegistered}, nil
		case errors.IsCategory(err, errors.ErrOrganizationNotConfigured):
			return &TurnResult{Success: false, Response: o.rules.Templates.OrgUnavailable}, nil
		default:
			return nil, errors.Wrap(err, "directory lookup")
		}
	}

	identity := session.Identity{
		OrgID:          user.OrgID,
		ConversationID: req.ConversationID,
		UserID:         user.UserID,
	}

	sess, err := o.store.Active(ctx, identity)
	if err != nil {
		// Best-effort continuation: treat an unreadable store like an
		// absent session rather than crashing the turn.
		slog.ErrorContext(ctx, "Session read failed", "identity", identity.Key(), "category", errors.Category(err), "error", err)
		sess = nil
	}

	if sess == nil {
		return o.startSession(ctx, identity, req.Text)
	}

	// Global overrides run before any step logic.
	switch {
	case o.rules.IsExit(req.Text):
		return o.abandonSession(ctx, sess, req.Text, "", o.rules.Templates.ExitAck)

	case o.rules.IsRestart(req.Text):
		if err := o.store.Delete(ctx, identity); err != nil {
			slog.ErrorContext(ctx, "Session delete failed", "identity", identity.Key(), "category", errors.Category(err), "error", err)
		}
		result, err := o.startSession(ctx, identity, req.Text)
		if err != nil {
			return nil, err
		}
		result.Response = o.rules.Templates.RestartAck + "\n\n" + result.Response
		return result, nil

	case o.rules.IsFrustration(req.Text):
		response := o.rules.Recap(o.answersOf(sess))
		o.logTurn(ctx, sess, Step(sess.Step), req.Text, response, "", nil, session.ResultRetry, 0)
		o.persist(ctx, sess)
		return o.result(sess, response, ""), nil
	}

	switch Step(sess.Step) {
	case StepWhy, StepWhat, StepHow:
		return o.processElicitation(ctx, sess, req.Text)
	case StepConfirm:
		return o.processConfirm(ctx, sess, req.Text)
	default:
		// A terminal record slipped past Active; treat as no session.
		return o.startSession(ctx, identity, req.Text)
	}
}

// startSession creates a fresh session at the why step and introduces the flow.
func (o *Orchestrator) startSession(ctx context.Context, identity session.Identity, text string) (*TurnResult, error) {
	now := time.Now()
	sess := &session.Session{
		ID:        ulid.Make().String(),
		Identity:  identity,
		Step:      string(StepWhy),
		CreatedAt: now,
	}
	o.persist(ctx, sess)

	response := o.rules.IntroWithWhy()
	o.logTurn(ctx, sess, StepWhy, text, response, "", nil, session.ResultAccepted, 0)
	return o.result(sess, response, ""), nil
}

func (o *Orchestrator) processElicitation(ctx context.Context, sess *session.Session, text string) (*TurnResult, error) {
	step := Step(sess.Step)

	if runeLen(text) >= o.rules.Thresholds.LongResponse && o.extractor != nil {
		if result, handled := o.tryExtraction(ctx, sess, text); handled {
			return result, nil
		}
		// Extraction failure is invisible to the user.
	}

	attempts := o.attempts(ctx, sess, step)
	pattern, eval := o.rules.Detect(text, step, Context{RetryCount: attempts, Answers: o.answersOf(sess)})

	if pattern == PatternMentalHealth {
		o.signal(ctx, sess, step, pattern, false, attempts, eval.Specificity)
		return o.abandonSession(ctx, sess, text, pattern, o.rules.Templates.Crisis)
	}

	accepted := pattern == PatternOK
	if !accepted && attempts >= o.rules.RetryCeiling {
		// Forced progression: the dialogue must never loop indefinitely.
		slog.InfoContext(ctx, "Retry ceiling reached, accepting answer", "session", sess.ID, "step", step, "pattern", pattern)
		accepted = true
	}

	if !accepted {
		attempt := attempts + 1
		response := o.rules.Feedback(pattern, step, attempt)
		o.logTurn(ctx, sess, step, text, response, pattern, &eval, session.ResultRetry, attempt)
		o.persist(ctx, sess) // slides the TTL
		o.signal(ctx, sess, step, pattern, false, attempts, eval.Specificity)
		return o.result(sess, response, pattern), nil
	}

	// Record the answer, then infer any later fields this message already
	// satisfies so the user is not asked for what they just said.
	answers := o.answersOf(sess)
	answers.Set(step, text)
	var skipped []Step
	for _, s := range elicitationSteps {
		if answers.Get(s) == "" && o.rules.SatisfiesStep(text, s) {
			answers.Set(s, text)
			skipped = append(skipped, s)
		}
	}
	o.applyAnswers(sess, answers)

	o.signal(ctx, sess, step, pattern, true, attempts, eval.Specificity)

	if step == StepHow {
		// Direct walk-through: HOW accepted face to face registers the
		// goal immediately, no confirmation gate.
		return o.finalize(ctx, sess, text, pattern, &eval)
	}

	next := answers.NextUnanswered()
	var response string
	if next == StepConfirm {
		sess.Step = string(StepConfirm)
		response = o.rules.ConfirmRecap(answers)
	} else {
		sess.Step = string(next)
		response = o.rules.Transition(next, skipped)
	}
	o.logTurn(ctx, sess, step, text, response, pattern, &eval, session.ResultAccepted, attempts+1)
	o.persist(ctx, sess)
	return o.result(sess, response, pattern), nil
}

// tryExtraction runs the long-response path. The bool reports whether the
// turn was fully handled; false means fall through to the heuristic path.
func (o *Orchestrator) tryExtraction(ctx context.Context, sess *session.Session, text string) (*TurnResult, bool) {
	step := Step(sess.Step)
	ext, err := o.extractor.Extract(ctx, text, o.answersOf(sess))
	if err != nil || ext.Empty() {
		return nil, false
	}

	// Gap-fill only: extraction never overwrites a recorded answer here.
	answers := o.answersOf(sess)
	if answers.Why == "" && ext.Why != "" {
		answers.Why = ext.Why
	}
	if answers.What == "" && ext.What != "" {
		answers.What = ext.What
	}
	if answers.How == "" && ext.How != "" {
		answers.How = ext.How
	}
	o.applyAnswers(sess, answers)

	var response string
	if answers.Complete() {
		sess.Step = string(StepConfirm)
		response = o.rules.ConfirmRecap(answers)
	} else {
		next := answers.NextUnanswered()
		sess.Step = string(next)
		response = o.rules.PartialRecapTransition(answers, next)
	}
	o.logTurn(ctx, sess, step, text, response, PatternOK, nil, session.ResultAccepted, 0)
	o.persist(ctx, sess)
	return o.result(sess, response, PatternOK), true
}

func (o *Orchestrator) processConfirm(ctx context.Context, sess *session.Session, text string) (*TurnResult, error) {
	answers := o.answersOf(sess)

	switch {
	case o.rules.IsConfirmation(text):
		return o.finalize(ctx, sess, text, PatternOK, nil)

	case o.rules.IsFeedbackRequest(text) || o.rules.IsDoubt(text):
		response := o.rules.QualityCheckMessage(answers)
		o.logTurn(ctx, sess, StepConfirm, text, response, "", nil, session.ResultRetry, 0)
		o.persist(ctx, sess)
		return o.result(sess, response, ""), nil
	}

	if runeLen(text) >= o.rules.Thresholds.LongResponse && o.extractor != nil {
		if ext, err := o.extractor.Extract(ctx, text, answers); err == nil && !ext.Empty() {
			// At confirm, extraction revises: the user asked for a change.
			if ext.Why != "" {
				answers.Why = ext.Why
			}
			if ext.What != "" {
				answers.What = ext.What
			}
			if ext.How != "" {
				answers.How = ext.How
			}
			o.applyAnswers(sess, answers)
			response := o.rules.ConfirmRecap(answers)
			o.logTurn(ctx, sess, StepConfirm, text, response, PatternOK, nil, session.ResultAccepted, 0)
			o.persist(ctx, sess)
			return o.result(sess, response, PatternOK), nil
		}
	}

	// Anything else: quality check instead of the recap, so the same
	// summary is never printed twice in a row.
	response := o.rules.QualityCheckMessage(answers)
	o.logTurn(ctx, sess, StepConfirm, text, response, "", nil, session.ResultRetry, 0)
	o.persist(ctx, sess)
	return o.result(sess, response, ""), nil
}

// finalize registers the goal and completes the session. Registration comes
// before the completion write: a crash in between can leave a stale session
// but never a lost goal.
func (o *Orchestrator) finalize(ctx context.Context, sess *session.Session, text string, pattern Pattern, eval *Evaluation) (*TurnResult, error) {
	step := Step(sess.Step)
	if sess.GoalID == "" {
		goalID := ulid.Make().String()
		_, err := o.registrar.Register(ctx, goalID,
			sess.Identity.OrgID, sess.Identity.UserID,
			sess.WhyAnswer, sess.WhatAnswer, sess.HowAnswer, time.Now())
		if err != nil {
			slog.ErrorContext(ctx, "Goal registration failed", "session", sess.ID, "category", errors.Category(err), "error", err)
			response := o.rules.Templates.SaveFailed
			o.logTurn(ctx, sess, step, text, response, pattern, eval, session.ResultRetry, 0)
			o.persist(ctx, sess)
			return o.result(sess, response, pattern), nil
		}
		sess.GoalID = goalID
	}

	sess.Step = string(StepComplete)
	response := o.rules.Templates.Completed
	o.logTurn(ctx, sess, step, text, response, pattern, eval, session.ResultAccepted, 0)
	o.persist(ctx, sess)
	return o.result(sess, response, pattern), nil
}

func (o *Orchestrator) abandonSession(ctx context.Context, sess *session.Session, text string, pattern Pattern, response string) (*TurnResult, error) {
	step := Step(sess.Step)
	sess.Step = string(StepAbandoned)
	o.logTurn(ctx, sess, step, text, response, pattern, nil, session.ResultAbandoned, 0)
	o.persist(ctx, sess)
	return o.result(sess, response, pattern), nil
}

// --- helpers ---

func (o *Orchestrator) answersOf(sess *session.Session) Answers {
	return Answers{Why: sess.WhyAnswer, What: sess.WhatAnswer, How: sess.HowAnswer}
}

func (o *Orchestrator) applyAnswers(sess *session.Session, answers Answers) {
	sess.WhyAnswer = answers.Why
	sess.WhatAnswer = answers.What
	sess.HowAnswer = answers.How
	if answers.Why != "" {
		sess.DetectedThemes = o.rules.Themes(answers.Why)
	}
}

func (o *Orchestrator) attempts(ctx context.Context, sess *session.Session, step Step) int {
	count, err := o.store.AttemptCount(ctx, sess.ID, string(step))
	if err != nil {
		slog.ErrorContext(ctx, "Attempt count failed", "session", sess.ID, "category", errors.Category(err), "error", err)
		return 0
	}
	return count
}

func (o *Orchestrator) persist(ctx context.Context, sess *session.Session) {
	if err := o.store.Upsert(ctx, sess); err != nil {
		slog.ErrorContext(ctx, "Session write failed", "session", sess.ID, "category", errors.Category(err), "error", err)
	}
}

// logTurn appends one interaction record. step is the step the message was
// evaluated at, captured before any transition mutates the session.
func (o *Orchestrator) logTurn(ctx context.Context, sess *session.Session, step Step, text, response string, pattern Pattern, eval *Evaluation, result string, attempt int) {
	entry := session.LogEntry{
		ID:          ulid.Make().String(),
		SessionID:   sess.ID,
		Identity:    sess.Identity,
		Step:        string(step),
		StepAttempt: attempt,
		UserMessage: text,
		Response:    response,
		Pattern:     string(pattern),
		Result:      result,
		Timestamp:   time.Now(),
	}
	if result == session.ResultRetry {
		entry.FeedbackGiven = response
	}
	if eval != nil {
		if data, err := json.Marshal(eval); err == nil {
			entry.Evaluation = data
		}
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "Interaction log append failed", "session", sess.ID, "category", errors.Category(err), "error", err)
	}
}

// signal fires the personalization hook without blocking or failing the turn.
func (o *Orchestrator) signal(ctx context.Context, sess *session.Session, step Step, pattern Pattern, accepted bool, retries int, specificity float64) {
	sig := learning.Signal{
		UserID:      sess.Identity.UserID,
		OrgID:       sess.Identity.OrgID,
		Step:        string(step),
		Pattern:     string(pattern),
		Accepted:    accepted,
		RetryCount:  retries,
		Specificity: specificity,
	}
	go o.hook.Record(context.WithoutCancel(ctx), sig)
}

func (o *Orchestrator) result(sess *session.Session, response string, pattern Pattern) *TurnResult {
	return &TurnResult{
		Success:   true,
		Response:  response,
		SessionID: sess.ID,
		Step:      Step(sess.Step),
		Pattern:   pattern,
	}
}
