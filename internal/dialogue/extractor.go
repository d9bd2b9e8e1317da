package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ryotagoto/mokuhyo/internal/completion"
	"github.com/ryotagoto/mokuhyo/internal/errors"
)

// Extractor pulls partial why/what/how content out of long free-form
// messages via the text-completion service. It is strictly best-effort:
// every failure maps to ErrExtractionUnavailable and the caller falls back
// to the heuristic path without telling the user.
type Extractor struct {
	client completion.Client
}

func NewExtractor(client completion.Client) *Extractor {
	return &Extractor{client: client}
}

// Extraction is the structured result. Empty fields mean "nothing found",
// never "erase the recorded answer".
type Extraction struct {
	Why  string `json:"why"`
	What string `json:"what"`
	How  string `json:"how"`
}

// Empty reports whether nothing could be extracted.
func (e Extraction) Empty() bool {
	return e.Why == "" && e.What == "" && e.How == ""
}

const extractPrompt = `You are helping structure a goal-setting conversation.
The user wrote the message below. Already recorded answers are given; leave a
field empty rather than inventing content.

Recorded so far:
why: %s
what: %s
how: %s

User message:
%s

Reply with a single JSON object, nothing else:
{"why": "...", "what": "...", "how": "..."}
- why: the personal motivation behind the goal, if the message states one
- what: the measurable target (ideally a number and a deadline), if stated
- how: the concrete action plan or routine, if stated`

// Extract asks the completion service for a {why, what, how} object.
func (x *Extractor) Extract(ctx context.Context, message string, known Answers) (*Extraction, error) {
	if x == nil || x.client == nil {
		return nil, errors.ErrExtractionUnavailable
	}

	prompt := fmt.Sprintf(extractPrompt,
		orPlaceholder(known.Why), orPlaceholder(known.What), orPlaceholder(known.How), message)

	reply, err := x.client.Complete(ctx, prompt)
	if err != nil {
		slog.DebugContext(ctx, "Extraction call failed",
			"provider", x.client.Name(),
			"category", errors.Category(err),
			"retryable", errors.IsRetryable(err),
			"error", err)
		return nil, fmt.Errorf("completion call: %w", errors.ErrExtractionUnavailable)
	}

	extraction, ok := parseExtraction(reply)
	if !ok {
		slog.DebugContext(ctx, "Extraction reply unparsable", "provider", x.client.Name(), "reply_len", len(reply))
		return nil, fmt.Errorf("unparsable reply: %w", errors.ErrExtractionUnavailable)
	}
	return extraction, nil
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// parseExtraction tolerates prose wrapped around the payload: it strips code
// fences, then takes the first balanced JSON object found in the reply.
func parseExtraction(raw string) (*Extraction, bool) {
	normalized := cleanModelJSON(raw)

	if e, ok := unmarshalExtraction(normalized); ok {
		return e, true
	}
	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if e, ok := unmarshalExtraction(extracted); ok {
			return e, true
		}
	}
	return nil, false
}

func unmarshalExtraction(raw string) (*Extraction, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var e Extraction
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false
	}
	e.Why = strings.TrimSpace(e.Why)
	e.What = strings.TrimSpace(e.What)
	e.How = strings.TrimSpace(e.How)
	return &e, true
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
