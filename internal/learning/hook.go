// Package learning feeds per-turn evaluation signals to an external
// personalization sink. The sink is fire-and-forget: a failed delivery is
// logged and forgotten, it never surfaces in the conversation.
package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ryotagoto/mokuhyo/internal/config"
)

// Signal is one evaluation tuple.
type Signal struct {
	UserID      string  `json:"user_id"`
	OrgID       string  `json:"org_id"`
	Step        string  `json:"step"`
	Pattern     string  `json:"pattern"`
	Accepted    bool    `json:"accepted"`
	RetryCount  int     `json:"retry_count"`
	Specificity float64 `json:"specificity"`
}

// Hook accepts signals.
type Hook interface {
	Record(ctx context.Context, sig Signal)
}

// Nop discards every signal; the default when no sink is configured.
type Nop struct{}

func (Nop) Record(context.Context, Signal) {}

// HTTPHook posts signals to the personalization sink.
type HTTPHook struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(cfg config.LearningConfig) (*HTTPHook, error) {
	timeout, err := config.DurationOrDefault(cfg.Timeout, config.DefaultLearningTimeout)
	if err != nil {
		return nil, err
	}
	return &HTTPHook{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTPHook) Record(ctx context.Context, sig Signal) {
	body, err := json.Marshal(sig)
	if err != nil {
		slog.Warn("Learning signal marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/signals", bytes.NewReader(body))
	if err != nil {
		slog.Warn("Learning signal request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Warn("Learning signal delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("Learning sink rejected signal", "status", resp.StatusCode)
	}
}
