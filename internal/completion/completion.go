// Package completion is the boundary to the external text-completion service.
// The dialogue engine only ever needs one operation: prompt in, free-form
// text out. Provider selection is a config concern.
package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/completion/providers/anthropic"
	"github.com/ryotagoto/mokuhyo/internal/completion/providers/openai"
	"github.com/ryotagoto/mokuhyo/internal/config"
	"github.com/ryotagoto/mokuhyo/internal/errors"
)

// Client produces a free-form completion for a prompt.
type Client interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the configured provider. The request timeout is applied by the
// returned client so callers get a bounded call without managing deadlines.
func New(cfg config.CompletionConfig) (Client, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultCompletionRequestTimeout)
	if err != nil {
		return nil, err
	}

	var inner Client
	switch cfg.Provider {
	case "", "openai":
		inner = openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "anthropic":
		inner = anthropic.New(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}

	return &timeoutClient{inner: inner, timeout: timeout}, nil
}

type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

func (c *timeoutClient) Name() string { return c.inner.Name() }

// Complete bounds the call and maps provider errors onto the error taxonomy,
// so callers can log a category and test for retryability.
func (c *timeoutClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	reply, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return "", errors.MapError(err)
	}
	return reply, nil
}
