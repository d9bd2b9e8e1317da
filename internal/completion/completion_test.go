package completion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/config"
	"github.com/ryotagoto/mokuhyo/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderSelection(t *testing.T) {
	client, err := New(config.CompletionConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	client, err = New(config.CompletionConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.Name())

	_, err = New(config.CompletionConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

type blockingClient struct{}

func (blockingClient) Name() string { return "blocking" }

func (blockingClient) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTimeoutClientBoundsCalls(t *testing.T) {
	c := &timeoutClient{inner: blockingClient{}, timeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, errors.ErrTransient)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type failingClient struct{ err error }

func (failingClient) Name() string { return "failing" }

func (f failingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", f.err
}

func TestTimeoutClientMapsProviderErrors(t *testing.T) {
	c := &timeoutClient{inner: failingClient{err: fmt.Errorf("429: rate limit exceeded")}, timeout: time.Second}

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTransient)
	assert.Equal(t, "ErrTransient", errors.Category(err))
	assert.True(t, errors.IsRetryable(err))

	c = &timeoutClient{inner: failingClient{err: fmt.Errorf("400: bad request")}, timeout: time.Second}
	_, err = c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.False(t, errors.IsRetryable(err))
}
