// Package gateway delivers generated responses to the originating
// conversation. The dialogue engine treats it as a pure sink.
package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ryotagoto/mokuhyo/internal/errors"
)

// Gateway sends response text to a conversation on one channel.
type Gateway interface {
	Name() string
	Send(ctx context.Context, conversationID, text string) error
}

// Registry routes sends to the gateway registered for a channel source.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(g Gateway) error {
	if g == nil || g.Name() == "" {
		return errors.InvalidInput("gateway must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gateways[g.Name()]; exists {
		return errors.ErrConflict
	}
	r.gateways[g.Name()] = g
	slog.Info("Gateway registered", "name", g.Name())
	return nil
}

func (r *Registry) Send(ctx context.Context, source, conversationID, text string) error {
	r.mu.RLock()
	g, ok := r.gateways[source]
	r.mu.RUnlock()
	if !ok {
		return errors.NotFound("no gateway for source: " + source)
	}

	if err := g.Send(ctx, conversationID, text); err != nil {
		return errors.Wrap(err, "gateway send")
	}
	slog.Debug("Response delivered", "source", source, "conversation", conversationID, "len", len(text))
	return nil
}
