package dialogue

import (
	"context"
	"fmt"
	"testing"

	"github.com/ryotagoto/mokuhyo/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletion struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompletion) Name() string { return "fake" }

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestExtractPlainJSON(t *testing.T) {
	client := &fakeCompletion{reply: `{"why": "growth", "what": "3,000,000 yen", "how": "10 calls daily"}`}
	x := NewExtractor(client)

	ext, err := x.Extract(context.Background(), "long message", Answers{})
	require.NoError(t, err)
	assert.Equal(t, "growth", ext.Why)
	assert.Equal(t, "3,000,000 yen", ext.What)
	assert.Equal(t, "10 calls daily", ext.How)
	assert.False(t, ext.Empty())
}

func TestExtractToleratesProseAndFences(t *testing.T) {
	client := &fakeCompletion{reply: "Sure, here is the breakdown:\n```json\n{\"why\": \"be proud of my work\", \"what\": \"\", \"how\": \"\"}\n```\nLet me know if you need anything else."}
	x := NewExtractor(client)

	ext, err := x.Extract(context.Background(), "long message", Answers{})
	require.NoError(t, err)
	assert.Equal(t, "be proud of my work", ext.Why)
	assert.Empty(t, ext.What)
}

func TestExtractCallFailure(t *testing.T) {
	client := &fakeCompletion{err: fmt.Errorf("boom")}
	x := NewExtractor(client)

	_, err := x.Extract(context.Background(), "long message", Answers{})
	assert.ErrorIs(t, err, errors.ErrExtractionUnavailable)
}

func TestExtractUnparsableReply(t *testing.T) {
	client := &fakeCompletion{reply: "I could not find anything useful in that."}
	x := NewExtractor(client)

	_, err := x.Extract(context.Background(), "long message", Answers{})
	assert.ErrorIs(t, err, errors.ErrExtractionUnavailable)
}

func TestExtractNilExtractor(t *testing.T) {
	var x *Extractor
	_, err := x.Extract(context.Background(), "msg", Answers{})
	assert.ErrorIs(t, err, errors.ErrExtractionUnavailable)
}

func TestExtractionEmpty(t *testing.T) {
	assert.True(t, Extraction{}.Empty())
	assert.False(t, Extraction{How: "x"}.Empty())
}
