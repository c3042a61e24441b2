package decision

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConsole replays a fixed sequence of operator inputs
type scriptedConsole struct {
	inputs []string
	pos    int
}

func (c *scriptedConsole) Prompt(label string) (string, error) {
	if c.pos >= len(c.inputs) {
		return "", fmt.Errorf("console script exhausted at prompt %q", label)
	}
	in := c.inputs[c.pos]
	c.pos++
	return in, nil
}

type sendRecorder struct {
	texts  []string
	nextID int64
	err    error
}

func (r *sendRecorder) send(ctx context.Context, text string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.texts = append(r.texts, text)
	r.nextID++
	return r.nextID, nil
}

func TestInteractiveSendVariants(t *testing.T) {
	for _, input := range []string{"", "s", "send", " S "} {
		t.Run(fmt.Sprintf("input %q", input), func(t *testing.T) {
			rec := &sendRecorder{}
			loop := NewLoop(&scriptedConsole{inputs: []string{input}}, false)

			res, err := loop.Resolve(context.Background(), "hello", rec.send)
			require.NoError(t, err)

			assert.Equal(t, Sent, res.Outcome)
			assert.Equal(t, "hello", res.FinalText)
			assert.Equal(t, int64(1), res.SentID)
			assert.Equal(t, []string{"hello"}, rec.texts)
		})
	}
}

func TestInteractiveEditThenSend(t *testing.T) {
	rec := &sendRecorder{}
	loop := NewLoop(&scriptedConsole{inputs: []string{"e", "new text", "s"}}, false)

	res, err := loop.Resolve(context.Background(), "old text", rec.send)
	require.NoError(t, err)

	assert.Equal(t, Sent, res.Outcome)
	assert.Equal(t, "new text", res.FinalText)
	assert.Equal(t, []string{"new text"}, rec.texts)
}

func TestInteractiveEditEmptyKeepsCandidate(t *testing.T) {
	rec := &sendRecorder{}
	loop := NewLoop(&scriptedConsole{inputs: []string{"e", "   ", ""}}, false)

	res, err := loop.Resolve(context.Background(), "original", rec.send)
	require.NoError(t, err)

	assert.Equal(t, "original", res.FinalText)
}

func TestInteractiveIgnore(t *testing.T) {
	rec := &sendRecorder{}
	loop := NewLoop(&scriptedConsole{inputs: []string{"i"}}, false)

	res, err := loop.Resolve(context.Background(), "hello", rec.send)
	require.NoError(t, err)

	assert.Equal(t, Discarded, res.Outcome)
	assert.Empty(t, rec.texts)
}

func TestInteractiveUnrecognizedInputReprompts(t *testing.T) {
	rec := &sendRecorder{}
	loop := NewLoop(&scriptedConsole{inputs: []string{"x", "what", "i"}}, false)

	res, err := loop.Resolve(context.Background(), "hello", rec.send)
	require.NoError(t, err)
	assert.Equal(t, Discarded, res.Outcome)
}

func TestAutomaticSendsWithoutPrompt(t *testing.T) {
	rec := &sendRecorder{}
	loop := NewLoop(nil, true) // a nil console must never be consulted

	res, err := loop.Resolve(context.Background(), "hi there", rec.send)
	require.NoError(t, err)

	assert.Equal(t, Sent, res.Outcome)
	assert.Equal(t, []string{"hi there"}, rec.texts)
}

func TestSendFailurePropagates(t *testing.T) {
	rec := &sendRecorder{err: fmt.Errorf("transport down")}
	loop := NewLoop(&scriptedConsole{inputs: []string{"s"}}, false)

	_, err := loop.Resolve(context.Background(), "hello", rec.send)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport down")
}
