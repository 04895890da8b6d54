package perception

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	reply string
	err   error
	calls int
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestFallbackClient_FirstBackendWins(t *testing.T) {
	primary := &scriptedClient{reply: "primary"}
	secondary := &scriptedClient{reply: "secondary"}

	fc := NewFallbackClient(nil,
		Backend{Name: "llama-70b", Client: primary},
		Backend{Name: "llama-8b", Client: secondary},
	)

	reply, err := fc.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "primary", reply)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls, "secondary backend should not be tried")
}

func TestFallbackClient_FallsThroughOnError(t *testing.T) {
	primary := &scriptedClient{err: errors.New("rate limit exceeded (429)")}
	secondary := &scriptedClient{reply: "secondary"}

	fc := NewFallbackClient(nil,
		Backend{Name: "llama-70b", Client: primary},
		Backend{Name: "llama-8b", Client: secondary},
	)

	reply, err := fc.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "secondary", reply)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackClient_Exhausted(t *testing.T) {
	a := &scriptedClient{err: errors.New("boom")}
	b := &scriptedClient{err: errors.New("also boom")}

	fc := NewFallbackClient(nil,
		Backend{Name: "a", Client: a},
		Backend{Name: "b", Client: b},
	)

	_, err := fc.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFallbackClient_NoBackends(t *testing.T) {
	fc := NewFallbackClient(nil)
	_, err := fc.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFallbackClient_Backends(t *testing.T) {
	fc := NewFallbackClient(nil,
		Backend{Name: "llama-3.3-70b-versatile", Client: &scriptedClient{}},
		Backend{Name: "gemini-2.0-flash", Client: &scriptedClient{}},
	)
	assert.Equal(t, []string{"llama-3.3-70b-versatile", "gemini-2.0-flash"}, fc.Backends())
}
