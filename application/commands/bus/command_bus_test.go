package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommand struct {
	invalid bool
}

func (c *stubCommand) Validate() error {
	if c.invalid {
		return errors.New("missing canvas id")
	}
	return nil
}

type otherCommand struct{}

func (c *otherCommand) Validate() error { return nil }

func TestRegisterAndSend(t *testing.T) {
	b := NewCommandBus()

	var handled Command
	err := b.Register(&stubCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		handled = cmd
		return nil
	}))
	require.NoError(t, err)

	cmd := &stubCommand{}
	require.NoError(t, b.Send(context.Background(), cmd))
	assert.Same(t, cmd, handled)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	b := NewCommandBus()
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error { return nil })

	require.NoError(t, b.Register(&stubCommand{}, handler))
	err := b.Register(&stubCommand{}, handler)
	assert.Error(t, err)
}

func TestSendValidatesBeforeDispatch(t *testing.T) {
	b := NewCommandBus()

	called := false
	require.NoError(t, b.Register(&stubCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		called = true
		return nil
	})))

	err := b.Send(context.Background(), &stubCommand{invalid: true})
	require.Error(t, err)
	assert.False(t, called, "invalid commands must never reach the handler")
}

func TestSendUnregisteredCommand(t *testing.T) {
	b := NewCommandBus()

	err := b.Send(context.Background(), &otherCommand{})
	assert.ErrorContains(t, err, "no handler registered")
}

func TestSendPropagatesHandlerError(t *testing.T) {
	b := NewCommandBus()
	want := errors.New("canvas not found")

	require.NoError(t, b.Register(&stubCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return want
	})))

	err := b.Send(context.Background(), &stubCommand{})
	assert.ErrorIs(t, err, want)
}

func TestPipelineOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	handler := NewPipeline(tag("outer"), tag("inner")).Wrap(
		CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			order = append(order, "handler")
			return nil
		}))

	require.NoError(t, handler.Handle(context.Background(), &stubCommand{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
