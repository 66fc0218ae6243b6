package guard

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDeadlineBoundsContext(t *testing.T) {
	ctx, cancel := WithDeadline(context.Background(), time.Minute)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}

func TestWithDeadlineNeverExtendsParent(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()
	parentDeadline, _ := parent.Deadline()

	// A nested call asking for a longer budget keeps the parent's.
	ctx, cancel := WithDeadline(parent, time.Minute)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, parentDeadline, deadline)
}

func TestWithDeadlineZeroMeansUnbounded(t *testing.T) {
	ctx, cancel := WithDeadline(context.Background(), 0)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestIsDeadline(t *testing.T) {
	assert.True(t, IsDeadline(context.DeadlineExceeded))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	assert.True(t, IsDeadline(ctx.Err()))

	assert.False(t, IsDeadline(context.Canceled))
	assert.False(t, IsDeadline(stderrors.New("other")))
	assert.False(t, IsDeadline(nil))
}
