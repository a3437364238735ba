package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeMarkAbsentees, MarkAbsenteesJob{ClassID: "c-1", MarkedBy: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, TypeMarkAbsentees, msg.Type)

	var job MarkAbsenteesJob
	require.NoError(t, msg.Decode(&job))
	assert.Equal(t, MarkAbsenteesJob{ClassID: "c-1", MarkedBy: "staff-1"}, job)

	assert.Error(t, Message{Type: "x", Body: []byte("{")}.Decode(&job))
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewInMemory(4)
	for _, id := range []string{"a", "b"} {
		msg, err := NewMessage(TypeMarkAbsentees, MarkAbsenteesJob{ClassID: id})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	var got []string
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			var job MarkAbsenteesJob
			require.NoError(t, msg.Decode(&job))
			got = append(got, job.ClassID)
		case <-ctx.Done():
			t.Fatal("timed out waiting for messages")
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "y"}), context.Canceled)
}
