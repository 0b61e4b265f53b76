package background

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 2, 10)

	for i := int64(1); i <= 5; i++ {
		require.True(t, d.Enqueue(PostCreated(i, 1)))
	}
	d.Stop()

	assert.Len(t, pub.events, 5)
	assert.True(t, pub.closed)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, 1, 1)

	// The first event may be picked up by the worker, which then blocks; at most one
	// more fits in the buffer, so within three attempts one must be dropped.
	results := []bool{
		d.Enqueue(PostCreated(1, 1)),
		d.Enqueue(PostCreated(2, 1)),
		d.Enqueue(PostCreated(3, 1)),
	}
	assert.Contains(t, results, false)

	close(pub.block)
	d.Stop()
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 1, 1)
	d.Stop()
	d.Stop()

	assert.False(t, d.Enqueue(CommentCreated(1, 2, 3)))
	assert.Empty(t, pub.events)
}

func TestEvent_JSON(t *testing.T) {
	e := CommentCreated(7, 3, 2)
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(7), decoded["comment_id"])
	assert.Equal(t, float64(3), decoded["post_id"])
	assert.NotContains(t, decoded, "Subject")
	assert.Equal(t, SubjectCommentCreated, e.Subject)
}
