package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	revisions []int64
	err       error
}

func (f *fakePublisher) PublishStateChanged(_ context.Context, revision int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revisions = append(f.revisions, revision)
	return nil
}

func (f *fakePublisher) published() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.revisions...)
}

func TestCoordinatorCoalescesChanges(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCoordinator(pub, CoordinatorConfig{
		Debounce:       20 * time.Millisecond,
		ResyncInterval: 1 * time.Hour,
	})

	c.NotifyChanged(1)
	c.NotifyChanged(2)
	c.NotifyChanged(3)

	assert.Eventually(t, func() bool {
		got := pub.published()
		return len(got) == 1 && got[0] == 3
	}, 500*time.Millisecond, 10*time.Millisecond)

	st := c.Status()
	assert.False(t, st.Pending)
	assert.Equal(t, int64(3), st.Revision)
	assert.Equal(t, int64(1), st.PublishCount)
	assert.Empty(t, st.LastError)
}

func TestCoordinatorTriggerNowBypassesDebounce(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCoordinator(pub, CoordinatorConfig{
		Debounce:       1 * time.Hour,
		ResyncInterval: 1 * time.Hour,
	})

	c.NotifyChanged(7)
	c.TriggerNow()

	got := pub.published()
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0])
}

func TestCoordinatorRecordsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCoordinator(pub, DefaultCoordinatorConfig())

	c.NotifyChanged(5)
	c.TriggerNow()

	st := c.Status()
	assert.True(t, st.Pending)
	assert.Equal(t, "broker down", st.LastError)
	assert.Zero(t, st.PublishCount)
}

func TestCoordinatorStartStop(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCoordinator(pub, CoordinatorConfig{
		Debounce:       10 * time.Millisecond,
		ResyncInterval: 1 * time.Hour,
	})

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsRunning())
	assert.Error(t, c.Start(ctx), "double start must fail")

	// Stop flushes the pending announcement.
	c.NotifyChanged(9)
	require.NoError(t, c.Stop(ctx))
	assert.False(t, c.IsRunning())

	got := pub.published()
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0])
}

func TestCoordinatorNilPublisher(t *testing.T) {
	c := NewCoordinator(nil, DefaultCoordinatorConfig())
	c.NotifyChanged(4)
	c.TriggerNow()

	st := c.Status()
	assert.False(t, st.Pending)
	assert.Zero(t, st.PublishCount)
}
