package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

func TestSchedulePendingPlacesOldestFirst(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)

	older := createPod(t, s, packID)
	newer := createPod(t, s, packID)
	require.NoError(t, st.Update(func(d *state.Data) error {
		d.Pods[older.ID].CreatedAt = time.Now().Add(-time.Minute)
		return nil
	}))

	// Room for exactly one pod: the older one must win it.
	seedNode(t, st, "n1", types.NodeRuntimeNode,
		types.ResourceList{CPU: 500, Memory: 1024, Pods: 1})

	placed := s.SchedulePending()
	assert.Equal(t, 1, placed)

	got, err := s.Get(older.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusScheduled, got.Status)

	got, err = s.Get(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusPending, got.Status)
}

func TestSchedulePendingBacksOffAfterMaxRetries(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 2
	s, st := newScheduler(t, cfg)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)

	pod := createPod(t, s, packID)

	// No nodes: every pass misses until the retry budget is spent.
	assert.Zero(t, s.SchedulePending())
	assert.Zero(t, s.SchedulePending())
	assert.True(t, s.retriesExhausted(pod.ID))

	// Capacity arrives, but the pod is backed off until its entry expires.
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())
	assert.Zero(t, s.SchedulePending())

	s.retries.Delete(pod.ID)
	assert.Equal(t, 1, s.SchedulePending())
}

func TestSchedulePendingResetsRetriesOnSuccess(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 3
	s, st := newScheduler(t, cfg)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)

	pod := createPod(t, s, packID)
	assert.Zero(t, s.SchedulePending())
	_, found := s.retries.Get(pod.ID)
	assert.True(t, found)

	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())
	assert.Equal(t, 1, s.SchedulePending())

	_, found = s.retries.Get(pod.ID)
	assert.False(t, found, "a successful placement clears the retry entry")
}

func TestSchedulePendingIgnoresNonPlacementErrors(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	pod := createPod(t, s, packID)

	// Remove the pack under the pod; the pass logs and moves on without
	// burning a retry.
	require.NoError(t, st.Update(func(d *state.Data) error {
		delete(d.Packs, packID)
		return nil
	}))
	assert.Zero(t, s.SchedulePending())
	_, found := s.retries.Get(pod.ID)
	assert.False(t, found)
}

func TestSchedulePendingUnlimitedRetries(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 0
	s, st := newScheduler(t, cfg)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	pod := createPod(t, s, packID)

	for i := 0; i < 10; i++ {
		assert.Zero(t, s.SchedulePending())
	}
	assert.False(t, s.retriesExhausted(pod.ID))

	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())
	assert.Equal(t, 1, s.SchedulePending())
}
