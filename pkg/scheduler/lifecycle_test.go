package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from types.PodStatus
		to   types.PodStatus
		ok   bool
	}{
		{types.PodStatusPending, types.PodStatusScheduled, true},
		{types.PodStatusPending, types.PodStatusFailed, true},
		{types.PodStatusPending, types.PodStatusEvicted, true},
		{types.PodStatusPending, types.PodStatusRunning, false},
		{types.PodStatusScheduled, types.PodStatusStarting, true},
		{types.PodStatusScheduled, types.PodStatusStopping, true},
		{types.PodStatusScheduled, types.PodStatusPending, false},
		{types.PodStatusStarting, types.PodStatusRunning, true},
		{types.PodStatusStarting, types.PodStatusScheduled, false},
		{types.PodStatusRunning, types.PodStatusStopping, true},
		{types.PodStatusRunning, types.PodStatusStopped, false},
		{types.PodStatusStopping, types.PodStatusStopped, true},
		{types.PodStatusStopping, types.PodStatusRunning, false},
		{types.PodStatusStopped, types.PodStatusStarting, false},
		{types.PodStatusFailed, types.PodStatusPending, false},
		{types.PodStatusEvicted, types.PodStatusEvicted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, transitionAllowed(tt.from, tt.to))
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	nodeID := seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, packID)
	_, err := s.Schedule(pod.ID)
	require.NoError(t, err)

	require.NoError(t, s.Start(pod.ID))
	require.NoError(t, s.SetRunning(pod.ID))

	running, err := s.Get(pod.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusRunning, running.Status)
	assert.False(t, running.StartedAt.IsZero())

	require.NoError(t, s.Stop(pod.ID))
	require.NoError(t, s.SetStopped(pod.ID))

	stopped, err := s.Get(pod.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusStopped, stopped.Status)
	assert.False(t, stopped.StoppedAt.IsZero())
	assert.Empty(t, stopped.NodeID, "terminal pods are no longer placed")

	// scheduledAt <= startedAt <= stoppedAt.
	assert.False(t, stopped.StartedAt.Before(stopped.ScheduledAt))
	assert.False(t, stopped.StoppedAt.Before(stopped.StartedAt))

	// The terminal transition released node and namespace resources.
	assert.True(t, nodeAllocated(t, st, nodeID).IsZero())
	assert.True(t, namespaceUsage(t, st, "default").IsZero())

	var actions []types.HistoryAction
	for _, e := range s.History(pod.ID) {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []types.HistoryAction{
		types.HistoryActionCreated,
		types.HistoryActionScheduled,
		types.HistoryActionUpdated, // starting
		types.HistoryActionStarted,
		types.HistoryActionUpdated, // stopping
		types.HistoryActionStopped,
	}, actions)
}

func TestInvalidTransitionFails(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)

	pod := createPod(t, s, packID)
	err := s.SetRunning(pod.ID)
	assert.True(t, types.IsCode(err, types.CodeInvalidStatusTransition))

	assert.True(t, types.IsCode(s.Start("ghost"), types.CodePodNotFound))
}

func TestTerminalReleaseHappensOnce(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, packID)
	_, err := s.Schedule(pod.ID)
	require.NoError(t, err)
	require.NoError(t, s.Fail(pod.ID, "crashed"))

	// Keep another pod's usage in the namespace so a double release would
	// be visible instead of hidden by the zero clamp.
	createPod(t, s, packID)
	want := types.ResourceList{CPU: 500, Memory: 1024, Pods: 1}
	assert.Equal(t, want, namespaceUsage(t, st, "default"))

	// A further terminal transition is rejected and releases nothing.
	err = s.Evict(pod.ID, "again")
	assert.True(t, types.IsCode(err, types.CodeInvalidStatusTransition))
	assert.Equal(t, want, namespaceUsage(t, st, "default"))
}

func TestEvictReleasesFromPending(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)

	pod := createPod(t, s, packID)
	require.NoError(t, s.Evict(pod.ID, "namespace deleted"))

	// A pending pod holds quota but no node resources.
	assert.True(t, namespaceUsage(t, st, "default").IsZero())

	got, err := s.Get(pod.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusEvicted, got.Status)
	assert.Equal(t, "namespace deleted", got.StatusMessage)
}

func TestTerminalTransitionClearsNodeAssignment(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	nodeID := seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, packID)
	scheduled, err := s.Schedule(pod.ID)
	require.NoError(t, err)
	require.Equal(t, nodeID, scheduled.NodeID)

	require.NoError(t, s.Fail(pod.ID, "crashed"))

	got, err := s.Get(pod.ID)
	require.NoError(t, err)
	assert.Empty(t, got.NodeID)
	assert.Empty(t, s.List(ListFilter{NodeID: nodeID}), "dead pods are off the node")

	// The node the pod ran on is still recorded in its audit trail.
	entries := s.History(pod.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, types.HistoryActionFailed, last.Action)
	assert.Equal(t, nodeID, last.FromNodeID)
}

func TestFailPodsOnNode(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	nodeID := seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	a := createPod(t, s, packID)
	b := createPod(t, s, packID)
	for _, p := range []*types.Pod{a, b} {
		_, err := s.Schedule(p.ID)
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(a.ID))
	require.NoError(t, s.SetRunning(a.ID))

	// A pod already terminal on the node is left alone.
	c := createPod(t, s, packID)
	_, err := s.Schedule(c.ID)
	require.NoError(t, err)
	require.NoError(t, s.Fail(c.ID, "crashed early"))

	count, err := s.FailPodsOnNode(nodeID, "node unhealthy")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, p := range []*types.Pod{a, b} {
		got, err := s.Get(p.ID)
		require.NoError(t, err)
		assert.Equal(t, types.PodStatusFailed, got.Status)
		assert.Equal(t, "node unhealthy", got.StatusMessage)
		assert.Empty(t, got.NodeID)
	}
	assert.True(t, nodeAllocated(t, st, nodeID).IsZero())
	assert.True(t, namespaceUsage(t, st, "default").IsZero())

	count, err = s.FailPodsOnNode(nodeID, "again")
	require.NoError(t, err)
	assert.Zero(t, count, "second sweep finds nothing to fail")
}

func TestRollback(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	v1 := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedPack(t, st, "web", "2.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, v1)
	_, err := s.Schedule(pod.ID)
	require.NoError(t, err)

	rolled, err := s.Rollback(pod.ID, "2.0.0", "tester")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", rolled.PackVersion)
	assert.NotEqual(t, v1, rolled.PackID)

	entries := s.History(pod.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, types.HistoryActionRolledBack, last.Action)
	assert.Equal(t, "1.0.0", last.FromVersion)
	assert.Equal(t, "2.0.0", last.ToVersion)
}

func TestRollbackRejections(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	v1 := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, v1)

	// Pending pods cannot roll back.
	_, err := s.Rollback(pod.ID, "2.0.0", "tester")
	assert.True(t, types.IsCode(err, types.CodeInvalidStatusTransition))

	_, err = s.Schedule(pod.ID)
	require.NoError(t, err)

	_, err = s.Rollback(pod.ID, "1.0.0", "tester")
	assert.True(t, types.IsCode(err, types.CodeSameVersion))

	_, err = s.Rollback(pod.ID, "9.9.9", "tester")
	assert.True(t, types.IsCode(err, types.CodeVersionNotFound))

	_, err = s.Rollback("ghost", "2.0.0", "tester")
	assert.True(t, types.IsCode(err, types.CodePodNotFound))
}

func TestRollbackRuntimeMismatch(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	v1 := seedPack(t, st, "web", "1.0.0", types.RuntimeTagUniversal)
	seedPack(t, st, "web", "2.0.0", types.RuntimeTagBrowser)
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, v1)
	_, err := s.Schedule(pod.ID)
	require.NoError(t, err)

	// The pod sits on a node-runtime worker; a browser-only version cannot
	// take its place.
	_, err = s.Rollback(pod.ID, "2.0.0", "tester")
	assert.True(t, types.IsCode(err, types.CodeRuntimeMismatch))
}

func TestUpdateStatusRecordsReason(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, standardCapacity())

	pod := createPod(t, s, packID)
	_, err := s.Schedule(pod.ID)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(pod.ID, types.PodStatusFailed, "oom", "killed by runtime"))

	var entry *types.PodHistoryEntry
	require.NoError(t, st.View(func(d *state.Data) error {
		entries := d.Histories[pod.ID]
		entry = entries[len(entries)-1]
		return nil
	}))
	assert.Equal(t, types.HistoryActionFailed, entry.Action)
	assert.Equal(t, "oom", entry.Reason)
	assert.Equal(t, "killed by runtime", entry.Message)
	assert.Equal(t, types.PodStatusScheduled, entry.FromStatus)
}
