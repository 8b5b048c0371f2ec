package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

func preemptionConfig() types.ResourceList {
	// One pod's worth of capacity, so a second placement always needs an
	// eviction.
	return types.ResourceList{CPU: 500, Memory: 1024, Pods: 1}
}

func seedPriorityClasses(t *testing.T, st *state.State) {
	t.Helper()
	require.NoError(t, st.Update(func(d *state.Data) error {
		d.PriorityClasses["low"] = &types.PriorityClass{Name: "low", Value: 10}
		d.PriorityClasses["high"] = &types.PriorityClass{Name: "high", Value: 100}
		d.PriorityClasses["polite"] = &types.PriorityClass{
			Name: "polite", Value: 100, PreemptionPolicy: types.PreemptNever,
		}
		return nil
	}))
}

func TestPreemptionEvictsLowerPriority(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	nodeID := seedNode(t, st, "n1", types.NodeRuntimeNode, preemptionConfig())

	victim := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	_, err := s.Schedule(victim.ID)
	require.NoError(t, err)

	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	scheduled, err := s.Schedule(preemptor.ID)
	require.NoError(t, err)
	assert.Equal(t, nodeID, scheduled.NodeID)

	gone, err := s.Get(victim.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusEvicted, gone.Status)
	assert.Equal(t, "Preempted by pod "+preemptor.ID+" with higher priority", gone.StatusMessage)
	assert.Empty(t, gone.NodeID)

	// Only the preemptor's resources remain on the node.
	assert.Equal(t, types.ResourceList{CPU: 500, Memory: 1024, Pods: 1},
		nodeAllocated(t, st, nodeID))

	entries := s.History(victim.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, types.HistoryActionEvicted, last.Action)
}

func TestPreemptionDisabled(t *testing.T) {
	s, st := newScheduler(t, defaultConfig())
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, preemptionConfig())

	victim := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	_, err := s.Schedule(victim.ID)
	require.NoError(t, err)

	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	_, err = s.Schedule(preemptor.ID)
	assert.True(t, types.IsCode(err, types.CodeNoCompatibleNodes))
}

func TestPreemptionNeverPolicy(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, preemptionConfig())

	victim := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	_, err := s.Schedule(victim.ID)
	require.NoError(t, err)

	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "polite" })
	_, err = s.Schedule(preemptor.ID)
	assert.True(t, types.IsCode(err, types.CodeNoCompatibleNodes))
}

func TestPreemptionFailsAgainstEqualPriority(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, preemptionConfig())

	incumbent := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	_, err := s.Schedule(incumbent.ID)
	require.NoError(t, err)

	// Equal priority never preempts.
	challenger := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	_, err = s.Schedule(challenger.ID)
	assert.True(t, types.IsCode(err, types.CodePreemptionFailed))

	still, err := s.Get(incumbent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusScheduled, still.Status)
}

func TestPreemptionEvictsOnlyWhatIsNeeded(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	nodeID := seedNode(t, st, "n1", types.NodeRuntimeNode,
		types.ResourceList{CPU: 1000, Memory: 2048, Pods: 2})

	first := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	second := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	for _, p := range []*types.Pod{first, second} {
		_, err := s.Schedule(p.ID)
		require.NoError(t, err)
	}

	// One eviction frees enough; the greedy pass stops there.
	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	scheduled, err := s.Schedule(preemptor.ID)
	require.NoError(t, err)
	assert.Equal(t, nodeID, scheduled.NodeID)

	evicted := 0
	for _, p := range []*types.Pod{first, second} {
		got, err := s.Get(p.ID)
		require.NoError(t, err)
		if got.Status == types.PodStatusEvicted {
			evicted++
		}
	}
	assert.Equal(t, 1, evicted)
}

func TestPreemptionSparesStoppingPods(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeNode, preemptionConfig())

	// A low-priority pod mid-shutdown still holds the node's capacity but is
	// not an eviction candidate.
	occupant := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "low" })
	_, err := s.Schedule(occupant.ID)
	require.NoError(t, err)
	require.NoError(t, s.Stop(occupant.ID))

	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	_, err = s.Schedule(preemptor.ID)
	assert.True(t, types.IsCode(err, types.CodePreemptionFailed))

	still, err := s.Get(occupant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusStopping, still.Status)
}

func TestPreemptionRespectsNonResourceFilters(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnablePreemption = true
	s, st := newScheduler(t, cfg)
	seedPriorityClasses(t, st)
	packID := seedPack(t, st, "web", "1.0.0", types.RuntimeTagNode)
	seedNode(t, st, "n1", types.NodeRuntimeBrowser, preemptionConfig())

	// The only node has the wrong runtime: preemption cannot help.
	preemptor := createPod(t, s, packID, func(in *CreateInput) { in.PriorityClassName = "high" })
	_, err := s.Schedule(preemptor.ID)
	assert.True(t, types.IsCode(err, types.CodeNoCompatibleNodes))
}
