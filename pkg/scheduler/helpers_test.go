package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/croftlabs/croft/pkg/config"
	"github.com/croftlabs/croft/pkg/namespace"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

func defaultConfig() config.Scheduler {
	return config.Scheduler{
		MaxRetries:       3,
		DefaultPriority:  0,
		EnablePreemption: false,
		SchedulingPolicy: types.PolicySpread,
	}
}

func newScheduler(t *testing.T, cfg config.Scheduler) (*Scheduler, *state.State) {
	t.Helper()
	st := state.New()
	namespaces := namespace.New(st, nil, true)
	return New(st, namespaces, nil, cfg), st
}

// seedPack inserts a pack directly into state and returns its ID.
func seedPack(t *testing.T, st *state.State, name, version string, tag types.RuntimeTag) string {
	t.Helper()
	id := uuid.New().String()
	require.NoError(t, st.Update(func(d *state.Data) error {
		d.Packs[id] = &types.Pack{
			ID:         id,
			Name:       name,
			Version:    version,
			RuntimeTag: tag,
			OwnerID:    "owner",
			CreatedAt:  time.Now(),
		}
		return nil
	}))
	return id
}

var nodeSeq int

// seedNode inserts an online node with the given capacity. Nodes get
// strictly increasing CreatedAt so tie-breaking order follows insertion
// order in tests.
func seedNode(t *testing.T, st *state.State, name string, runtime types.NodeRuntime, capacity types.ResourceList, mutate ...func(*types.Node)) string {
	t.Helper()
	id := uuid.New().String()
	nodeSeq++
	n := &types.Node{
		ID:            id,
		Name:          name,
		Runtime:       runtime,
		Status:        types.NodeStatusOnline,
		LastHeartbeat: time.Now(),
		Allocatable:   capacity,
		CreatedAt:     time.Unix(1700000000, int64(nodeSeq)),
	}
	for _, fn := range mutate {
		fn(n)
	}
	require.NoError(t, st.Update(func(d *state.Data) error {
		d.Nodes[id] = n
		return nil
	}))
	return id
}

// standardCapacity fits a handful of small pods.
func standardCapacity() types.ResourceList {
	return types.ResourceList{CPU: 4000, Memory: 8192, Pods: 10}
}

func createPod(t *testing.T, s *Scheduler, packID string, mutate ...func(*CreateInput)) *types.Pod {
	t.Helper()
	input := CreateInput{
		PackID:   packID,
		Requests: types.ResourcePair{CPU: 500, Memory: 1024},
	}
	for _, fn := range mutate {
		fn(&input)
	}
	pod, err := s.Create(input, "tester")
	require.NoError(t, err)
	return pod
}

func nodeAllocated(t *testing.T, st *state.State, nodeID string) types.ResourceList {
	t.Helper()
	var out types.ResourceList
	require.NoError(t, st.View(func(d *state.Data) error {
		out = d.Nodes[nodeID].Allocated
		return nil
	}))
	return out
}

func namespaceUsage(t *testing.T, st *state.State, name string) types.ResourceList {
	t.Helper()
	var out types.ResourceList
	require.NoError(t, st.View(func(d *state.Data) error {
		out = d.Namespaces[name].Usage
		return nil
	}))
	return out
}
