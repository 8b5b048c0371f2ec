package scheduler

import (
	"sort"

	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// planPreemption finds a node that can host the pod after evicting
// lower-priority pods. Nodes are visited in the stable order the caller
// passes; the first node whose victims free enough capacity wins. The plan
// only selects victims, it mutates nothing.
//
// NO_COMPATIBLE_NODES is returned when preemption is not permitted or no
// node passes the non-resource filters; PREEMPTION_FAILED when candidate
// nodes exist but none can be cleared.
func (s *Scheduler) planPreemption(d *state.Data, pod *types.Pod, runtime types.NodeRuntime, nodes []*types.Node) (*types.Node, []*types.Pod, error) {
	noNodes := types.Errorf(types.CodeNoCompatibleNodes,
		"no node can host pod %s", pod.ID)

	if !s.cfg.EnablePreemption || !s.preemptionAllowed(d, pod) {
		return nil, nil, noNodes
	}

	sawCandidate := false
	for _, n := range nodes {
		if !passesNonResourceFilters(n, pod, runtime) {
			continue
		}
		sawCandidate = true
		if victims := pickVictims(d, n, pod); victims != nil {
			return n, victims, nil
		}
	}
	if !sawCandidate {
		return nil, nil, noNodes
	}
	return nil, nil, types.Errorf(types.CodePreemptionFailed,
		"no node can be cleared for pod %s by evicting lower-priority pods", pod.ID)
}

// preemptionAllowed consults the pod's priority class. An unknown or absent
// class permits preemption; only an explicit Never policy blocks it.
func (s *Scheduler) preemptionAllowed(d *state.Data, pod *types.Pod) bool {
	pc, ok := d.PriorityClasses[pod.PriorityClassName]
	if !ok {
		return true
	}
	return pc.PreemptionPolicy.AllowsPreemption()
}

// pickVictims greedily selects pods to evict from the node, lowest priority
// first, until the freed capacity plus what is already available covers the
// pod's requests. Only scheduled, starting, and running pods are eligible;
// stopping pods are already shutting down and cannot be evicted. Returns nil
// when even evicting every eligible pod is not enough.
func pickVictims(d *state.Data, n *types.Node, pod *types.Pod) []*types.Pod {
	needed := pod.Requests.AsList(1)
	if needed.FitsWithin(n.Available()) {
		return []*types.Pod{}
	}

	evictable := make([]*types.Pod, 0)
	for _, p := range activePodsOnNode(d, n.ID) {
		switch p.Status {
		case types.PodStatusScheduled, types.PodStatusStarting, types.PodStatusRunning:
		default:
			continue
		}
		if p.Priority < pod.Priority {
			evictable = append(evictable, p)
		}
	}
	sort.Slice(evictable, func(i, j int) bool {
		if evictable[i].Priority != evictable[j].Priority {
			return evictable[i].Priority < evictable[j].Priority
		}
		return evictable[i].ID < evictable[j].ID
	})

	freed := types.ResourceList{}
	var victims []*types.Pod
	for _, victim := range evictable {
		victims = append(victims, victim)
		freed = freed.Add(victim.Requests.AsList(1))
		if needed.FitsWithin(n.Available().Add(freed)) {
			return victims
		}
	}
	return nil
}
