package scheduler

import (
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// Schedule places a pending pod onto the best available node. Filtering
// removes nodes that cannot run the pod at all; scoring ranks the rest
// under the configured placement policy. When no node passes the filter and
// preemption is enabled, lower-priority pods are evicted to make room.
func (s *Scheduler) Schedule(podID string) (*types.Pod, error) {
	timer := metrics.StartTimer()
	var scheduled *types.Pod
	var evicted []string

	err := s.state.Update(func(d *state.Data) error {
		pod, ok := d.Pods[podID]
		if !ok {
			return types.Errorf(types.CodePodNotFound, "pod %s not found", podID)
		}
		if pod.Status != types.PodStatusPending {
			return types.Errorf(types.CodeInvalidStatusTransition,
				"pod %s is %s, only pending pods can be scheduled", podID, pod.Status)
		}
		pack, ok := d.Packs[pod.PackID]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", pod.PackID)
		}

		runtime := s.preferredRuntime(d, pack.RuntimeTag)
		nodes := stableNodeOrder(d)

		candidates := lo.Filter(nodes, func(n *types.Node, _ int) bool {
			return nodeFits(n, pod, runtime, d)
		})

		if len(candidates) == 0 {
			target, victims, err := s.planPreemption(d, pod, runtime, nodes)
			if err != nil {
				return err
			}
			for _, victim := range victims {
				s.evictTx(d, victim, "Preempted by pod "+pod.ID+" with higher priority")
				evicted = append(evicted, victim.ID)
			}
			metrics.Preemptions.Add(float64(len(victims)))
			s.bindTx(d, pod, target)
			scheduled = pod.Clone()
			return nil
		}

		best := candidates[0]
		bestScore := s.scoreNode(d, candidates[0], pod)
		for _, n := range candidates[1:] {
			// Strictly greater, so ties resolve to the first node in
			// stable order.
			if score := s.scoreNode(d, n, pod); score > bestScore {
				best, bestScore = n, score
			}
		}

		s.bindTx(d, pod, best)
		scheduled = pod.Clone()
		return nil
	})

	if err != nil {
		metrics.SchedulingAttempts.WithLabelValues("failed").Inc()
		return nil, err
	}

	timer.Observe(metrics.SchedulingLatency)
	metrics.SchedulingAttempts.WithLabelValues("scheduled").Inc()
	for _, id := range evicted {
		s.publish(events.New(events.EventPodEvicted, "pod preempted", "pod_id", id))
	}
	s.logger.Info().Str("pod", scheduled.ID).Str("node", scheduled.NodeID).Msg("pod scheduled")
	s.publish(events.New(events.EventPodScheduled, "pod scheduled",
		"pod_id", scheduled.ID, "node_id", scheduled.NodeID))
	return scheduled, nil
}

// preferredRuntime maps a pack's runtime tag to the node runtime to target.
// Universal packs prefer node-runtime workers when any schedulable one
// exists, falling back to browser workers.
func (s *Scheduler) preferredRuntime(d *state.Data, tag types.RuntimeTag) types.NodeRuntime {
	switch tag {
	case types.RuntimeTagNode:
		return types.NodeRuntimeNode
	case types.RuntimeTagBrowser:
		return types.NodeRuntimeBrowser
	default:
		for _, n := range d.Nodes {
			if n.Runtime == types.NodeRuntimeNode && n.IsSchedulable() {
				return types.NodeRuntimeNode
			}
		}
		return types.NodeRuntimeBrowser
	}
}

// bindTx assigns the pod to the node and allocates its resources. The
// caller has already established that the node fits (or cleared it through
// preemption).
func (s *Scheduler) bindTx(d *state.Data, pod *types.Pod, node *types.Node) {
	now := time.Now()
	node.Allocated = node.Allocated.Add(pod.Requests.AsList(1))
	node.UpdatedAt = now

	prev := pod.Status
	pod.NodeID = node.ID
	pod.Status = types.PodStatusScheduled
	pod.ScheduledAt = now
	pod.UpdatedAt = now
	d.AppendHistory(pod.ID, &types.PodHistoryEntry{
		Action:     types.HistoryActionScheduled,
		FromStatus: prev,
		ToStatus:   types.PodStatusScheduled,
		ToNodeID:   node.ID,
		Timestamp:  now,
	})
}

// stableNodeOrder returns nodes sorted by registration time, then ID, so
// tie-breaking is deterministic across calls.
func stableNodeOrder(d *state.Data) []*types.Node {
	nodes := lo.Values(d.Nodes)
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// nodeFits is the full filter: schedulability, runtime, hard taints,
// resources, node selector, and required node affinity.
func nodeFits(n *types.Node, pod *types.Pod, runtime types.NodeRuntime, d *state.Data) bool {
	return passesNonResourceFilters(n, pod, runtime) &&
		pod.Requests.AsList(1).FitsWithin(n.Available())
}

// passesNonResourceFilters applies every filter except resource capacity.
// Preemption reuses it: a node that fails these can never host the pod no
// matter what is evicted.
func passesNonResourceFilters(n *types.Node, pod *types.Pod, runtime types.NodeRuntime) bool {
	if !n.IsSchedulable() {
		return false
	}
	if n.Runtime != runtime {
		return false
	}
	if !toleratesHardTaints(pod.Tolerations, n.Taints) {
		return false
	}
	if !matchesNodeSelector(n, pod) {
		return false
	}
	return matchesRequiredAffinity(n, pod)
}

// toleratesHardTaints reports whether the pod tolerates every NoSchedule
// and NoExecute taint on the node. PreferNoSchedule is a soft taint handled
// in scoring.
func toleratesHardTaints(tolerations []types.Toleration, taints []types.Taint) bool {
	for _, taint := range taints {
		if taint.Effect == types.TaintEffectPreferNoSchedule {
			continue
		}
		if !tolerated(tolerations, taint) {
			return false
		}
	}
	return true
}

func tolerated(tolerations []types.Toleration, taint types.Taint) bool {
	for _, t := range tolerations {
		if t.Tolerates(taint) {
			return true
		}
	}
	return false
}

func matchesNodeSelector(n *types.Node, pod *types.Pod) bool {
	if pod.Scheduling == nil {
		return true
	}
	for key, value := range pod.Scheduling.NodeSelector {
		if n.Labels[key] != value {
			return false
		}
	}
	return true
}

// matchesRequiredAffinity evaluates required node affinity: terms are ORed,
// expressions within a term are ANDed. No required terms means no
// constraint.
func matchesRequiredAffinity(n *types.Node, pod *types.Pod) bool {
	if pod.Scheduling == nil || pod.Scheduling.NodeAffinity == nil {
		return true
	}
	required := pod.Scheduling.NodeAffinity.Required
	if len(required) == 0 {
		return true
	}
	for _, term := range required {
		if matchesTerm(n, term) {
			return true
		}
	}
	return false
}

func matchesTerm(n *types.Node, term types.NodeSelectorTerm) bool {
	for _, expr := range term.MatchExpressions {
		if !matchesExpression(n.Labels, expr) {
			return false
		}
	}
	return true
}

// matchesExpression evaluates one label predicate. NotIn matches when the
// label is absent; Exists does not; Gt/Lt fail on absent or non-numeric
// labels.
func matchesExpression(labels map[string]string, expr types.NodeSelectorRequirement) bool {
	value, present := labels[expr.Key]
	switch expr.Operator {
	case types.NodeSelectorOpIn:
		return present && lo.Contains(expr.Values, value)
	case types.NodeSelectorOpNotIn:
		return !present || !lo.Contains(expr.Values, value)
	case types.NodeSelectorOpExists:
		return present
	case types.NodeSelectorOpDoesNotExist:
		return !present
	case types.NodeSelectorOpGt, types.NodeSelectorOpLt:
		if !present || len(expr.Values) == 0 {
			return false
		}
		labelNum, err1 := strconv.ParseInt(value, 10, 64)
		boundNum, err2 := strconv.ParseInt(expr.Values[0], 10, 64)
		if err1 != nil || err2 != nil {
			return false
		}
		if expr.Operator == types.NodeSelectorOpGt {
			return labelNum > boundNum
		}
		return labelNum < boundNum
	}
	return false
}

// scoreNode ranks a candidate node for the pod. Every node starts at 100;
// the placement policy, soft taints, and affinity preferences adjust from
// there.
func (s *Scheduler) scoreNode(d *state.Data, n *types.Node, pod *types.Pod) float64 {
	score := 100.0
	podsOnNode := activePodsOnNode(d, n.ID)

	switch s.cfg.SchedulingPolicy {
	case types.PolicySpread:
		score -= 10 * float64(len(podsOnNode))
	case types.PolicyBinpack:
		score += 5 * float64(len(podsOnNode))
	case types.PolicyLeastLoaded:
		if n.Allocatable.CPU > 0 {
			score += 50 * float64(n.Allocatable.CPU-n.Allocated.CPU) / float64(n.Allocatable.CPU)
		}
		if n.Allocatable.Memory > 0 {
			score += 50 * float64(n.Allocatable.Memory-n.Allocated.Memory) / float64(n.Allocatable.Memory)
		}
	case types.PolicyRandom:
		score += s.randomJitter()
	}

	for _, taint := range n.Taints {
		if taint.Effect == types.TaintEffectPreferNoSchedule && !tolerated(pod.Tolerations, taint) {
			score -= 50
		}
	}

	if pod.Scheduling != nil {
		if affinity := pod.Scheduling.NodeAffinity; affinity != nil {
			for _, pref := range affinity.Preferred {
				if matchesTerm(n, pref.Preference) {
					score += float64(pref.Weight)
				}
			}
		}
		if affinity := pod.Scheduling.PodAffinity; affinity != nil {
			for _, term := range affinity.Preferred {
				if anyPodMatches(podsOnNode, term) {
					score += float64(term.Weight)
				}
			}
		}
		if anti := pod.Scheduling.PodAntiAffinity; anti != nil {
			for _, term := range anti.Preferred {
				if anyPodMatches(podsOnNode, term) {
					score -= float64(term.Weight)
				}
			}
		}
	}
	return score
}

func anyPodMatches(pods []*types.Pod, term types.WeightedPodAffinityTerm) bool {
	for _, p := range pods {
		if term.MatchesPod(p) {
			return true
		}
	}
	return false
}

// activePodsOnNode returns the non-terminal pods placed on the node.
func activePodsOnNode(d *state.Data, nodeID string) []*types.Pod {
	return lo.Filter(d.PodsOnNode(nodeID), func(p *types.Pod, _ int) bool {
		return !p.Status.IsTerminal()
	})
}
