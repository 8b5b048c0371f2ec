package scheduler

import (
	"time"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/registry"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// validTransitions is the pod state machine. Terminal states have no
// entries: nothing transitions out of stopped, failed, or evicted.
var validTransitions = map[types.PodStatus][]types.PodStatus{
	types.PodStatusPending: {
		types.PodStatusScheduled, types.PodStatusFailed, types.PodStatusEvicted,
	},
	types.PodStatusScheduled: {
		types.PodStatusStarting, types.PodStatusStopping,
		types.PodStatusFailed, types.PodStatusEvicted,
	},
	types.PodStatusStarting: {
		types.PodStatusRunning, types.PodStatusStopping,
		types.PodStatusFailed, types.PodStatusEvicted,
	},
	types.PodStatusRunning: {
		types.PodStatusStopping, types.PodStatusFailed, types.PodStatusEvicted,
	},
	types.PodStatusStopping: {
		types.PodStatusStopped, types.PodStatusFailed, types.PodStatusEvicted,
	},
}

func transitionAllowed(from, to types.PodStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// historyActionFor derives the audit action from the status a transition
// lands in. The intermediate starting/stopping states are plain updates.
func historyActionFor(to types.PodStatus) types.HistoryAction {
	switch to {
	case types.PodStatusScheduled:
		return types.HistoryActionScheduled
	case types.PodStatusRunning:
		return types.HistoryActionStarted
	case types.PodStatusStopped:
		return types.HistoryActionStopped
	case types.PodStatusFailed:
		return types.HistoryActionFailed
	case types.PodStatusEvicted:
		return types.HistoryActionEvicted
	default:
		return types.HistoryActionUpdated
	}
}

// UpdateStatus drives the pod through one state-machine edge. Invalid edges
// fail with INVALID_STATUS_TRANSITION. Reaching running stamps startedAt;
// reaching a terminal status stamps stoppedAt, releases the pod's node and
// namespace resources exactly once, and clears the node assignment. The
// history entry's FromNodeID keeps the node for the audit trail.
func (s *Scheduler) UpdateStatus(podID string, to types.PodStatus, reason, message string) error {
	var eventType events.EventType
	err := s.state.Update(func(d *state.Data) error {
		pod, ok := d.Pods[podID]
		if !ok {
			return types.Errorf(types.CodePodNotFound, "pod %s not found", podID)
		}
		if !transitionAllowed(pod.Status, to) {
			return types.Errorf(types.CodeInvalidStatusTransition,
				"pod %s cannot go from %s to %s", podID, pod.Status, to)
		}

		now := time.Now()
		from := pod.Status
		// The release precedes the status write so HoldsResources still
		// reflects the pre-transition state.
		if to.IsTerminal() && pod.Status.HoldsResources() {
			s.releaseTx(d, pod)
		}

		pod.Status = to
		pod.StatusMessage = message
		pod.UpdatedAt = now
		switch {
		case to == types.PodStatusRunning:
			pod.StartedAt = now
		case to.IsTerminal():
			pod.StoppedAt = now
		}

		d.AppendHistory(podID, &types.PodHistoryEntry{
			Action:     historyActionFor(to),
			FromStatus: from,
			ToStatus:   to,
			FromNodeID: pod.NodeID,
			Reason:     reason,
			Message:    message,
			Timestamp:  now,
		})
		if to.IsTerminal() {
			pod.NodeID = ""
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch to {
	case types.PodStatusRunning:
		eventType = events.EventPodStarted
	case types.PodStatusStopped:
		eventType = events.EventPodStopped
	case types.PodStatusFailed:
		eventType = events.EventPodFailed
	case types.PodStatusEvicted:
		eventType = events.EventPodEvicted
	}
	if eventType != "" {
		s.publish(events.New(eventType, "pod "+string(to), "pod_id", podID, "reason", reason))
	}
	return nil
}

// Start moves a scheduled pod into starting.
func (s *Scheduler) Start(podID string) error {
	return s.UpdateStatus(podID, types.PodStatusStarting, "", "")
}

// SetRunning marks a starting pod as running and stamps startedAt.
func (s *Scheduler) SetRunning(podID string) error {
	return s.UpdateStatus(podID, types.PodStatusRunning, "", "")
}

// Stop begins a graceful shutdown.
func (s *Scheduler) Stop(podID string) error {
	return s.UpdateStatus(podID, types.PodStatusStopping, "", "")
}

// SetStopped completes a graceful shutdown.
func (s *Scheduler) SetStopped(podID string) error {
	return s.UpdateStatus(podID, types.PodStatusStopped, "", "")
}

// Fail moves a pod to the failed terminal state.
func (s *Scheduler) Fail(podID, reason string) error {
	return s.UpdateStatus(podID, types.PodStatusFailed, reason, "")
}

// Evict moves a pod to the evicted terminal state.
func (s *Scheduler) Evict(podID, reason string) error {
	return s.UpdateStatus(podID, types.PodStatusEvicted, reason, "")
}

// evictTx is the in-closure eviction used by preemption: release, stamp,
// record. The caller publishes the event after the closure commits.
func (s *Scheduler) evictTx(d *state.Data, pod *types.Pod, reason string) {
	now := time.Now()
	from := pod.Status
	if pod.Status.HoldsResources() {
		s.releaseTx(d, pod)
	}
	pod.Status = types.PodStatusEvicted
	pod.StatusMessage = reason
	pod.StoppedAt = now
	pod.UpdatedAt = now
	d.AppendHistory(pod.ID, &types.PodHistoryEntry{
		Action:     types.HistoryActionEvicted,
		FromStatus: from,
		ToStatus:   types.PodStatusEvicted,
		FromNodeID: pod.NodeID,
		Reason:     reason,
		Timestamp:  now,
	})
	pod.NodeID = ""
}

// FailPodsOnNode fails every non-terminal pod placed on the node, releasing
// each pod's resources. It is the node manager's unhealthy hook target and
// returns how many pods were failed.
func (s *Scheduler) FailPodsOnNode(nodeID, reason string) (int, error) {
	var failed []string

	err := s.state.Update(func(d *state.Data) error {
		for _, pod := range d.PodsOnNode(nodeID) {
			if pod.Status.IsTerminal() {
				continue
			}
			now := time.Now()
			from := pod.Status
			s.releaseTx(d, pod)
			pod.Status = types.PodStatusFailed
			pod.StatusMessage = reason
			pod.StoppedAt = now
			pod.UpdatedAt = now
			d.AppendHistory(pod.ID, &types.PodHistoryEntry{
				Action:     types.HistoryActionFailed,
				FromStatus: from,
				ToStatus:   types.PodStatusFailed,
				FromNodeID: nodeID,
				Reason:     reason,
				Timestamp:  now,
			})
			pod.NodeID = ""
			failed = append(failed, pod.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.PodsFailedOver.Add(float64(len(failed)))
	for _, id := range failed {
		s.publish(events.New(events.EventPodFailed, "pod failed", "pod_id", id, "reason", reason))
	}
	if len(failed) > 0 {
		s.logger.Warn().Str("node", nodeID).Int("pods", len(failed)).Str("reason", reason).
			Msg("failed pods on node")
	}
	return len(failed), nil
}

// Rollback repoints a live pod at an earlier (or later) version of its
// pack. The pod keeps running where it is; the version takes effect on the
// next restart.
func (s *Scheduler) Rollback(podID, targetVersion, actorID string) (*types.Pod, error) {
	var rolled *types.Pod
	err := s.state.Update(func(d *state.Data) error {
		pod, ok := d.Pods[podID]
		if !ok {
			return types.Errorf(types.CodePodNotFound, "pod %s not found", podID)
		}
		switch pod.Status {
		case types.PodStatusScheduled, types.PodStatusStarting, types.PodStatusRunning:
		default:
			return types.Errorf(types.CodeInvalidStatusTransition,
				"pod %s is %s, rollback requires a placed live pod", podID, pod.Status)
		}

		current, ok := d.Packs[pod.PackID]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", pod.PackID)
		}
		if registry.CompareVersions(targetVersion, current.Version) == 0 {
			return types.Errorf(types.CodeSameVersion,
				"pod %s already runs %s version %s", podID, current.Name, current.Version)
		}
		target := findPackVersion(d, current.Name, targetVersion)
		if target == nil {
			return types.Errorf(types.CodeVersionNotFound,
				"pack %s has no version %s", current.Name, targetVersion)
		}
		if pod.NodeID != "" {
			node, ok := d.Nodes[pod.NodeID]
			if ok && !target.RuntimeTag.Matches(node.Runtime) {
				return types.Errorf(types.CodeRuntimeMismatch,
					"pack %s version %s requires %s, node %s runs %s",
					current.Name, targetVersion, target.RuntimeTag, node.Name, node.Runtime)
			}
		}

		fromVersion := pod.PackVersion
		pod.PackID = target.ID
		pod.PackVersion = target.Version
		pod.UpdatedAt = time.Now()
		d.AppendHistory(podID, &types.PodHistoryEntry{
			Action:      types.HistoryActionRolledBack,
			ActorID:     actorID,
			FromVersion: fromVersion,
			ToVersion:   target.Version,
			FromStatus:  pod.Status,
			ToStatus:    pod.Status,
			FromNodeID:  pod.NodeID,
		})
		rolled = pod.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("pod", podID).Str("version", targetVersion).Msg("pod rolled back")
	s.publish(events.New(events.EventPodRolledBack, "pod rolled back",
		"pod_id", podID, "version", targetVersion))
	return rolled, nil
}
