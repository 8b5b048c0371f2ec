package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/config"
	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/namespace"
	"github.com/croftlabs/croft/pkg/registry"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// retryWindow bounds how long a pod's consecutive placement failures are
// remembered. Once the entry expires the pod becomes eligible for the
// pending pass again.
const retryWindow = 5 * time.Minute

// Scheduler owns the pod lifecycle: creation with quota pre-checks,
// placement, preemption, state-machine transitions, failover, and rollback.
// Every operation executes inside a single state closure, so a placement
// decision and its resource accounting are one serialized step.
type Scheduler struct {
	state      *state.State
	namespaces *namespace.Manager
	cfg        config.Scheduler
	broker     *events.Broker
	logger     zerolog.Logger

	retries *gocache.Cache

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a scheduler. The namespace manager must share the same state.
func New(st *state.State, namespaces *namespace.Manager, broker *events.Broker, cfg config.Scheduler) *Scheduler {
	if !cfg.SchedulingPolicy.Valid() {
		cfg.SchedulingPolicy = types.PolicySpread
	}
	return &Scheduler{
		state:      st,
		namespaces: namespaces,
		cfg:        cfg,
		broker:     broker,
		logger:     log.WithComponent("scheduler"),
		retries:    gocache.New(retryWindow, 2*retryWindow),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateInput is the request to create a pod.
type CreateInput struct {
	PackID            string
	PackVersion       string
	Namespace         string
	Labels            map[string]string
	Annotations       map[string]string
	PriorityClassName string
	Tolerations       []types.Toleration
	Requests          types.ResourcePair
	Limits            types.ResourcePair
	Scheduling        *types.PodScheduling
	Metadata          map[string]string
}

// Create validates the input, reserves namespace quota, and stores the pod
// in the pending state. A pod with no compatible node at create time simply
// stays pending; that is not a failure.
func (s *Scheduler) Create(input CreateInput, userID string) (*types.Pod, error) {
	if input.PackID == "" {
		return nil, types.NewError(types.CodeValidation, "a pack id is required")
	}
	nsName := input.Namespace
	if nsName == "" {
		nsName = namespace.Default
	}

	now := time.Now()
	pod := &types.Pod{
		ID:                uuid.New().String(),
		Status:            types.PodStatusPending,
		Namespace:         nsName,
		Labels:            input.Labels,
		Annotations:       input.Annotations,
		PriorityClassName: input.PriorityClassName,
		Tolerations:       input.Tolerations,
		Scheduling:        input.Scheduling,
		CreatedBy:         userID,
		Metadata:          input.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.state.Update(func(d *state.Data) error {
		pack, ok := d.Packs[input.PackID]
		if !ok {
			return types.Errorf(types.CodePackNotFound, "pack %s not found", input.PackID)
		}
		if input.PackVersion != "" && registry.CompareVersions(input.PackVersion, pack.Version) != 0 {
			override := findPackVersion(d, pack.Name, input.PackVersion)
			if override == nil {
				return types.Errorf(types.CodeVersionNotFound,
					"pack %s has no version %s", pack.Name, input.PackVersion)
			}
			pack = override
		}
		pod.PackID = pack.ID
		pod.PackVersion = pack.Version

		ns, ok := d.Namespaces[nsName]
		if !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", nsName)
		}
		if ns.Phase == types.NamespacePhaseTerminating {
			return types.Errorf(types.CodeNamespaceTerminating,
				"namespace %s is terminating and accepts no new pods", nsName)
		}

		requests, limits := namespace.ApplyDefaults(ns.LimitRange, input.Requests, input.Limits)
		if err := namespace.ValidateResources(ns.LimitRange, requests, limits); err != nil {
			return err
		}
		pod.Requests = requests
		pod.Limits = limits

		pod.Priority = s.cfg.DefaultPriority
		if pc, ok := d.PriorityClasses[input.PriorityClassName]; ok {
			pod.Priority = pc.Value
		}

		check, err := s.namespaces.CheckQuotaTx(d, nsName, requests.AsList(1))
		if err != nil {
			return err
		}
		if !check.Allowed {
			metrics.QuotaRejections.Inc()
			axes := make([]string, len(check.Exceeded))
			for i, ex := range check.Exceeded {
				axes[i] = ex.Axis
			}
			err := types.Errorf(types.CodeNamespaceQuotaExceeded,
				"namespace %s quota exceeded", nsName)
			return err.WithDetail("exceededResources", axes)
		}
		if err := s.namespaces.AllocateQuotaTx(d, nsName, requests.AsList(1)); err != nil {
			return err
		}

		d.Pods[pod.ID] = pod.Clone()
		d.AppendHistory(pod.ID, &types.PodHistoryEntry{
			Action:    types.HistoryActionCreated,
			ActorID:   userID,
			ToStatus:  types.PodStatusPending,
			ToVersion: pod.PackVersion,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("pod", pod.ID).Str("namespace", nsName).Msg("pod created")
	s.publish(events.New(events.EventPodCreated, "pod created",
		"pod_id", pod.ID, "namespace", nsName))
	return pod, nil
}

// Get returns a pod by ID.
func (s *Scheduler) Get(podID string) (*types.Pod, error) {
	var pod *types.Pod
	err := s.state.View(func(d *state.Data) error {
		p, ok := d.Pods[podID]
		if !ok {
			return types.Errorf(types.CodePodNotFound, "pod %s not found", podID)
		}
		pod = p.Clone()
		return nil
	})
	return pod, err
}

// ListFilter narrows List results. Zero fields match everything.
type ListFilter struct {
	Namespace string
	NodeID    string
	Status    types.PodStatus
}

// List returns pods matching the filter, in unspecified order.
func (s *Scheduler) List(filter ListFilter) []*types.Pod {
	var out []*types.Pod
	_ = s.state.View(func(d *state.Data) error {
		for _, p := range d.Pods {
			if filter.Namespace != "" && p.Namespace != filter.Namespace {
				continue
			}
			if filter.NodeID != "" && p.NodeID != filter.NodeID {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			out = append(out, p.Clone())
		}
		return nil
	})
	return out
}

// History returns a pod's audit log, oldest first. The log survives pod
// deletion.
func (s *Scheduler) History(podID string) []*types.PodHistoryEntry {
	var out []*types.PodHistoryEntry
	_ = s.state.View(func(d *state.Data) error {
		for _, e := range d.Histories[podID] {
			out = append(out, e.Clone())
		}
		return nil
	})
	return out
}

// Delete removes a pod, releasing its resources when it still holds any.
// The pod's history is retained.
func (s *Scheduler) Delete(podID, actorID string) error {
	err := s.state.Update(func(d *state.Data) error {
		pod, ok := d.Pods[podID]
		if !ok {
			return types.Errorf(types.CodePodNotFound, "pod %s not found", podID)
		}
		if pod.Status.HoldsResources() {
			s.releaseTx(d, pod)
		}
		d.AppendHistory(podID, &types.PodHistoryEntry{
			Action:     types.HistoryActionDeleted,
			ActorID:    actorID,
			FromStatus: pod.Status,
			FromNodeID: pod.NodeID,
		})
		delete(d.Pods, podID)
		return nil
	})
	if err != nil {
		return err
	}
	s.retries.Delete(podID)
	s.publish(events.New(events.EventPodDeleted, "pod deleted", "pod_id", podID))
	return nil
}

// releaseTx returns a pod's resource contribution to its node and
// namespace, both clamped at zero. Callers invoke it exactly once per pod,
// on the transition out of a resource-holding status.
func (s *Scheduler) releaseTx(d *state.Data, pod *types.Pod) {
	released := pod.Requests.AsList(1)
	if pod.NodeID != "" {
		if n, ok := d.Nodes[pod.NodeID]; ok {
			n.Allocated = n.Allocated.Sub(released)
			n.UpdatedAt = time.Now()
		}
	}
	_ = s.namespaces.ReleaseQuotaTx(d, pod.Namespace, released)
}

func findPackVersion(d *state.Data, name, version string) *types.Pack {
	for _, p := range d.Packs {
		if p.Name == name && registry.CompareVersions(p.Version, version) == 0 {
			return p
		}
	}
	return nil
}

func (s *Scheduler) publish(event *events.Event) {
	if s.broker != nil {
		s.broker.Publish(event)
	}
}

func (s *Scheduler) randomJitter() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() * 20
}
