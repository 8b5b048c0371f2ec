package state

import (
	"sync"
	"time"

	"github.com/croftlabs/croft/pkg/types"
)

// Data is the complete in-memory cluster state. It is only ever accessed
// inside a View or Update closure, which holds the appropriate lock for the
// duration of the callback. Objects handed out of a closure must be Cloned
// first; managers enforce that at their public boundaries.
type Data struct {
	Nodes           map[string]*types.Node
	Pods            map[string]*types.Pod
	Packs           map[string]*types.Pack
	Namespaces      map[string]*types.Namespace
	PriorityClasses map[string]*types.PriorityClass
	Secrets         map[string]*types.Secret
	Histories       map[string][]*types.PodHistoryEntry
}

// State guards Data behind a single RWMutex. All cross-entity operations
// (quota check + pod create, preemption + placement) compose inside one
// Update closure so readers never observe partial transitions.
type State struct {
	mu   sync.RWMutex
	data Data
}

// New returns an empty cluster state.
func New() *State {
	return &State{data: newData()}
}

func newData() Data {
	return Data{
		Nodes:           make(map[string]*types.Node),
		Pods:            make(map[string]*types.Pod),
		Packs:           make(map[string]*types.Pack),
		Namespaces:      make(map[string]*types.Namespace),
		PriorityClasses: make(map[string]*types.PriorityClass),
		Secrets:         make(map[string]*types.Secret),
		Histories:       make(map[string][]*types.PodHistoryEntry),
	}
}

// View executes fn under the read lock. fn must not retain references to
// state objects past its return.
func (s *State) View(fn func(d *Data) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.data)
}

// Update executes fn under the write lock. If fn returns an error the
// caller is responsible for not having left partial mutations behind;
// managers validate before mutating for that reason.
func (s *State) Update(fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// Snapshot returns a deep copy of everything except secrets. Secret
// ciphertext stays in memory only; snapshots cross the process boundary.
func (s *State) Snapshot() *types.ClusterSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &types.ClusterSnapshot{
		TakenAt:         time.Now(),
		Nodes:           make([]*types.Node, 0, len(s.data.Nodes)),
		Pods:            make([]*types.Pod, 0, len(s.data.Pods)),
		Packs:           make([]*types.Pack, 0, len(s.data.Packs)),
		Namespaces:      make([]*types.Namespace, 0, len(s.data.Namespaces)),
		PriorityClasses: make([]*types.PriorityClass, 0, len(s.data.PriorityClasses)),
		Histories:       make(map[string][]*types.PodHistoryEntry, len(s.data.Histories)),
	}
	for _, n := range s.data.Nodes {
		snap.Nodes = append(snap.Nodes, n.Clone())
	}
	for _, p := range s.data.Pods {
		snap.Pods = append(snap.Pods, p.Clone())
	}
	for _, p := range s.data.Packs {
		snap.Packs = append(snap.Packs, p.Clone())
	}
	for _, ns := range s.data.Namespaces {
		snap.Namespaces = append(snap.Namespaces, ns.Clone())
	}
	for _, pc := range s.data.PriorityClasses {
		snap.PriorityClasses = append(snap.PriorityClasses, pc.Clone())
	}
	for podID, entries := range s.data.Histories {
		copied := make([]*types.PodHistoryEntry, len(entries))
		for i, e := range entries {
			copied[i] = e.Clone()
		}
		snap.Histories[podID] = copied
	}
	return snap
}

// Restore replaces the current state with the snapshot contents. Secrets
// are untouched: they are not part of snapshots.
func (s *State) Restore(snap *types.ClusterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets := s.data.Secrets
	s.data = newData()
	s.data.Secrets = secrets

	for _, n := range snap.Nodes {
		s.data.Nodes[n.ID] = n.Clone()
	}
	for _, p := range snap.Pods {
		s.data.Pods[p.ID] = p.Clone()
	}
	for _, p := range snap.Packs {
		s.data.Packs[p.ID] = p.Clone()
	}
	for _, ns := range snap.Namespaces {
		s.data.Namespaces[ns.Name] = ns.Clone()
	}
	for _, pc := range snap.PriorityClasses {
		s.data.PriorityClasses[pc.Name] = pc.Clone()
	}
	for podID, entries := range snap.Histories {
		copied := make([]*types.PodHistoryEntry, len(entries))
		for i, e := range entries {
			copied[i] = e.Clone()
		}
		s.data.Histories[podID] = copied
	}
}

// SecretKey builds the map key for a namespaced secret.
func SecretKey(namespace, name string) string {
	return namespace + "/" + name
}

// PodsOnNode returns the pods assigned to nodeID, in no particular order.
func (d *Data) PodsOnNode(nodeID string) []*types.Pod {
	var pods []*types.Pod
	for _, p := range d.Pods {
		if p.NodeID == nodeID {
			pods = append(pods, p)
		}
	}
	return pods
}

// PodsInNamespace returns the pods in the given namespace, in no
// particular order.
func (d *Data) PodsInNamespace(namespace string) []*types.Pod {
	var pods []*types.Pod
	for _, p := range d.Pods {
		if p.Namespace == namespace {
			pods = append(pods, p)
		}
	}
	return pods
}

// AppendHistory records a pod history entry, stamping the timestamp if the
// caller left it zero.
func (d *Data) AppendHistory(podID string, entry *types.PodHistoryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	d.Histories[podID] = append(d.Histories[podID], entry)
}
