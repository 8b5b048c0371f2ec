package node

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// UnhealthyHook is invoked exactly once per node transition into the
// unhealthy status. Errors are logged but never abort the liveness sweep.
type UnhealthyHook func(nodeID, nodeName string) error

// CapacityHook is invoked after an operation that may have added schedulable
// capacity: registration, reconnect, uncordon. The core wires it to the
// scheduler's pending-pod pass.
type CapacityHook func()

// Config parameterizes the node manager.
type Config struct {
	HeartbeatTimeout time.Duration
	CheckInterval    time.Duration
	EnableMonitoring bool
	OnUnhealthy      UnhealthyHook
	OnCapacityAdded  CapacityHook
}

// Manager owns node registration, heartbeats, liveness, status transitions,
// labels and taints, and per-node resource accounting.
type Manager struct {
	state  *state.State
	cfg    Config
	broker *events.Broker
	logger zerolog.Logger

	monitor *monitor
}

// New creates a node manager. The liveness monitor is constructed but not
// started; call StartMonitor.
func New(st *state.State, broker *events.Broker, cfg Config) *Manager {
	m := &Manager{
		state:  st,
		cfg:    cfg,
		broker: broker,
		logger: log.WithComponent("node"),
	}
	m.monitor = newMonitor(m)
	return m
}

// RegisterInput is the request to register a new node.
type RegisterInput struct {
	Name         string
	Runtime      types.NodeRuntime
	ConnectionID string
	Capabilities map[string]string
	Allocatable  types.ResourceList
	Labels       map[string]string
	Annotations  map[string]string
	Taints       []types.Taint
}

// Register adds a worker to the cluster. Names are cluster-unique.
func (m *Manager) Register(input RegisterInput, userID string) (*types.Node, error) {
	if input.Name == "" {
		return nil, types.NewError(types.CodeValidation, "node name is required")
	}
	if !input.Runtime.Valid() {
		return nil, types.Errorf(types.CodeValidation, "unknown node runtime %q", input.Runtime)
	}

	now := time.Now()
	node := &types.Node{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Runtime:       input.Runtime,
		Status:        types.NodeStatusOnline,
		LastHeartbeat: now,
		ConnectionID:  input.ConnectionID,
		Capabilities:  input.Capabilities,
		Allocatable:   input.Allocatable,
		Labels:        input.Labels,
		Annotations:   input.Annotations,
		Taints:        input.Taints,
		RegisteredBy:  userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := m.state.Update(func(d *state.Data) error {
		for _, existing := range d.Nodes {
			if existing.Name == node.Name {
				return types.Errorf(types.CodeNodeExists, "node %s is already registered", node.Name)
			}
		}
		d.Nodes[node.ID] = node.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("node", node.Name).Str("runtime", string(node.Runtime)).Msg("node registered")
	m.publish(events.New(events.EventNodeRegistered, "node registered",
		"node_id", node.ID, "name", node.Name))
	m.capacityAdded()
	return node, nil
}

// Reconnect brings a node back online with a fresh connection.
func (m *Manager) Reconnect(nodeID, connectionID string) (*types.Node, error) {
	var node *types.Node
	err := m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		n.Status = types.NodeStatusOnline
		n.ConnectionID = connectionID
		n.LastHeartbeat = time.Now()
		n.UpdatedAt = n.LastHeartbeat
		node = n.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info().Str("node", node.Name).Msg("node reconnected")
	m.publish(events.New(events.EventNodeReconnected, "node reconnected",
		"node_id", node.ID, "name", node.Name))
	m.capacityAdded()
	return node, nil
}

// Heartbeat is the message a node agent sends periodically. Status and
// Allocated are partial overrides; nil leaves the current value.
type Heartbeat struct {
	NodeID    string
	Status    *types.NodeStatus
	Allocated *types.ResourceList
}

// ProcessHeartbeat refreshes a node's liveness timestamp and applies any
// overrides carried in the message. The timestamp is the receive time.
func (m *Manager) ProcessHeartbeat(hb Heartbeat) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[hb.NodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", hb.NodeID)
		}
		n.LastHeartbeat = time.Now()
		if hb.Status != nil {
			n.Status = *hb.Status
		}
		if hb.Allocated != nil {
			n.Allocated = *hb.Allocated
		}
		n.UpdatedAt = n.LastHeartbeat
		return nil
	})
}

// Disconnect marks a node offline and clears its connection.
func (m *Manager) Disconnect(nodeID string) error {
	var name string
	err := m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		n.Status = types.NodeStatusOffline
		n.ConnectionID = ""
		n.UpdatedAt = time.Now()
		name = n.Name
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info().Str("node", name).Msg("node disconnected")
	m.publish(events.New(events.EventNodeOffline, "node disconnected", "node_id", nodeID))
	return nil
}

// Deregister removes a node. Only the user who registered it may do so.
func (m *Manager) Deregister(nodeID, requesterID string) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		if n.RegisteredBy != requesterID {
			return types.Errorf(types.CodeForbidden,
				"node %s was not registered by the requester", n.Name)
		}
		delete(d.Nodes, nodeID)
		return nil
	})
}

// Cordon marks a node unschedulable without changing its status.
func (m *Manager) Cordon(nodeID string) error {
	err := m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		n.Unschedulable = true
		n.UpdatedAt = time.Now()
		return nil
	})
	if err == nil {
		m.publish(events.New(events.EventNodeCordoned, "node cordoned", "node_id", nodeID))
	}
	return err
}

// Uncordon returns a node to online and schedulable.
func (m *Manager) Uncordon(nodeID string) error {
	err := m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		n.Status = types.NodeStatusOnline
		n.Unschedulable = false
		n.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}
	m.publish(events.New(events.EventNodeUncordoned, "node uncordoned", "node_id", nodeID))
	m.capacityAdded()
	return nil
}

// Drain moves a node to draining and marks it unschedulable.
func (m *Manager) Drain(nodeID string) error {
	err := m.setStatus(nodeID, types.NodeStatusDraining, true)
	if err == nil {
		m.publish(events.New(events.EventNodeDraining, "node draining", "node_id", nodeID))
	}
	return err
}

// SetMaintenance moves a node to maintenance and marks it unschedulable.
func (m *Manager) SetMaintenance(nodeID string) error {
	return m.setStatus(nodeID, types.NodeStatusMaintenance, true)
}

// MarkSuspect flags a node as suspect without affecting schedulability of
// already-placed pods; suspect nodes receive no new pods.
func (m *Manager) MarkSuspect(nodeID string) error {
	return m.setStatus(nodeID, types.NodeStatusSuspect, false)
}

func (m *Manager) setStatus(nodeID string, status types.NodeStatus, unschedulable bool) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		n.Status = status
		if unschedulable {
			n.Unschedulable = true
		}
		n.UpdatedAt = time.Now()
		return nil
	})
}

// AddLabel sets a label. Idempotent on key.
func (m *Manager) AddLabel(nodeID, key, value string) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		if n.Labels == nil {
			n.Labels = make(map[string]string)
		}
		n.Labels[key] = value
		n.UpdatedAt = time.Now()
		return nil
	})
}

// RemoveLabel deletes a label. Removing an absent key is a no-op.
func (m *Manager) RemoveLabel(nodeID, key string) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		delete(n.Labels, key)
		n.UpdatedAt = time.Now()
		return nil
	})
}

// AddTaint adds a taint. Idempotent on (key, value, effect).
func (m *Manager) AddTaint(nodeID string, taint types.Taint) error {
	if !taint.Effect.Valid() {
		return types.Errorf(types.CodeValidation, "unknown taint effect %q", taint.Effect)
	}
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		for _, t := range n.Taints {
			if t == taint {
				return nil
			}
		}
		n.Taints = append(n.Taints, taint)
		n.UpdatedAt = time.Now()
		return nil
	})
}

// RemoveTaint removes a taint matching (key, value, effect) exactly.
func (m *Manager) RemoveTaint(nodeID string, taint types.Taint) error {
	return m.state.Update(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		out := n.Taints[:0]
		for _, t := range n.Taints {
			if t != taint {
				out = append(out, t)
			}
		}
		n.Taints = out
		n.UpdatedAt = time.Now()
		return nil
	})
}

// AllocateResources atomically checks capacity and increments the node's
// allocation. AllocateTx is the in-closure variant the scheduler uses.
func (m *Manager) AllocateResources(nodeID string, req types.ResourceList) error {
	return m.state.Update(func(d *state.Data) error {
		return AllocateTx(d, nodeID, req)
	})
}

// ReleaseResources decrements the node's allocation, clamping at zero.
func (m *Manager) ReleaseResources(nodeID string, req types.ResourceList) error {
	return m.state.Update(func(d *state.Data) error {
		return ReleaseTx(d, nodeID, req)
	})
}

// AllocateTx performs a check-and-increment on a node's allocation inside a
// caller-owned state closure.
func AllocateTx(d *state.Data, nodeID string, req types.ResourceList) error {
	n, ok := d.Nodes[nodeID]
	if !ok {
		return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
	}
	if !n.Allocated.Add(req).FitsWithin(n.Allocatable) {
		return types.Errorf(types.CodeValidation,
			"node %s lacks capacity for the requested resources", n.Name)
	}
	n.Allocated = n.Allocated.Add(req)
	n.UpdatedAt = time.Now()
	return nil
}

// ReleaseTx decrements a node's allocation inside a caller-owned state
// closure, clamping at zero.
func ReleaseTx(d *state.Data, nodeID string, req types.ResourceList) error {
	n, ok := d.Nodes[nodeID]
	if !ok {
		return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
	}
	n.Allocated = n.Allocated.Sub(req)
	n.UpdatedAt = time.Now()
	return nil
}

// Get returns a node by ID.
func (m *Manager) Get(nodeID string) (*types.Node, error) {
	var node *types.Node
	err := m.state.View(func(d *state.Data) error {
		n, ok := d.Nodes[nodeID]
		if !ok {
			return types.Errorf(types.CodeNodeNotFound, "node %s not found", nodeID)
		}
		node = n.Clone()
		return nil
	})
	return node, err
}

// GetByName returns a node by its cluster-unique name.
func (m *Manager) GetByName(name string) (*types.Node, error) {
	var node *types.Node
	err := m.state.View(func(d *state.Data) error {
		for _, n := range d.Nodes {
			if n.Name == name {
				node = n.Clone()
				return nil
			}
		}
		return types.Errorf(types.CodeNodeNotFound, "node %s not found", name)
	})
	return node, err
}

// List returns all nodes in unspecified order.
func (m *Manager) List() []*types.Node {
	var out []*types.Node
	_ = m.state.View(func(d *state.Data) error {
		for _, n := range d.Nodes {
			out = append(out, n.Clone())
		}
		return nil
	})
	return out
}

// SchedulableNodes returns the nodes currently accepting pods.
func (m *Manager) SchedulableNodes() []*types.Node {
	var out []*types.Node
	_ = m.state.View(func(d *state.Data) error {
		for _, n := range d.Nodes {
			if n.IsSchedulable() {
				out = append(out, n.Clone())
			}
		}
		return nil
	})
	return out
}

// StartMonitor launches the liveness sweep loop. No-op when monitoring is
// disabled or already running.
func (m *Manager) StartMonitor() {
	if !m.cfg.EnableMonitoring {
		return
	}
	m.monitor.start()
}

// StopMonitor stops the liveness loop and waits for it to exit. Idempotent.
func (m *Manager) StopMonitor() {
	m.monitor.stop()
}

func (m *Manager) publish(event *events.Event) {
	if m.broker != nil {
		m.broker.Publish(event)
	}
}

func (m *Manager) capacityAdded() {
	if m.cfg.OnCapacityAdded != nil {
		m.cfg.OnCapacityAdded()
	}
}
