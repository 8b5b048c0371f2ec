package namespace

import (
	"time"

	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// AxisUsage describes one exceeded quota axis.
type AxisUsage struct {
	Axis      string
	Requested int64
	Remaining int64
}

// QuotaCheck is the result of a quota evaluation. Remaining carries a value
// per bounded axis only; unbounded axes are nil.
type QuotaCheck struct {
	Allowed   bool
	Remaining types.QuotaAxes
	Exceeded  []AxisUsage
}

// CheckQuota evaluates whether the namespace can absorb the given usage
// delta. It never mutates state.
func (m *Manager) CheckQuota(name string, required types.ResourceList) (QuotaCheck, error) {
	var check QuotaCheck
	err := m.state.View(func(d *state.Data) error {
		ns, ok := d.Namespaces[name]
		if !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
		}
		check = evaluateQuota(ns, required)
		return nil
	})
	return check, err
}

// AllocateQuota atomically checks and increments the namespace's resource
// usage, failing with QUOTA_EXCEEDED when any axis would overflow.
func (m *Manager) AllocateQuota(name string, required types.ResourceList) error {
	return m.state.Update(func(d *state.Data) error {
		return m.AllocateQuotaTx(d, name, required)
	})
}

// ReleaseQuota decrements the namespace's resource usage, clamping every
// axis at zero.
func (m *Manager) ReleaseQuota(name string, released types.ResourceList) error {
	return m.state.Update(func(d *state.Data) error {
		return m.ReleaseQuotaTx(d, name, released)
	})
}

// CheckQuotaTx is CheckQuota for callers already inside a state closure.
// The scheduler composes it with pod creation so check and increment are a
// single serialized step.
func (m *Manager) CheckQuotaTx(d *state.Data, name string, required types.ResourceList) (QuotaCheck, error) {
	ns, ok := d.Namespaces[name]
	if !ok {
		return QuotaCheck{}, types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
	}
	return evaluateQuota(ns, required), nil
}

// AllocateQuotaTx is AllocateQuota for callers already inside a state
// closure.
func (m *Manager) AllocateQuotaTx(d *state.Data, name string, required types.ResourceList) error {
	ns, ok := d.Namespaces[name]
	if !ok {
		return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
	}
	check := evaluateQuota(ns, required)
	if !check.Allowed {
		err := types.Errorf(types.CodeQuotaExceeded, "namespace %s quota exceeded", name)
		return err.WithDetail("exceededResources", check.Exceeded)
	}
	ns.Usage = ns.Usage.Add(required)
	ns.UpdatedAt = time.Now()
	return nil
}

// ReleaseQuotaTx is ReleaseQuota for callers already inside a state closure.
func (m *Manager) ReleaseQuotaTx(d *state.Data, name string, released types.ResourceList) error {
	ns, ok := d.Namespaces[name]
	if !ok {
		return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
	}
	ns.Usage = ns.Usage.Sub(released)
	ns.UpdatedAt = time.Now()
	return nil
}

// evaluateQuota compares required against the namespace's remaining quota.
// Unset axes are unbounded and never appear in the result. Allocation at the
// exact limit is allowed; one unit over is not.
func evaluateQuota(ns *types.Namespace, required types.ResourceList) QuotaCheck {
	check := QuotaCheck{Allowed: true}
	if ns.Quota == nil {
		return check
	}

	axis := func(name string, hard *int64, used, requested int64) *int64 {
		if hard == nil {
			return nil
		}
		remaining := *hard - used
		if remaining < 0 {
			remaining = 0
		}
		if requested > remaining {
			check.Allowed = false
			check.Exceeded = append(check.Exceeded, AxisUsage{
				Axis:      name,
				Requested: requested,
				Remaining: remaining,
			})
		}
		return types.Int64Ptr(remaining)
	}

	hard := ns.Quota.Hard
	check.Remaining.Pods = axis("pods", hard.Pods, ns.Usage.Pods, required.Pods)
	check.Remaining.CPU = axis("cpu", hard.CPU, ns.Usage.CPU, required.CPU)
	check.Remaining.Memory = axis("memory", hard.Memory, ns.Usage.Memory, required.Memory)
	check.Remaining.Storage = axis("storage", hard.Storage, ns.Usage.Storage, required.Storage)
	return check
}
