package node

import (
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// monitor runs the periodic heartbeat liveness sweep.
type monitor struct {
	mgr *Manager

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newMonitor(m *Manager) *monitor {
	return &monitor{mgr: m}
}

// start launches the sweep loop. Double start is a no-op.
func (mon *monitor) start() {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.running {
		return
	}
	mon.running = true
	mon.stopCh = make(chan struct{})
	mon.doneCh = make(chan struct{})
	go mon.run(mon.stopCh, mon.doneCh)
}

// stop halts the loop and waits for the in-flight sweep to finish, so no
// state mutation happens after stop returns. Idempotent.
func (mon *monitor) stop() {
	mon.mu.Lock()
	if !mon.running {
		mon.mu.Unlock()
		return
	}
	mon.running = false
	close(mon.stopCh)
	done := mon.doneCh
	mon.mu.Unlock()
	<-done
}

func (mon *monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(mon.mgr.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := mon.mgr.SweepOnce(); err != nil {
				mon.mgr.logger.Error().Err(err).Msg("liveness sweep reported hook failures")
			}
		case <-stopCh:
			return
		}
	}
}

// SweepOnce runs one heartbeat liveness pass: every node whose last
// heartbeat is strictly older than the timeout, and which is not already
// offline or unhealthy, transitions to unhealthy and fires the unhealthy
// hook exactly once. Hook errors are aggregated and returned; the sweep
// always visits every node.
func (m *Manager) SweepOnce() error {
	type transition struct {
		id   string
		name string
	}
	var stale []transition

	now := time.Now()
	_ = m.state.Update(func(d *state.Data) error {
		for _, n := range d.Nodes {
			if n.Status == types.NodeStatusOffline || n.Status == types.NodeStatusUnhealthy {
				continue
			}
			// A heartbeat exactly at the threshold still counts as alive.
			if now.Sub(n.LastHeartbeat) <= m.cfg.HeartbeatTimeout {
				continue
			}
			n.Status = types.NodeStatusUnhealthy
			n.UpdatedAt = now
			stale = append(stale, transition{id: n.ID, name: n.Name})
		}
		return nil
	})

	metrics.HeartbeatSweeps.Inc()
	metrics.NodesMarkedUnhealthy.Add(float64(len(stale)))

	var errs error
	for _, tr := range stale {
		m.logger.Warn().Str("node", tr.name).Msg("node missed heartbeat deadline, marked unhealthy")
		m.publish(events.New(events.EventNodeUnhealthy, "node unhealthy",
			"node_id", tr.id, "name", tr.name))
		if m.cfg.OnUnhealthy == nil {
			continue
		}
		if err := m.cfg.OnUnhealthy(tr.id, tr.name); err != nil {
			m.logger.Error().Err(err).Str("node", tr.name).Msg("unhealthy hook failed")
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
