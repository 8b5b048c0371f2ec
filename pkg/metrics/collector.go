package metrics

import (
	"time"

	"github.com/croftlabs/croft/pkg/state"
)

// Collector periodically snapshots cluster inventory gauges from state.
// Counters and histograms are updated inline by the managers; only the
// by-status gauges need polling.
type Collector struct {
	state    *state.State
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a collector polling every interval. A zero interval
// defaults to 15 seconds.
func NewCollector(st *state.State, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		state:    st,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins collecting. The first collection happens immediately.
func (c *Collector) Start() {
	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Collector) collect() {
	type nodeKey struct{ runtime, status string }
	type podKey struct{ namespace, status string }

	nodeCounts := make(map[nodeKey]int)
	podCounts := make(map[podKey]int)
	var namespaces, packs, secrets int

	_ = c.state.View(func(d *state.Data) error {
		for _, n := range d.Nodes {
			nodeCounts[nodeKey{string(n.Runtime), string(n.Status)}]++
		}
		for _, p := range d.Pods {
			podCounts[podKey{p.Namespace, string(p.Status)}]++
		}
		namespaces = len(d.Namespaces)
		packs = len(d.Packs)
		secrets = len(d.Secrets)
		return nil
	})

	// Reset before writing so label combinations that emptied out
	// disappear instead of reporting stale counts.
	NodesByStatus.Reset()
	for k, count := range nodeCounts {
		NodesByStatus.WithLabelValues(k.runtime, k.status).Set(float64(count))
	}
	PodsByStatus.Reset()
	for k, count := range podCounts {
		PodsByStatus.WithLabelValues(k.namespace, k.status).Set(float64(count))
	}
	NamespacesTotal.Set(float64(namespaces))
	PacksTotal.Set(float64(packs))
	SecretsTotal.Set(float64(secrets))
}
