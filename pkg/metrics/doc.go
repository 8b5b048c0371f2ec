/*
Package metrics provides Prometheus metrics, health checking, and the
corresponding HTTP handlers for Croft.

All metrics carry the croft_ prefix and register against the default
Prometheus registry at package init. Counters and histograms (scheduling
latency and attempts, preemptions, quota rejections, failover counts,
heartbeat sweeps) are updated inline by the packages that own the events.
The inventory gauges (nodes, pods, namespaces, packs, secrets) are polled
by the Collector, which snapshots cluster state on a ticker and resets the
by-status vectors each pass so emptied label combinations do not go stale.

# Endpoints

	/metrics  Prometheus text exposition (Handler)
	/health   aggregate component health, 503 when any component is down
	/ready    critical components only, 503 until all have registered
	/live     process liveness, always 200

Components report in through RegisterComponent/UpdateComponent. Which
components gate readiness is set by the core at startup via
SetCriticalComponents, since some subsystems (the bbolt store, the metrics
listener itself) are optional.

# Timers

Timer captures a start timestamp for histogram observations:

	timer := metrics.StartTimer()
	defer timer.Observe(metrics.SchedulingLatency)
*/
package metrics
