/*
Package node manages Croft's worker fleet.

The manager owns node registration and reconnect, heartbeat processing,
status transitions (online, suspect, draining, maintenance, unhealthy,
offline), cordon and drain, labels and taints, and per-node resource
accounting with allocated <= allocatable enforced on every allocation.

# Liveness

A periodic sweep compares each node's last heartbeat against the configured
timeout. Nodes strictly past the deadline transition to unhealthy and fire
the OnUnhealthy hook exactly once per transition; the core wires that hook
to the scheduler's failover path so pods on a dead node are failed and their
resources released. Hook failures are logged and aggregated without aborting
the sweep. The loop is stoppable and waits for the in-flight sweep on stop,
so no state mutation happens after teardown.

A node is schedulable iff it is online and not cordoned. Registration,
reconnect, and uncordon fire the OnCapacityAdded hook, which the core uses
to retry pending pods when capacity appears.
*/
package node
