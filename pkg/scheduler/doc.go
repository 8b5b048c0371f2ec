/*
Package scheduler owns the pod lifecycle, from creation through placement
to the terminal states.

# Creation

Create resolves the pack (optionally pinning an explicit version), applies
the namespace's limit-range defaults, validates the result, resolves the
pod's priority class, and reserves namespace quota, all inside one state
closure. Quota is held from creation, not from placement, so a burst of
pending pods can never oversubscribe a namespace. New pods start pending.

# Placement

Schedule filters nodes (schedulability, runtime compatibility, hard taints,
node selector, required node affinity, resources including the pod slot)
and scores the survivors: every node starts at 100 and the configured
policy (spread, binpack, least_loaded, random) plus soft taints and
affinity preferences adjust from there. Ties resolve to the first node in
registration order. When the filter leaves nothing and preemption is
enabled, lower-priority pods are evicted from the first clearable node.

# Lifecycle

Transitions follow a fixed state machine; anything else fails with
INVALID_STATUS_TRANSITION. The three terminal states (stopped, failed,
evicted) release the pod's node and namespace resources exactly once.
FailPodsOnNode is the node manager's unhealthy hook target: it fails every
live pod on a dead node in a single state closure. SchedulePending retries
pending pods when capacity appears, backing off pods that keep missing.
*/
package scheduler
