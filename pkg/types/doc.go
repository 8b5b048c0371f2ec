/*
Package types defines the core data structures used throughout Croft.

This package contains all fundamental types that represent Croft's domain
model, including packs, nodes, pods, namespaces, priority classes, secrets,
and users. These types are shared by every other package for state
management, scheduling, and orchestration logic.

# Architecture

The types package is the foundation of Croft's data model. It defines:

  - Workload definitions (packs, versions, runtime tags)
  - Node capacity and lifecycle (statuses, taints, schedulability)
  - Pod execution state and lifecycle (statuses, history, tolerations)
  - Scheduling constraints (node selectors, affinity, anti-affinity)
  - Resource accounting (resource lists, quotas, limit ranges)
  - Multi-tenancy primitives (namespaces, priority classes)
  - Security primitives (encrypted secrets, injection specs)
  - Identity primitives (users, roles, sessions)

All types are designed to be:

  - Copyable across the state boundary (deep Clone methods)
  - Self-validating (Valid helpers on every enum)
  - Comparable in tests (plain fields, no hidden state)

# Core Types

Pack is a versioned workload definition. The same pack name may exist at
many versions; each (name, version) pair is a distinct Pack record with its
own runtime requirements and bundle location.

Node is a machine that runs pods. A node advertises Allocatable capacity,
accumulates Allocated usage as pods land on it, and carries taints that
repel pods without matching tolerations. IsSchedulable reports whether the
scheduler may consider the node at all.

Pod is a single desired execution of a pack version inside a namespace.
Pods move through a strict lifecycle (pending through terminal states) and
record every transition in their history.

Namespace scopes pods, secrets, and quota. Reserved namespaces exist from
cluster creation and cannot be deleted.

Secret stores ciphertext only. Plaintext exists in memory just long enough
to be resolved into a SecretPayload for a starting pod.

# Status Lifecycles

Pod statuses form a directed graph rather than a line. The happy path is

	pending -> scheduled -> starting -> running -> stopping -> stopped

with failed and evicted reachable from every non-terminal state. Terminal
states have no outgoing edges; a terminal pod's node assignment is cleared
and PodStatus.IsTerminal reports that it holds no further claim on node
resources.

Node statuses describe liveness and intent:

	online      heartbeating within the timeout
	suspect     missed heartbeats, grace period running
	draining    administratively emptying
	maintenance administratively parked, pods untouched
	unhealthy   liveness grace exhausted, pods failed over
	offline     cleanly disconnected

# Errors

Error is the single structured error type crossing package boundaries. It
carries a stable machine-readable code from the closed ErrorCode set, a
human message, and optional detail fields. Helpers NewError, Errorf,
AsError, CodeOf, and IsCode cover construction and inspection; callers
should match on codes, never on message text.
*/
package types
