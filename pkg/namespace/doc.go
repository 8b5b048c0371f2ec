/*
Package namespace manages Croft's isolation and accounting boundaries.

Three reserved namespaces (default, croft-system, croft-public) are created
at startup and survive every deletion attempt; default additionally refuses
termination. User namespaces move through a two-phase lifecycle,
active → terminating, where a terminating namespace rejects updates and new
pods.

# Quota

A namespace may carry a hard resource quota over pods, cpu, memory, and
storage. Unset axes are unbounded. Quota is evaluated and incremented as a
single serialized step; the *Tx variants run inside a caller-owned state
closure so the scheduler can compose quota allocation with pod creation
atomically. Usage release clamps at zero.

# Limit ranges

ApplyDefaults and ValidateResources are pure functions of a namespace's
limit-range snapshot: defaults fill unset pod requests and limits, and
validation enforces min <= requests, limits <= max, requests <= limits.
*/
package namespace
