/*
Package core assembles the croft control plane.

New wires every subsystem around one shared state and one event broker:
the pack registry, node manager, namespace manager, secret manager, pod
scheduler, and (when an identity provider is configured) the auth
service. The cross-module reactions live here as hooks: a node that
misses its heartbeat deadline fails its pods over, and any operation
that adds schedulable capacity triggers a pending-pod pass.

Start and Stop bracket the background machinery: the broker's dispatch
loop, the heartbeat liveness monitor, session auto-refresh, and the
metrics collector. With a snapshot store attached, Start restores the
last saved cluster state and Stop writes a final snapshot.
*/
package core
