/*
Package config loads and validates Croft's YAML configuration.

The configuration is a single file covering every manager. Load starts
from Default and lets the file override individual keys, so a minimal
deployment needs no file at all:

	cfg, err := config.Load("/etc/croft/croft.yaml")

All durations are plain millisecond integers in the file
(heartbeatTimeoutMs and friends); typed accessors convert them to
time.Duration for callers.

The secrets master key should come from the CROFT_MASTER_KEY environment
variable rather than the file. When both are present the environment wins,
and Dump always redacts it.
*/
package config
