/*
Package events provides an in-memory event broker for Croft's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting cluster
events to interested subscribers. It supports asynchronous event delivery with
per-subscriber buffering, enabling loose coupling between Croft components for
state changes, notifications, and monitoring.

# Architecture

Croft's event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Pod Events:                                │          │
	│  │    - pod.created, pod.scheduled             │          │
	│  │    - pod.started, pod.stopped               │          │
	│  │    - pod.failed, pod.evicted                │          │
	│  │    - pod.deleted, pod.rolled_back           │          │
	│  │                                              │          │
	│  │  Node Events:                               │          │
	│  │    - node.registered, node.reconnected      │          │
	│  │    - node.offline, node.unhealthy           │          │
	│  │    - node.cordoned, node.uncordoned         │          │
	│  │    - node.draining                          │          │
	│  │                                              │          │
	│  │  Resource Events:                           │          │
	│  │    - namespace.created/terminating/deleted  │          │
	│  │    - pack.registered, pack.deleted          │          │
	│  │    - secret.created/updated/deleted         │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  Core: retry pending pods on capacity gain  │          │
	│  │  Metrics: count events for dashboards       │          │
	│  │  Watch streams: push to clients (future)    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Delivery Semantics

Publish never blocks the caller: events flow through a buffered main
channel and a broadcast loop fans them out. A subscriber whose buffer is
full misses that event; the broker favors liveness of the control plane
over completeness of any one listener. Events are advisory signals, not a
durable changelog. The pod history (see pkg/scheduler) is the durable
audit trail.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for e := range sub {
			fmt.Println(e.Type, e.Message)
		}
	}()

	broker.Publish(events.New(events.EventNodeRegistered,
		"node worker-1 registered", "node_id", "node-1"))
*/
package events
