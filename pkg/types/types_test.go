package types

import (
	"testing"
	"time"
)

func TestRuntimeTagMatches(t *testing.T) {
	tests := []struct {
		tag     RuntimeTag
		runtime NodeRuntime
		want    bool
	}{
		{RuntimeNode, NodeRuntimeNode, true},
		{RuntimeNode, NodeRuntimeBrowser, false},
		{RuntimeBrowser, NodeRuntimeBrowser, true},
		{RuntimeBrowser, NodeRuntimeNode, false},
		{RuntimeUniversal, NodeRuntimeNode, true},
		{RuntimeUniversal, NodeRuntimeBrowser, true},
	}

	for _, tt := range tests {
		if got := tt.tag.Matches(tt.runtime); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.tag, tt.runtime, got, tt.want)
		}
	}
}

func TestRuntimeTagValid(t *testing.T) {
	for _, tag := range []RuntimeTag{RuntimeNode, RuntimeBrowser, RuntimeUniversal} {
		if !tag.Valid() {
			t.Errorf("tag %q should be valid", tag)
		}
	}
	if RuntimeTag("wasm").Valid() {
		t.Error("unknown tag should be invalid")
	}
}

func TestPodStatusIsTerminal(t *testing.T) {
	terminal := map[PodStatus]bool{
		PodStatusPending:   false,
		PodStatusScheduled: false,
		PodStatusStarting:  false,
		PodStatusRunning:   false,
		PodStatusStopping:  false,
		PodStatusStopped:   true,
		PodStatusFailed:    true,
		PodStatusEvicted:   true,
	}

	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
		// A pod holds node resources exactly until it reaches a terminal state.
		if got := status.HoldsResources(); got == want {
			t.Errorf("%s.HoldsResources() = %v, want %v", status, got, !want)
		}
	}
}

func TestNodeIsSchedulable(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"online", Node{Status: NodeStatusOnline}, true},
		{"online but cordoned", Node{Status: NodeStatusOnline, Unschedulable: true}, false},
		{"suspect", Node{Status: NodeStatusSuspect}, false},
		{"draining", Node{Status: NodeStatusDraining}, false},
		{"maintenance", Node{Status: NodeStatusMaintenance}, false},
		{"unhealthy", Node{Status: NodeStatusUnhealthy}, false},
		{"offline", Node{Status: NodeStatusOffline}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsSchedulable(); got != tt.want {
				t.Errorf("IsSchedulable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreemptionPolicyAllowsPreemption(t *testing.T) {
	if !PreemptLowerPriority.AllowsPreemption() {
		t.Error("PreemptLowerPriority should allow preemption")
	}
	if PreemptNever.AllowsPreemption() {
		t.Error("Never should not allow preemption")
	}
	// Unset policy keeps the permissive default.
	if !PreemptionPolicy("").AllowsPreemption() {
		t.Error("empty policy should allow preemption")
	}
}

func TestUserSessionExpired(t *testing.T) {
	now := time.Now()
	live := UserSession{ExpiresAt: now.Add(time.Hour)}
	dead := UserSession{ExpiresAt: now.Add(-time.Second)}

	if live.Expired(now) {
		t.Error("session expiring in an hour should be live")
	}
	if !dead.Expired(now) {
		t.Error("session past its expiry should be expired")
	}
}

func TestUserHasRole(t *testing.T) {
	u := &User{Roles: []Role{RoleOperator, RoleDeveloper}}
	if !u.HasRole(RoleDeveloper) {
		t.Error("user should have developer role")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("user should not have admin role")
	}
}

func TestSchedulingPolicyValid(t *testing.T) {
	for _, p := range []SchedulingPolicy{PolicySpread, PolicyBinpack, PolicyRandom, PolicyLeastLoaded} {
		if !p.Valid() {
			t.Errorf("policy %q should be valid", p)
		}
	}
	if SchedulingPolicy("chaos").Valid() {
		t.Error("unknown policy should be invalid")
	}
}
