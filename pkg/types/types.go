package types

import (
	"time"
)

// Pack is an immutable, versioned workload artifact. A pack body never
// changes after registration; only Description and Metadata may be updated,
// and only by the owner. Each (Name, Version) pair is its own Pack with its
// own ID.
type Pack struct {
	ID          string
	Name        string
	Version     string
	RuntimeTag  RuntimeTag
	OwnerID     string
	BundlePath  string
	Description string
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RuntimeTag identifies which node runtimes a pack can execute on.
type RuntimeTag string

const (
	RuntimeTagNode      RuntimeTag = "node"
	RuntimeTagBrowser   RuntimeTag = "browser"
	RuntimeTagUniversal RuntimeTag = "universal"
)

// Valid reports whether the tag is one of the known runtime tags.
func (t RuntimeTag) Valid() bool {
	switch t {
	case RuntimeTagNode, RuntimeTagBrowser, RuntimeTagUniversal:
		return true
	}
	return false
}

// Matches reports whether a pack tagged t can run on a node with the given
// runtime. Universal packs match every runtime.
func (t RuntimeTag) Matches(rt NodeRuntime) bool {
	if t == RuntimeTagUniversal {
		return true
	}
	return string(t) == string(rt)
}

// NodeRuntime is the runtime a worker node provides.
type NodeRuntime string

const (
	NodeRuntimeNode    NodeRuntime = "node"
	NodeRuntimeBrowser NodeRuntime = "browser"
)

// Valid reports whether the runtime is one of the known node runtimes.
func (r NodeRuntime) Valid() bool {
	return r == NodeRuntimeNode || r == NodeRuntimeBrowser
}

// Node is a worker registered with the control plane.
type Node struct {
	ID            string
	Name          string
	Runtime       NodeRuntime
	Status        NodeStatus
	LastHeartbeat time.Time
	ConnectionID  string
	Capabilities  map[string]string
	Allocatable   ResourceList
	Allocated     ResourceList
	Labels        map[string]string
	Annotations   map[string]string
	Taints        []Taint
	Unschedulable bool
	RegisteredBy  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NodeStatus represents the lifecycle state of a node.
type NodeStatus string

const (
	NodeStatusOnline      NodeStatus = "online"
	NodeStatusSuspect     NodeStatus = "suspect"
	NodeStatusDraining    NodeStatus = "draining"
	NodeStatusMaintenance NodeStatus = "maintenance"
	NodeStatusUnhealthy   NodeStatus = "unhealthy"
	NodeStatusOffline     NodeStatus = "offline"
)

// IsSchedulable reports whether pods may be placed on the node: it must be
// online and not cordoned.
func (n *Node) IsSchedulable() bool {
	return n.Status == NodeStatusOnline && !n.Unschedulable
}

// Available returns allocatable minus allocated, clamped at zero.
func (n *Node) Available() ResourceList {
	return n.Allocatable.Sub(n.Allocated)
}

// Pod is a scheduled instance of a Pack. NodeID is non-empty exactly while
// the pod is placed: it is set on scheduling and cleared again when the pod
// reaches a terminal state. The last node a pod ran on survives in its
// history entries' FromNodeID.
type Pod struct {
	ID                string
	PackID            string
	PackVersion       string
	NodeID            string
	Status            PodStatus
	StatusMessage     string
	Namespace         string
	Labels            map[string]string
	Annotations       map[string]string
	PriorityClassName string
	Priority          int
	Tolerations       []Toleration
	Requests          ResourcePair
	Limits            ResourcePair
	Scheduling        *PodScheduling
	CreatedBy         string
	Metadata          map[string]string
	ScheduledAt       time.Time
	StartedAt         time.Time
	StoppedAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PodStatus represents the lifecycle state of a pod.
type PodStatus string

const (
	PodStatusPending   PodStatus = "pending"
	PodStatusScheduled PodStatus = "scheduled"
	PodStatusStarting  PodStatus = "starting"
	PodStatusRunning   PodStatus = "running"
	PodStatusStopping  PodStatus = "stopping"
	PodStatusStopped   PodStatus = "stopped"
	PodStatusFailed    PodStatus = "failed"
	PodStatusEvicted   PodStatus = "evicted"
)

// IsTerminal reports whether the status is one of the terminal states.
// Terminal pods never transition again and hold no resources.
func (s PodStatus) IsTerminal() bool {
	return s == PodStatusStopped || s == PodStatusFailed || s == PodStatusEvicted
}

// HoldsResources reports whether a pod in this status has node and namespace
// resources accounted to it. Quota is reserved from creation, so every
// non-terminal status holds resources.
func (s PodStatus) HoldsResources() bool {
	return !s.IsTerminal()
}

// PodHistoryEntry is one record in a pod's append-only audit log.
type PodHistoryEntry struct {
	Action      HistoryAction
	ActorID     string
	FromStatus  PodStatus
	ToStatus    PodStatus
	FromVersion string
	ToVersion   string
	FromNodeID  string
	ToNodeID    string
	Reason      string
	Message     string
	Timestamp   time.Time
}

// HistoryAction classifies a pod history entry.
type HistoryAction string

const (
	HistoryActionCreated    HistoryAction = "created"
	HistoryActionScheduled  HistoryAction = "scheduled"
	HistoryActionStarted    HistoryAction = "started"
	HistoryActionStopped    HistoryAction = "stopped"
	HistoryActionFailed     HistoryAction = "failed"
	HistoryActionEvicted    HistoryAction = "evicted"
	HistoryActionUpdated    HistoryAction = "updated"
	HistoryActionRolledBack HistoryAction = "rolled_back"
	HistoryActionDeleted    HistoryAction = "deleted"
)

// Namespace is an isolation and accounting boundary. Name doubles as the
// lookup key; ID exists for audit trails.
type Namespace struct {
	ID          string
	Name        string
	Phase       NamespacePhase
	Labels      map[string]string
	Annotations map[string]string
	Quota       *ResourceQuota
	LimitRange  *LimitRange
	Usage       ResourceList
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NamespacePhase represents the lifecycle phase of a namespace.
type NamespacePhase string

const (
	NamespacePhaseActive      NamespacePhase = "active"
	NamespacePhaseTerminating NamespacePhase = "terminating"
)

// PriorityClass is a named priority value consulted at pod creation.
type PriorityClass struct {
	Name             string
	Value            int
	PreemptionPolicy PreemptionPolicy
}

// PreemptionPolicy controls whether pods of a class may preempt others.
type PreemptionPolicy string

const (
	PreemptLowerPriority PreemptionPolicy = "PreemptLowerPriority"
	PreemptNever         PreemptionPolicy = "Never"
)

// AllowsPreemption reports whether pods of the class may trigger preemption.
// The empty policy defaults to PreemptLowerPriority.
func (p PreemptionPolicy) AllowsPreemption() bool {
	return p != PreemptNever
}

// SchedulingPolicy selects the node scoring strategy.
type SchedulingPolicy string

const (
	PolicySpread      SchedulingPolicy = "spread"
	PolicyBinpack     SchedulingPolicy = "binpack"
	PolicyRandom      SchedulingPolicy = "random"
	PolicyLeastLoaded SchedulingPolicy = "least_loaded"
)

// Valid reports whether the policy is one of the known scheduling policies.
func (p SchedulingPolicy) Valid() bool {
	switch p {
	case PolicySpread, PolicyBinpack, PolicyRandom, PolicyLeastLoaded:
		return true
	}
	return false
}

// Secret holds encrypted key-value material. Plaintext is never stored on
// the struct; EncryptedData carries the AES-256-GCM ciphertext with its IV
// and authentication tag alongside.
type Secret struct {
	ID            string
	Name          string
	Namespace     string
	Type          string
	EncryptedData []byte
	IV            []byte
	AuthTag       []byte
	Injection     SecretInjection
	Version       int
	KeyCount      int
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SecretInjection describes how a secret's keys reach a pod: either as
// environment variables or as files under a mount path.
type SecretInjection struct {
	Mode SecretInjectionMode

	// Env mode.
	Prefix     string
	KeyMapping map[string]string

	// Volume mode.
	MountPath   string
	FileMapping map[string]string
}

// SecretInjectionMode selects env or volume injection.
type SecretInjectionMode string

const (
	InjectEnv    SecretInjectionMode = "env"
	InjectVolume SecretInjectionMode = "volume"
)

// SecretInfo is the metadata-only view of a secret returned to callers.
type SecretInfo struct {
	ID        string
	Name      string
	Namespace string
	Type      string
	Injection SecretInjection
	Version   int
	KeyCount  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecretPayload is the resolved, short-lived injection material for a pod.
// Consumers must discard it after injection; it is never serialized.
type SecretPayload struct {
	Env     map[string]string
	Volumes []SecretVolume
}

// SecretVolume is one mounted directory of secret files.
type SecretVolume struct {
	MountPath string
	Files     map[string]string
}

// User is an authenticated principal.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Roles       []Role
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role is a coarse authorization grant. The set is closed.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOperator  Role = "operator"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
	RoleNode      Role = "node"
)

// UserSession is an authenticated session as issued by an AuthProvider.
type UserSession struct {
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the session's access token lifetime has passed.
func (s *UserSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ClusterSnapshot is a point-in-time copy of the serializable cluster state.
// Secrets are deliberately absent: the secrets map never leaves memory.
type ClusterSnapshot struct {
	TakenAt         time.Time
	Nodes           []*Node
	Pods            []*Pod
	Packs           []*Pack
	Namespaces      []*Namespace
	PriorityClasses []*PriorityClass
	Histories       map[string][]*PodHistoryEntry
}
