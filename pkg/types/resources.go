package types

// ResourceList is a bundle of the four resource axes tracked per node and
// per namespace. CPU is in millicores, Memory and Storage in MiB, Pods is a
// count. A zero component means "none" in usage contexts and "unset" in
// limit-range contexts.
type ResourceList struct {
	CPU     int64
	Memory  int64
	Pods    int64
	Storage int64
}

// Add returns r plus o, component-wise.
func (r ResourceList) Add(o ResourceList) ResourceList {
	return ResourceList{
		CPU:     r.CPU + o.CPU,
		Memory:  r.Memory + o.Memory,
		Pods:    r.Pods + o.Pods,
		Storage: r.Storage + o.Storage,
	}
}

// Sub returns r minus o, clamping every component at zero. Release paths
// rely on the clamp: over-release never drives usage negative.
func (r ResourceList) Sub(o ResourceList) ResourceList {
	return ResourceList{
		CPU:     clampZero(r.CPU - o.CPU),
		Memory:  clampZero(r.Memory - o.Memory),
		Pods:    clampZero(r.Pods - o.Pods),
		Storage: clampZero(r.Storage - o.Storage),
	}
}

// FitsWithin reports whether every component of r is at most the matching
// component of limit.
func (r ResourceList) FitsWithin(limit ResourceList) bool {
	return r.CPU <= limit.CPU &&
		r.Memory <= limit.Memory &&
		r.Pods <= limit.Pods &&
		r.Storage <= limit.Storage
}

// IsZero reports whether all components are zero.
func (r ResourceList) IsZero() bool {
	return r == ResourceList{}
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ResourcePair is a cpu/memory quantity pair used for pod requests, pod
// limits, and limit-range bounds. Zero means unset.
type ResourcePair struct {
	CPU    int64
	Memory int64
}

// IsZero reports whether both components are zero.
func (p ResourcePair) IsZero() bool {
	return p == ResourcePair{}
}

// AsList converts the pair into a ResourceList with the given pod count.
func (p ResourcePair) AsList(pods int64) ResourceList {
	return ResourceList{CPU: p.CPU, Memory: p.Memory, Pods: pods}
}

// ResourceQuota caps a namespace's aggregate resource usage.
type ResourceQuota struct {
	Hard QuotaAxes
}

// QuotaAxes holds the optional per-axis hard caps. A nil axis is unbounded;
// an explicit zero is a valid cap (for example Pods=0 denies all pods).
type QuotaAxes struct {
	Pods    *int64
	CPU     *int64
	Memory  *int64
	Storage *int64
}

// Int64Ptr is a convenience for building QuotaAxes literals.
func Int64Ptr(v int64) *int64 { return &v }

// LimitRange constrains and defaults per-pod cpu/memory values within a
// namespace. Zero components are unset and impose nothing.
type LimitRange struct {
	// Default fills unset pod limits.
	Default ResourcePair
	// DefaultRequest fills unset pod requests.
	DefaultRequest ResourcePair
	// Min is the lower bound on pod requests.
	Min ResourcePair
	// Max is the upper bound on pod limits.
	Max ResourcePair
}
