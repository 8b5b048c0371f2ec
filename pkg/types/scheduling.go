package types

// Taint repels pods from a node unless they carry a matching toleration.
type Taint struct {
	Key    string
	Value  string
	Effect TaintEffect
}

// TaintEffect determines how strongly a taint repels pods.
type TaintEffect string

const (
	// TaintEffectNoSchedule is a hard filter: intolerant pods are never placed.
	TaintEffectNoSchedule TaintEffect = "NoSchedule"
	// TaintEffectPreferNoSchedule is a soft repellent applied as a score penalty.
	TaintEffectPreferNoSchedule TaintEffect = "PreferNoSchedule"
	// TaintEffectNoExecute filters like NoSchedule and additionally evicts
	// running intolerant pods.
	TaintEffectNoExecute TaintEffect = "NoExecute"
)

// Valid reports whether the effect is one of the known taint effects.
func (e TaintEffect) Valid() bool {
	switch e {
	case TaintEffectNoSchedule, TaintEffectPreferNoSchedule, TaintEffectNoExecute:
		return true
	}
	return false
}

// Toleration is a pod-side acceptance of a taint.
type Toleration struct {
	Key      string
	Operator TolerationOperator
	Value    string
	Effect   TaintEffect
}

// TolerationOperator selects how a toleration matches taint values.
type TolerationOperator string

const (
	// TolerationOpEqual matches key, value, and effect.
	TolerationOpEqual TolerationOperator = "Equal"
	// TolerationOpExists matches any value for the key (and effect when set).
	TolerationOpExists TolerationOperator = "Exists"
)

// Tolerates reports whether the toleration accepts the given taint.
// Exists matches any taint value with the same key; Equal requires the value
// to match as well. An empty toleration effect matches every effect.
func (t Toleration) Tolerates(taint Taint) bool {
	if t.Key != taint.Key {
		return false
	}
	if t.Effect != "" && t.Effect != taint.Effect {
		return false
	}
	switch t.Operator {
	case TolerationOpExists:
		return true
	case TolerationOpEqual, "":
		return t.Value == taint.Value
	}
	return false
}

// PodScheduling carries a pod's placement constraints.
type PodScheduling struct {
	NodeSelector    map[string]string
	NodeAffinity    *NodeAffinity
	PodAffinity     *PodAffinity
	PodAntiAffinity *PodAffinity
}

// NodeAffinity holds hard (Required) and soft (Preferred) node constraints.
// Required terms are ORed: a node passes when at least one term matches in
// full. Preferred terms add their weight to the node's score when matched.
type NodeAffinity struct {
	Required  []NodeSelectorTerm
	Preferred []PreferredSchedulingTerm
}

// NodeSelectorTerm is a conjunction of match expressions: every expression
// must match for the term to match.
type NodeSelectorTerm struct {
	MatchExpressions []NodeSelectorRequirement
}

// NodeSelectorRequirement is a single label predicate over a node.
type NodeSelectorRequirement struct {
	Key      string
	Operator NodeSelectorOperator
	Values   []string
}

// NodeSelectorOperator is the comparison used by a NodeSelectorRequirement.
type NodeSelectorOperator string

const (
	NodeSelectorOpIn           NodeSelectorOperator = "In"
	NodeSelectorOpNotIn        NodeSelectorOperator = "NotIn"
	NodeSelectorOpExists       NodeSelectorOperator = "Exists"
	NodeSelectorOpDoesNotExist NodeSelectorOperator = "DoesNotExist"
	NodeSelectorOpGt           NodeSelectorOperator = "Gt"
	NodeSelectorOpLt           NodeSelectorOperator = "Lt"
)

// PreferredSchedulingTerm weights a node selector term for scoring.
type PreferredSchedulingTerm struct {
	Weight     int
	Preference NodeSelectorTerm
}

// PodAffinity expresses a soft preference for (or, as anti-affinity,
// against) co-locating a pod with pods matching a label selector. Only
// preferred terms exist; hard pod affinity is not part of the model.
type PodAffinity struct {
	Preferred []WeightedPodAffinityTerm
}

// WeightedPodAffinityTerm matches pods on a node by exact label values.
type WeightedPodAffinityTerm struct {
	Weight      int
	MatchLabels map[string]string
}

// MatchesPod reports whether every label in the term is present on the pod
// with an equal value. An empty selector matches nothing.
func (t WeightedPodAffinityTerm) MatchesPod(pod *Pod) bool {
	if len(t.MatchLabels) == 0 {
		return false
	}
	for k, v := range t.MatchLabels {
		if pod.Labels[k] != v {
			return false
		}
	}
	return true
}
