package types

// Deep copies for every entity that crosses the state boundary. The state
// hands out clones so callers can never mutate cluster state outside a
// serialized update.

// Clone returns a deep copy of the pack.
func (p *Pack) Clone() *Pack {
	if p == nil {
		return nil
	}
	out := *p
	out.Metadata = copyStringMap(p.Metadata)
	return &out
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Capabilities = copyStringMap(n.Capabilities)
	out.Labels = copyStringMap(n.Labels)
	out.Annotations = copyStringMap(n.Annotations)
	if n.Taints != nil {
		out.Taints = make([]Taint, len(n.Taints))
		copy(out.Taints, n.Taints)
	}
	return &out
}

// Clone returns a deep copy of the pod.
func (p *Pod) Clone() *Pod {
	if p == nil {
		return nil
	}
	out := *p
	out.Labels = copyStringMap(p.Labels)
	out.Annotations = copyStringMap(p.Annotations)
	out.Metadata = copyStringMap(p.Metadata)
	if p.Tolerations != nil {
		out.Tolerations = make([]Toleration, len(p.Tolerations))
		copy(out.Tolerations, p.Tolerations)
	}
	out.Scheduling = p.Scheduling.Clone()
	return &out
}

// Clone returns a deep copy of the scheduling constraints.
func (s *PodScheduling) Clone() *PodScheduling {
	if s == nil {
		return nil
	}
	out := &PodScheduling{
		NodeSelector:    copyStringMap(s.NodeSelector),
		NodeAffinity:    s.NodeAffinity.Clone(),
		PodAffinity:     s.PodAffinity.Clone(),
		PodAntiAffinity: s.PodAntiAffinity.Clone(),
	}
	return out
}

// Clone returns a deep copy of the node affinity.
func (a *NodeAffinity) Clone() *NodeAffinity {
	if a == nil {
		return nil
	}
	out := &NodeAffinity{}
	for _, term := range a.Required {
		out.Required = append(out.Required, term.clone())
	}
	for _, pref := range a.Preferred {
		out.Preferred = append(out.Preferred, PreferredSchedulingTerm{
			Weight:     pref.Weight,
			Preference: pref.Preference.clone(),
		})
	}
	return out
}

func (t NodeSelectorTerm) clone() NodeSelectorTerm {
	out := NodeSelectorTerm{}
	for _, expr := range t.MatchExpressions {
		c := NodeSelectorRequirement{Key: expr.Key, Operator: expr.Operator}
		if expr.Values != nil {
			c.Values = make([]string, len(expr.Values))
			copy(c.Values, expr.Values)
		}
		out.MatchExpressions = append(out.MatchExpressions, c)
	}
	return out
}

// Clone returns a deep copy of the pod affinity.
func (a *PodAffinity) Clone() *PodAffinity {
	if a == nil {
		return nil
	}
	out := &PodAffinity{}
	for _, term := range a.Preferred {
		out.Preferred = append(out.Preferred, WeightedPodAffinityTerm{
			Weight:      term.Weight,
			MatchLabels: copyStringMap(term.MatchLabels),
		})
	}
	return out
}

// Clone returns a deep copy of the namespace.
func (ns *Namespace) Clone() *Namespace {
	if ns == nil {
		return nil
	}
	out := *ns
	out.Labels = copyStringMap(ns.Labels)
	out.Annotations = copyStringMap(ns.Annotations)
	if ns.Quota != nil {
		q := ResourceQuota{Hard: QuotaAxes{
			Pods:    copyInt64Ptr(ns.Quota.Hard.Pods),
			CPU:     copyInt64Ptr(ns.Quota.Hard.CPU),
			Memory:  copyInt64Ptr(ns.Quota.Hard.Memory),
			Storage: copyInt64Ptr(ns.Quota.Hard.Storage),
		}}
		out.Quota = &q
	}
	if ns.LimitRange != nil {
		lr := *ns.LimitRange
		out.LimitRange = &lr
	}
	return &out
}

// Clone returns a copy of the priority class.
func (pc *PriorityClass) Clone() *PriorityClass {
	if pc == nil {
		return nil
	}
	out := *pc
	return &out
}

// Clone returns a deep copy of the secret, including the encrypted material.
func (s *Secret) Clone() *Secret {
	if s == nil {
		return nil
	}
	out := *s
	out.EncryptedData = copyBytes(s.EncryptedData)
	out.IV = copyBytes(s.IV)
	out.AuthTag = copyBytes(s.AuthTag)
	out.Injection = s.Injection.clone()
	return &out
}

func (i SecretInjection) clone() SecretInjection {
	out := i
	out.KeyMapping = copyStringMap(i.KeyMapping)
	out.FileMapping = copyStringMap(i.FileMapping)
	return out
}

// Info returns the metadata-only view of the secret.
func (s *Secret) Info() SecretInfo {
	return SecretInfo{
		ID:        s.ID,
		Name:      s.Name,
		Namespace: s.Namespace,
		Type:      s.Type,
		Injection: s.Injection.clone(),
		Version:   s.Version,
		KeyCount:  s.KeyCount,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Clone returns a copy of the history entry.
func (h *PodHistoryEntry) Clone() *PodHistoryEntry {
	if h == nil {
		return nil
	}
	out := *h
	return &out
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Roles != nil {
		out.Roles = make([]Role, len(u.Roles))
		copy(out.Roles, u.Roles)
	}
	return &out
}

// Clone returns a deep copy of the session.
func (s *UserSession) Clone() *UserSession {
	if s == nil {
		return nil
	}
	out := *s
	out.User = s.User.Clone()
	return &out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
