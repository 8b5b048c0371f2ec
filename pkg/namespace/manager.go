package namespace

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// Reserved namespace names. These three always exist and cannot be created
// or deleted through the public API.
const (
	Default      = "default"
	SystemNS     = "croft-system"
	PublicNS     = "croft-public"
	systemUserID = "system"
)

var reservedNames = map[string]bool{
	Default:  true,
	SystemNS: true,
	PublicNS: true,
}

// IsReserved reports whether name is one of the reserved namespaces.
func IsReserved(name string) bool {
	return reservedNames[name]
}

// namePattern matches DNS-1123 labels.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

const maxNameLength = 63

// Manager owns namespace lifecycle, quota accounting, and limit ranges.
type Manager struct {
	state  *state.State
	broker *events.Broker
	logger zerolog.Logger
}

// New creates a namespace manager. When initializeDefaults is set the three
// reserved namespaces are created if missing.
func New(st *state.State, broker *events.Broker, initializeDefaults bool) *Manager {
	m := &Manager{
		state:  st,
		broker: broker,
		logger: log.WithComponent("namespace"),
	}
	if initializeDefaults {
		m.initializeDefaults()
	}
	return m
}

func (m *Manager) initializeDefaults() {
	_ = m.state.Update(func(d *state.Data) error {
		now := time.Now()
		for name := range reservedNames {
			if _, ok := d.Namespaces[name]; ok {
				continue
			}
			d.Namespaces[name] = &types.Namespace{
				ID:        uuid.New().String(),
				Name:      name,
				Phase:     types.NamespacePhaseActive,
				CreatedBy: systemUserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			m.logger.Info().Str("namespace", name).Msg("reserved namespace created")
		}
		return nil
	})
}

// CreateInput is the request to create a namespace.
type CreateInput struct {
	Name        string
	Labels      map[string]string
	Annotations map[string]string
	Quota       *types.ResourceQuota
	LimitRange  *types.LimitRange
}

// Create adds a new namespace in the active phase.
func (m *Manager) Create(input CreateInput, userID string) (*types.Namespace, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if IsReserved(input.Name) {
		return nil, types.Errorf(types.CodeReservedNamespace,
			"namespace %s is reserved", input.Name)
	}

	now := time.Now()
	ns := &types.Namespace{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Phase:       types.NamespacePhaseActive,
		Labels:      input.Labels,
		Annotations: input.Annotations,
		Quota:       input.Quota,
		LimitRange:  input.LimitRange,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := m.state.Update(func(d *state.Data) error {
		if _, ok := d.Namespaces[ns.Name]; ok {
			return types.Errorf(types.CodeNamespaceExists,
				"namespace %s already exists", ns.Name)
		}
		d.Namespaces[ns.Name] = ns.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("namespace", ns.Name).Msg("namespace created")
	m.publish(events.New(events.EventNamespaceCreated, "namespace created", "namespace", ns.Name))
	return ns, nil
}

// Get returns a namespace by name.
func (m *Manager) Get(name string) (*types.Namespace, error) {
	var ns *types.Namespace
	err := m.state.View(func(d *state.Data) error {
		found, ok := d.Namespaces[name]
		if !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
		}
		ns = found.Clone()
		return nil
	})
	return ns, err
}

// List returns all namespaces in unspecified order.
func (m *Manager) List() []*types.Namespace {
	var out []*types.Namespace
	_ = m.state.View(func(d *state.Data) error {
		for _, ns := range d.Namespaces {
			out = append(out, ns.Clone())
		}
		return nil
	})
	return out
}

// UpdateInput patches a namespace's mutable fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Labels      map[string]string
	Annotations map[string]string
	Quota       *types.ResourceQuota
	LimitRange  *types.LimitRange
}

// Update patches a namespace. Terminating namespaces reject updates.
func (m *Manager) Update(name string, patch UpdateInput) (*types.Namespace, error) {
	var updated *types.Namespace
	err := m.state.Update(func(d *state.Data) error {
		ns, ok := d.Namespaces[name]
		if !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
		}
		if ns.Phase == types.NamespacePhaseTerminating {
			return types.Errorf(types.CodeNamespaceTerminating,
				"namespace %s is terminating", name)
		}
		if patch.Labels != nil {
			ns.Labels = patch.Labels
		}
		if patch.Annotations != nil {
			ns.Annotations = patch.Annotations
		}
		if patch.Quota != nil {
			ns.Quota = patch.Quota
		}
		if patch.LimitRange != nil {
			ns.LimitRange = patch.LimitRange
		}
		ns.UpdatedAt = time.Now()
		updated = ns.Clone()
		return nil
	})
	return updated, err
}

// MarkTerminating moves a namespace into the terminating phase. Idempotent;
// the default namespace is never terminated.
func (m *Manager) MarkTerminating(name string) error {
	var already bool
	err := m.state.Update(func(d *state.Data) error {
		ns, ok := d.Namespaces[name]
		if !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
		}
		if name == Default {
			return types.Errorf(types.CodeCannotDeleteDefault,
				"the default namespace cannot be terminated")
		}
		if ns.Phase == types.NamespacePhaseTerminating {
			already = true
			return nil
		}
		ns.Phase = types.NamespacePhaseTerminating
		ns.UpdatedAt = time.Now()
		return nil
	})
	if err != nil || already {
		return err
	}
	m.logger.Info().Str("namespace", name).Msg("namespace terminating")
	m.publish(events.New(events.EventNamespaceTerminating, "namespace terminating", "namespace", name))
	return nil
}

// Delete removes a namespace. The default namespace is never deletable, the
// other reserved namespaces are protected too, and a namespace still holding
// non-terminal pods is only deleted with force.
func (m *Manager) Delete(name string, force bool) error {
	err := m.state.Update(func(d *state.Data) error {
		if _, ok := d.Namespaces[name]; !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", name)
		}
		if name == Default {
			return types.Errorf(types.CodeCannotDeleteDefault,
				"the default namespace cannot be deleted")
		}
		if IsReserved(name) {
			return types.Errorf(types.CodeReservedNamespace,
				"namespace %s is reserved", name)
		}
		if !force {
			for _, pod := range d.PodsInNamespace(name) {
				if !pod.Status.IsTerminal() {
					return types.Errorf(types.CodeNamespaceNotEmpty,
						"namespace %s still has active pods", name)
				}
			}
		}
		delete(d.Namespaces, name)
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info().Str("namespace", name).Bool("force", force).Msg("namespace deleted")
	m.publish(events.New(events.EventNamespaceDeleted, "namespace deleted", "namespace", name))
	return nil
}

func (m *Manager) publish(event *events.Event) {
	if m.broker != nil {
		m.broker.Publish(event)
	}
}

func validateName(name string) error {
	if name == "" {
		return types.NewError(types.CodeValidation, "namespace name is required")
	}
	if len(name) > maxNameLength {
		return types.Errorf(types.CodeValidation,
			"namespace name exceeds %d characters", maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return types.Errorf(types.CodeValidation,
			"namespace name %q must be a lowercase DNS label", name)
	}
	return nil
}
