package secrets

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/security"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// Manager encrypts, stores, and resolves namespaced secrets. Plaintext is
// never stored, never returned from the metadata API, and never logged; the
// only path that produces plaintext is ResolveForPod, whose payload is
// short-lived by contract.
type Manager struct {
	state            *state.State
	cipher           *security.Cipher
	broker           *events.Broker
	defaultNamespace string
	logger           zerolog.Logger
}

// New creates a secret manager around the given cipher.
func New(st *state.State, cipher *security.Cipher, broker *events.Broker, defaultNamespace string) *Manager {
	if defaultNamespace == "" {
		defaultNamespace = "default"
	}
	return &Manager{
		state:            st,
		cipher:           cipher,
		broker:           broker,
		defaultNamespace: defaultNamespace,
		logger:           log.WithComponent("secrets"),
	}
}

// CreateInput is the request to create a secret.
type CreateInput struct {
	Name      string
	Namespace string
	Type      string
	Data      map[string]string
	Injection types.SecretInjection
}

// Create encrypts the data map and stores the secret. (namespace, name) is
// unique. The returned metadata carries the key count known at create time.
func (m *Manager) Create(input CreateInput, userID string) (*types.SecretInfo, error) {
	if input.Name == "" {
		return nil, types.NewError(types.CodeValidation, "secret name is required")
	}
	if len(input.Data) == 0 {
		return nil, types.NewError(types.CodeValidation, "secret data must not be empty")
	}
	if err := validateInjection(input.Injection); err != nil {
		return nil, err
	}
	ns := input.Namespace
	if ns == "" {
		ns = m.defaultNamespace
	}

	ciphertext, iv, tag, err := m.encryptData(input.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	secret := &types.Secret{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Namespace:     ns,
		Type:          input.Type,
		EncryptedData: ciphertext,
		IV:            iv,
		AuthTag:       tag,
		Injection:     input.Injection,
		Version:       1,
		KeyCount:      len(input.Data),
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = m.state.Update(func(d *state.Data) error {
		if _, ok := d.Namespaces[ns]; !ok {
			return types.Errorf(types.CodeNamespaceNotFound, "namespace %s not found", ns)
		}
		key := state.SecretKey(ns, secret.Name)
		if _, ok := d.Secrets[key]; ok {
			return types.Errorf(types.CodeSecretExists,
				"secret %s already exists in namespace %s", secret.Name, ns)
		}
		d.Secrets[key] = secret.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("secret", secret.Name).Str("namespace", ns).Msg("secret created")
	m.publish(events.New(events.EventSecretCreated, "secret created",
		"secret", secret.Name, "namespace", ns))
	info := secret.Info()
	return &info, nil
}

// UpdateInput patches a secret. A nil Data leaves the encrypted material
// and version untouched; a nil Injection leaves the injection config.
type UpdateInput struct {
	Data      map[string]string
	Injection *types.SecretInjection
}

// Update re-encrypts the data with a fresh IV and bumps the version when
// new data is supplied. Injection-only updates do not bump the version.
func (m *Manager) Update(namespace, name string, patch UpdateInput) (*types.SecretInfo, error) {
	if patch.Injection != nil {
		if err := validateInjection(*patch.Injection); err != nil {
			return nil, err
		}
	}

	var ciphertext, iv, tag []byte
	if patch.Data != nil {
		if len(patch.Data) == 0 {
			return nil, types.NewError(types.CodeValidation, "secret data must not be empty")
		}
		var err error
		ciphertext, iv, tag, err = m.encryptData(patch.Data)
		if err != nil {
			return nil, err
		}
	}

	var info types.SecretInfo
	err := m.state.Update(func(d *state.Data) error {
		secret, ok := d.Secrets[state.SecretKey(namespace, name)]
		if !ok {
			return types.Errorf(types.CodeSecretNotFound,
				"secret %s not found in namespace %s", name, namespace)
		}
		if patch.Data != nil {
			secret.EncryptedData = ciphertext
			secret.IV = iv
			secret.AuthTag = tag
			secret.Version++
			secret.KeyCount = len(patch.Data)
		}
		if patch.Injection != nil {
			secret.Injection = *patch.Injection
		}
		secret.UpdatedAt = time.Now()
		info = secret.Info()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(events.New(events.EventSecretUpdated, "secret updated",
		"secret", name, "namespace", namespace))
	return &info, nil
}

// Delete removes a secret.
func (m *Manager) Delete(namespace, name string) error {
	err := m.state.Update(func(d *state.Data) error {
		key := state.SecretKey(namespace, name)
		if _, ok := d.Secrets[key]; !ok {
			return types.Errorf(types.CodeSecretNotFound,
				"secret %s not found in namespace %s", name, namespace)
		}
		delete(d.Secrets, key)
		return nil
	})
	if err != nil {
		return err
	}
	m.publish(events.New(events.EventSecretDeleted, "secret deleted",
		"secret", name, "namespace", namespace))
	return nil
}

// Get returns a secret's metadata.
func (m *Manager) Get(namespace, name string) (*types.SecretInfo, error) {
	var info types.SecretInfo
	err := m.state.View(func(d *state.Data) error {
		secret, ok := d.Secrets[state.SecretKey(namespace, name)]
		if !ok {
			return types.Errorf(types.CodeSecretNotFound,
				"secret %s not found in namespace %s", name, namespace)
		}
		info = secret.Info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns metadata for every secret in the namespace.
func (m *Manager) List(namespace string) []types.SecretInfo {
	var out []types.SecretInfo
	_ = m.state.View(func(d *state.Data) error {
		for _, secret := range d.Secrets {
			if secret.Namespace == namespace {
				out = append(out, secret.Info())
			}
		}
		return nil
	})
	return out
}

// encryptData serializes the data map to canonical JSON and encrypts it.
// The intermediate plaintext buffer is wiped before returning.
func (m *Manager) encryptData(data map[string]string) (ciphertext, iv, tag []byte, err error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, nil, nil, types.Errorf(types.CodeValidation, "serialize secret data: %v", err)
	}
	defer security.Wipe(plaintext)

	ciphertext, iv, tag, err = m.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, nil, nil, types.NewError(types.CodeValidation, "encryption failed")
	}
	return ciphertext, iv, tag, nil
}

func validateInjection(inj types.SecretInjection) error {
	switch inj.Mode {
	case types.InjectEnv, "":
		return nil
	case types.InjectVolume:
		if inj.MountPath == "" {
			return types.NewError(types.CodeValidation, "volume injection requires a mount path")
		}
		return nil
	}
	return types.Errorf(types.CodeValidation, "unknown injection mode %q", inj.Mode)
}

func (m *Manager) publish(event *events.Event) {
	if m.broker != nil {
		m.broker.Publish(event)
	}
}
