package secrets

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/croftlabs/croft/pkg/security"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

// ResolveForPod decrypts the named secrets and builds the injection payload
// a node agent feeds into a pod: env variables and volume file maps.
//
// The pipeline fails closed: missing names are reported before any
// decryption, volume mount-path conflicts are detected before any
// decryption, and a single decryption failure wipes everything decrypted so
// far. The payload is short-lived; callers must discard it after injection.
func (m *Manager) ResolveForPod(names []string, namespace string) (*types.SecretPayload, error) {
	if namespace == "" {
		namespace = m.defaultNamespace
	}

	var resolved []*types.Secret
	err := m.state.View(func(d *state.Data) error {
		var missing []string
		for _, name := range names {
			secret, ok := d.Secrets[state.SecretKey(namespace, name)]
			if !ok {
				missing = append(missing, name)
				continue
			}
			resolved = append(resolved, secret.Clone())
		}
		if len(missing) > 0 {
			err := types.Errorf(types.CodeMissingSecrets,
				"%d secrets not found in namespace %s", len(missing), namespace)
			return err.WithDetail("missing", missing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := checkMountConflicts(resolved); err != nil {
		return nil, err
	}

	payload := &types.SecretPayload{Env: make(map[string]string)}
	var buffers [][]byte
	wipeAll := func() {
		for _, buf := range buffers {
			security.Wipe(buf)
		}
		for k := range payload.Env {
			payload.Env[k] = ""
		}
		for i := range payload.Volumes {
			for name := range payload.Volumes[i].Files {
				payload.Volumes[i].Files[name] = ""
			}
		}
	}

	for _, secret := range resolved {
		plaintext, err := m.cipher.Decrypt(secret.EncryptedData, secret.IV, secret.AuthTag)
		if err != nil {
			wipeAll()
			// No detail beyond the code: decryption errors must not leak
			// whether the ciphertext, IV, or tag was at fault.
			return nil, types.NewError(types.CodeDecryptionFailed, "secret decryption failed")
		}
		buffers = append(buffers, plaintext)

		var data map[string]string
		if err := json.Unmarshal(plaintext, &data); err != nil {
			wipeAll()
			return nil, types.NewError(types.CodeDecryptionFailed, "secret decryption failed")
		}

		switch secret.Injection.Mode {
		case types.InjectVolume:
			volume := types.SecretVolume{
				MountPath: secret.Injection.MountPath,
				Files:     make(map[string]string, len(data)),
			}
			for key, value := range data {
				filename := key
				if mapped, ok := secret.Injection.FileMapping[key]; ok {
					filename = mapped
				}
				volume.Files[filename] = value
			}
			payload.Volumes = append(payload.Volumes, volume)
		default:
			for key, value := range data {
				envName, ok := secret.Injection.KeyMapping[key]
				if !ok {
					envName = secret.Injection.Prefix + strings.ToUpper(key)
				}
				payload.Env[envName] = value
			}
		}

		// Drop the decoded map eagerly; the buffers slice keeps the raw
		// plaintext wipeable until return.
		for k := range data {
			data[k] = ""
		}
	}

	for _, buf := range buffers {
		security.Wipe(buf)
	}
	return payload, nil
}

// checkMountConflicts rejects volume-mode secrets whose mount paths collide:
// two identical paths, or one path nested under another. Nested paths
// conflict because mounting both would shadow files.
func checkMountConflicts(secrets []*types.Secret) error {
	var paths []string
	for _, secret := range secrets {
		if secret.Injection.Mode == types.InjectVolume {
			paths = append(paths, path.Clean(secret.Injection.MountPath))
		}
	}
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			if pathsOverlap(paths[i], paths[j]) {
				err := types.Errorf(types.CodeMountPathConflict,
					"mount paths %s and %s conflict", paths[i], paths[j])
				return err.WithDetail("paths", []string{paths[i], paths[j]})
			}
		}
	}
	return nil
}

// pathsOverlap reports whether a and b are equal or one is nested under the
// other on a path-segment boundary: /etc/app conflicts with /etc/app/sub
// but not with /etc/app2.
func pathsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}
