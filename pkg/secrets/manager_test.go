package secrets

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftlabs/croft/pkg/security"
	"github.com/croftlabs/croft/pkg/state"
	"github.com/croftlabs/croft/pkg/types"
)

func newManager(t *testing.T) (*Manager, *state.State) {
	t.Helper()
	st := state.New()
	require.NoError(t, st.Update(func(d *state.Data) error {
		for _, name := range []string{"default", "team-a"} {
			d.Namespaces[name] = &types.Namespace{
				ID:    uuid.New().String(),
				Name:  name,
				Phase: types.NamespacePhaseActive,
			}
		}
		return nil
	}))
	cipher, err := security.NewCipherFromPassphrase("test-master-key")
	require.NoError(t, err)
	return New(st, cipher, nil, "default"), st
}

func TestCreateStoresOnlyCiphertext(t *testing.T) {
	m, st := newManager(t)

	info, err := m.Create(CreateInput{
		Name: "db-creds",
		Data: map[string]string{"username": "admin", "password": "hunter2"},
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "default", info.Namespace, "empty namespace falls back to the default")
	assert.Equal(t, 1, info.Version)
	assert.Equal(t, 2, info.KeyCount)

	require.NoError(t, st.View(func(d *state.Data) error {
		secret := d.Secrets[state.SecretKey("default", "db-creds")]
		require.NotNil(t, secret)
		assert.NotContains(t, string(secret.EncryptedData), "hunter2")
		assert.Len(t, secret.IV, 12)
		assert.Len(t, secret.AuthTag, 16)
		return nil
	}))
}

func TestCreateValidation(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Create(CreateInput{Name: "", Data: map[string]string{"k": "v"}}, "u1")
	assert.True(t, types.IsCode(err, types.CodeValidation))

	_, err = m.Create(CreateInput{Name: "s", Data: nil}, "u1")
	assert.True(t, types.IsCode(err, types.CodeValidation))

	_, err = m.Create(CreateInput{
		Name: "s",
		Data: map[string]string{"k": "v"},
		Injection: types.SecretInjection{Mode: types.InjectVolume},
	}, "u1")
	assert.True(t, types.IsCode(err, types.CodeValidation), "volume mode requires a mount path")

	_, err = m.Create(CreateInput{
		Name:      "s",
		Namespace: "ghost",
		Data:      map[string]string{"k": "v"},
	}, "u1")
	assert.True(t, types.IsCode(err, types.CodeNamespaceNotFound))
}

func TestCreateDuplicate(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Create(CreateInput{Name: "s", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)

	_, err = m.Create(CreateInput{Name: "s", Data: map[string]string{"k": "v2"}}, "u1")
	assert.True(t, types.IsCode(err, types.CodeSecretExists))

	// Same name in a different namespace is fine.
	_, err = m.Create(CreateInput{Name: "s", Namespace: "team-a", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)
}

func TestUpdateVersionSemantics(t *testing.T) {
	m, st := newManager(t)
	_, err := m.Create(CreateInput{Name: "s", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)

	var firstIV []byte
	require.NoError(t, st.View(func(d *state.Data) error {
		firstIV = append([]byte(nil), d.Secrets[state.SecretKey("default", "s")].IV...)
		return nil
	}))

	// Injection-only update: version unchanged.
	info, err := m.Update("default", "s", UpdateInput{
		Injection: &types.SecretInjection{Mode: types.InjectEnv, Prefix: "APP_"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, info.Version)
	assert.Equal(t, "APP_", info.Injection.Prefix)

	// Data update: version bumps and the IV is fresh.
	info, err = m.Update("default", "s", UpdateInput{
		Data: map[string]string{"k": "v2", "extra": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, info.Version)
	assert.Equal(t, 2, info.KeyCount)

	require.NoError(t, st.View(func(d *state.Data) error {
		assert.NotEqual(t, firstIV, d.Secrets[state.SecretKey("default", "s")].IV)
		return nil
	}))

	_, err = m.Update("default", "ghost", UpdateInput{})
	assert.True(t, types.IsCode(err, types.CodeSecretNotFound))
}

func TestDeleteAndList(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Create(CreateInput{Name: "a", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)
	_, err = m.Create(CreateInput{Name: "b", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)
	_, err = m.Create(CreateInput{Name: "c", Namespace: "team-a", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)

	assert.Len(t, m.List("default"), 2)
	assert.Len(t, m.List("team-a"), 1)
	assert.Empty(t, m.List("ghost"))

	require.NoError(t, m.Delete("default", "a"))
	assert.True(t, types.IsCode(m.Delete("default", "a"), types.CodeSecretNotFound))
	assert.Len(t, m.List("default"), 1)

	_, err = m.Get("default", "b")
	require.NoError(t, err)
	_, err = m.Get("default", "a")
	assert.True(t, types.IsCode(err, types.CodeSecretNotFound))
}

func TestSecretsExcludedFromSnapshots(t *testing.T) {
	m, st := newManager(t)
	_, err := m.Create(CreateInput{Name: "s", Data: map[string]string{"k": "v"}}, "u1")
	require.NoError(t, err)

	snap := st.Snapshot()
	st.Restore(snap)

	// The secret survives a restore untouched because snapshots never
	// carry the secrets map.
	info, err := m.Get("default", "s")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Version)
	assert.WithinDuration(t, time.Now(), info.CreatedAt, time.Minute)
}
