package security

import (
	"bytes"
	"testing"
)

func TestNewCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{
			name:    "valid 32-byte key",
			key:     make([]byte, 32),
			wantErr: false,
		},
		{
			name:    "invalid short key",
			key:     make([]byte, 16),
			wantErr: true,
		},
		{
			name:    "invalid long key",
			key:     make([]byte, 64),
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCipher(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCipher() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && c == nil {
				t.Error("NewCipher() returned nil without error")
			}
		})
	}
}

func TestNewCipherFromPassphrase(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{
			name:       "valid passphrase",
			passphrase: "my-secure-passphrase",
			wantErr:    false,
		},
		{
			name:       "empty passphrase",
			passphrase: "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCipherFromPassphrase(tt.passphrase)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCipherFromPassphrase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && c == nil {
				t.Error("NewCipherFromPassphrase() returned nil without error")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipherFromPassphrase("test-passphrase")
	if err != nil {
		t.Fatalf("NewCipherFromPassphrase() error = %v", err)
	}

	plaintext := []byte(`{"user":"admin","password":"hunter2"}`)

	ciphertext, iv, tag, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ciphertext, []byte("hunter2")) {
		t.Error("ciphertext contains plaintext fragment")
	}
	if len(iv) != 12 {
		t.Errorf("IV length = %d, want 12", len(iv))
	}
	if len(tag) != 16 {
		t.Errorf("auth tag length = %d, want 16", len(tag))
	}

	decrypted, err := c.Decrypt(ciphertext, iv, tag)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptEmptyData(t *testing.T) {
	c, _ := NewCipherFromPassphrase("test")
	if _, _, _, err := c.Encrypt(nil); err == nil {
		t.Error("Encrypt(nil) should fail")
	}
}

func TestEncryptProducesUniqueIVs(t *testing.T) {
	c, _ := NewCipherFromPassphrase("test")
	plaintext := []byte("same input")

	_, iv1, _, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	_, iv2, _, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(iv1, iv2) {
		t.Error("two encryptions produced the same IV")
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	c, _ := NewCipherFromPassphrase("test")
	ciphertext, iv, tag, err := c.Encrypt([]byte("sensitive payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	flip := func(b []byte) []byte {
		out := make([]byte, len(b))
		copy(out, b)
		out[0] ^= 0xff
		return out
	}

	tests := []struct {
		name             string
		ct, iv, tag      []byte
	}{
		{"tampered ciphertext", flip(ciphertext), iv, tag},
		{"tampered iv", ciphertext, flip(iv), tag},
		{"tampered tag", ciphertext, iv, flip(tag)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.ct, tt.iv, tt.tag); err == nil {
				t.Error("Decrypt() should fail on tampered input")
			}
		})
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	c1, _ := NewCipherFromPassphrase("key-one")
	c2, _ := NewCipherFromPassphrase("key-two")

	ciphertext, iv, tag, err := c1.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := c2.Decrypt(ciphertext, iv, tag); err == nil {
		t.Error("Decrypt() with wrong key should fail")
	}
}

func TestDecryptRejectsBadLengths(t *testing.T) {
	c, _ := NewCipherFromPassphrase("test")
	ciphertext, iv, tag, _ := c.Encrypt([]byte("payload"))

	if _, err := c.Decrypt(nil, iv, tag); err == nil {
		t.Error("Decrypt() with empty ciphertext should fail")
	}
	if _, err := c.Decrypt(ciphertext, iv[:4], tag); err == nil {
		t.Error("Decrypt() with short IV should fail")
	}
	if _, err := c.Decrypt(ciphertext, iv, tag[:8]); err == nil {
		t.Error("Decrypt() with short tag should fail")
	}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	k1 := DeriveKey("passphrase")
	k2 := DeriveKey("passphrase")
	k3 := DeriveKey("different")

	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() should be deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("different passphrases should derive different keys")
	}
	if len(k1) != KeySize {
		t.Errorf("derived key length = %d, want %d", len(k1), KeySize)
	}
}

func TestEphemeralCiphersAreIndependent(t *testing.T) {
	c1, err := NewEphemeralCipher()
	if err != nil {
		t.Fatalf("NewEphemeralCipher() error = %v", err)
	}
	c2, err := NewEphemeralCipher()
	if err != nil {
		t.Fatalf("NewEphemeralCipher() error = %v", err)
	}

	ciphertext, iv, tag, err := c1.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := c2.Decrypt(ciphertext, iv, tag); err == nil {
		t.Error("a second ephemeral cipher should not decrypt the first's output")
	}
}

func TestWipe(t *testing.T) {
	buf := []byte("plaintext secret value")
	Wipe(buf)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("Wipe() left byte %d = %x", i, b)
		}
	}
}
