/*
Package security provides the encryption primitives for Croft secrets.

All secret values are encrypted at rest in memory with AES-256-GCM. The
Cipher type produces ciphertext, IV, and authentication tag as three
separate values, which is how the Secret record stores them:

	cipher, _ := security.NewCipherFromPassphrase(masterKey)
	ciphertext, iv, tag, err := cipher.Encrypt(plaintext)
	...
	plaintext, err = cipher.Decrypt(ciphertext, iv, tag)

# Key Management

The master key comes from configuration (usually the CROFT_MASTER_KEY
environment variable) and is stretched with SHA-256 into the AES key.
When no master key is configured, NewEphemeralCipher generates a random
key for the lifetime of the process; secrets are then unrecoverable after
restart, which is acceptable for development only.

# Plaintext Hygiene

Decrypted payloads live exactly as long as a resolution needs them. Use
Wipe to zero buffers once values have been copied out. Plaintext never
reaches logs, snapshots, or the persistence layer.
*/
package security
