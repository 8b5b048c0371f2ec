/*
Package secrets manages encrypted key-value material and its injection into
pods.

Secrets are encrypted at rest with AES-256-GCM (see pkg/security) and stored
in a map deliberately separate from the serializable cluster state, so a
state snapshot can never carry secret ciphertext out of the process. The
public API is metadata-only: create, update, delete, get, and list never
return plaintext. Data updates re-encrypt under a fresh IV and bump the
secret's version; injection-only updates do not.

ResolveForPod is the single plaintext-producing path. It resolves the
requested names, rejects missing secrets and volume mount-path conflicts
before touching the cipher, then decrypts and builds the env/volume payload.
On any decryption failure every buffer decrypted so far is wiped. The
returned payload is short-lived by contract and is never serialized.
*/
package secrets
