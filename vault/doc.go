// Package vault protects third-party provider credentials at rest.
//
// Tokens are sealed with an AEAD cipher under a single 256-bit master key.
// Each ciphertext is bound to "<provider>:<subjectID>" as additional
// authenticated data, so a blob copied between identities fails to open.
//
// At-rest encoding is a single standard base64 string of
// nonce(12 bytes) || ciphertext || tag. Plaintext never reaches a [Repository].
package vault
