// Package hash computes the deterministic 32-byte password digest used to
// seed and check principal passwords. No salt: check_password requires
// exact equality against the stored digest, which rules out an adaptive KDF.
package hash

import "golang.org/x/crypto/blake2b"

// Digest is a 32-byte password digest.
type Digest [32]byte

// Sum computes the digest of password. Pure and deterministic: the same
// password always yields the same Digest, on any process, any run.
func Sum(password string) Digest {
	return Digest(blake2b.Sum256([]byte(password)))
}
