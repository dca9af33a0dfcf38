package resolver

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	id "remitpool/pkg/domain"
)

// hashDomain separates identifier hashes from any other SHA3 use, so a hash
// produced elsewhere can never collide with a registration key.
const hashDomain = "remitpool.identifier.v1|"

// ComputeHash derives the privacy-preserving alias for an identifier.
// It is a pure, deterministic one-way transform; the raw identifier is never
// stored or logged.
func ComputeHash(identifier string) id.IdentifierHash {
	sum := sha3.Sum256([]byte(hashDomain + identifier))
	return id.IdentifierHash(hex.EncodeToString(sum[:]))
}
