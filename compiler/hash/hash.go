package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// HashProgram computes the SHA-256 content hash of a program tree.
//
// The hash is computed over a deterministic serialization of the tree, so
// the same program decoded from JSON, YAML or CBOR hashes identically.
// Attribute, method and statement order are significant; positions are too.
func HashProgram(prog *compiler.Program) [32]byte {
	return sha256.Sum256(Serialize(prog))
}

// Hex returns the hash of prog as a lowercase hex string.
func Hex(prog *compiler.Program) string {
	sum := HashProgram(prog)
	return hex.EncodeToString(sum[:])
}
