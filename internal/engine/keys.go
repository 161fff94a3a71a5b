package engine

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"queryforge/internal/domain/query"
)

// Fingerprint derives the deterministic cache key for one query: the
// target entity and the canonical specification snapshot, hashed, plus an
// optional discriminator separating result shapes (e.g. find vs
// find+count) for the same filters.
func Fingerprint(entity string, spec *query.Specification, discriminator string) (string, error) {
	snapshot, err := spec.Snapshot()
	if err != nil {
		return "", fmt.Errorf("serialize specification: %w", err)
	}

	data := make([]byte, 0, len(entity)+1+len(snapshot))
	data = append(data, entity...)
	data = append(data, 0)
	data = append(data, snapshot...)
	sum := blake2b.Sum256(data)

	key := entity + ":" + hex.EncodeToString(sum[:])
	if discriminator != "" {
		key += ":" + discriminator
	}
	return key, nil
}
