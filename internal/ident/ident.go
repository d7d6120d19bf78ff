// Package ident derives opaque, version-bound ids for directory records. The
// derivation is a pure function of (logical key, version): the same pair
// always yields the same id, and a version bump always yields a new one. The
// reverse index (id -> logical key) lives in the ids collection and is
// maintained by the directory, not here.
package ident

import (
	"fmt"
	"hash/fnv"
)

// botPrefix namespaces bot logical keys away from profile keys so the two
// record kinds never share an id for the same user.
const botPrefix = "bot:"

// BotKey returns the namespaced logical key for a user's bot record.
func BotKey(userID string) string {
	return botPrefix + userID
}

// Derive computes the opaque id for a logical key at a version. No store
// access, no randomness.
func Derive(logicalKey string, version int64) string {
	h := fnv.New64a()
	// hash.Hash.Write never returns an error according to the interface contract
	_, _ = fmt.Fprintf(h, "%s#%d", logicalKey, version)
	return fmt.Sprintf("u%016x", h.Sum64())
}
