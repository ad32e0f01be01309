// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransferID computes a deterministic transfer_id using SHA256.
// Formula: SHA256(sender|recipient|amount|nonce|executed_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(sender, recipient, amount string, nonce uint64, executedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d", sender, recipient, amount, nonce, executedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeChangeID computes a deterministic change_id for a policy mutation.
// Formula: SHA256(kind|actor|subject|changed_at_ms)
func ComputeChangeID(kind, actor, subject string, changedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", kind, actor, subject, changedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
