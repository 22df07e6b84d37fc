package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives the content fingerprint for a node invocation from its type,
// id, and fully resolved inputs. Marshaling goes through encoding/json,
// which emits map keys in sorted order, so structurally equal inputs
// always hash identically regardless of construction order.
func Key(nodeType, nodeID string, inputs map[string]any) (string, error) {
	payload := map[string]any{
		"type":   nodeType,
		"id":     nodeID,
		"inputs": inputs,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
