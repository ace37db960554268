package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxPolicyTextLength is the cap applied to extracted policy text before
// hashing and analysis.
const MaxPolicyTextLength = 50000

// TruncationMarker is appended verbatim when text is cut at the cap. It is
// part of the content, so it participates in hashing.
const TruncationMarker = "\n[Text truncated at 50,000 characters]"

// TruncatePolicyText caps text at MaxPolicyTextLength characters and appends
// the truncation marker when anything was cut. Truncation always happens
// before hashing, so two texts differing only past the cap share a hash.
func TruncatePolicyText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxPolicyTextLength {
		return text
	}
	return string(runes[:MaxPolicyTextLength]) + TruncationMarker
}

// HashPolicyText returns the sha256 hex digest of normalized policy text.
// Normalization (trim + lowercase) keeps trivially reformatted copies of the
// same policy on one cache entry. The digest is the sole cache key; the
// source URL never participates.
func HashPolicyText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
