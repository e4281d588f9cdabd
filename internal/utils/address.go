package utils

import "strings"

// NormalizeAddress folds case and whitespace so the same street typed twice
// maps to one key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// LocalityKey is the dedup key for a (city, state) pair.
func LocalityKey(city, state string) string {
	return NormalizeAddress(city) + "|" + NormalizeAddress(state)
}
