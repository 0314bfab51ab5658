package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ComputeDedupKey computes the stable cooldown key for an alert.
// Formula: SHA256(market_id|wallet_1|wallet_2|...) over the sorted
// wallet set. Returns hex-encoded hash (64 characters).
func ComputeDedupKey(marketID string, wallets []string) string {
	sorted := make([]string, len(wallets))
	copy(sorted, wallets)
	sort.Strings(sorted)

	data := marketID + "|" + strings.Join(sorted, "|")

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
