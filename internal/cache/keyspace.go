package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Result keys look like stockintel:result:<kind>:<sku>:<fingerprint>. The SKU
// segment is hex encoded so that SKUs containing ':' or glob characters can
// neither collide with nor be matched by another SKU's scan pattern.
const resultKeyPrefix = "stockintel:result"

// BuildKey returns the cache key of (kind, sku, input).
func BuildKey(kind Kind, sku string, input any) (string, error) {
	fp, err := Fingerprint(input)
	if err != nil {
		return "", err
	}
	return skuNamespace(kind, sku) + fp, nil
}

// skuPattern matches every result of kind cached for sku.
func skuPattern(kind Kind, sku string) string {
	return skuNamespace(kind, sku) + "*"
}

// allResultsPattern matches every cached result.
func allResultsPattern() string {
	return resultKeyPrefix + ":*"
}

func skuNamespace(kind Kind, sku string) string {
	segment := hex.EncodeToString([]byte(strings.ToLower(strings.TrimSpace(sku))))
	return fmt.Sprintf("%s:%s:%s:", resultKeyPrefix, kind, segment)
}

// Fingerprint hashes the JSON encoding of input. Map keys are sorted by
// encoding/json, so equal inputs always share a fingerprint.
func Fingerprint(input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("fingerprint cache input: %w", err)
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}
