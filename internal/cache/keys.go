package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const (
	EntityCustomer = "customer"
	EntityItem     = "item"
	EntityOrder    = "order"
)

// EntityKey is the cache key for a single entity, e.g. "customer:42".
func EntityKey(entityType, id string) string {
	return entityType + ":" + id
}

// ListKey is the cache key for one paginated query result. The full filter
// tuple is hashed so distinct queries never collide; an optional scope (e.g.
// the owning customer id) keeps scoped lists invalidatable as a group.
func ListKey(entityType, scope string, filters map[string]string) string {
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "&")))
	hash := hex.EncodeToString(sum[:8])

	if scope != "" {
		return fmt.Sprintf("%s:list:%s:%s", entityType, scope, hash)
	}
	return fmt.Sprintf("%s:list:%s", entityType, hash)
}

// ListPattern matches every list key for the entity type, scoped or not.
func ListPattern(entityType string) string {
	return entityType + ":list:*"
}

// ScopedListPattern matches list keys under one scope only.
func ScopedListPattern(entityType, scope string) string {
	return fmt.Sprintf("%s:list:%s:*", entityType, scope)
}
