package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key builds a deterministic cache key from an operation identity and its
// arguments. Arguments are canonicalized as sorted key=value pairs before
// hashing, so callers get the same key regardless of map iteration order.
// The digest is SHA-256; only a prefix is kept, which is plenty for an
// in-process cache while keeping keys readable in logs.
func Key(operation string, args map[string]string) string {
	var sb strings.Builder
	sb.WriteString(operation)

	if len(args) > 0 {
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			sb.WriteByte('|')
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(args[k])
		}
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s:%s", operation, hex.EncodeToString(sum[:12]))
}
