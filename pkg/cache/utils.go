package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Key joins parts into a colon-separated cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// HashKey digests s into a short fixed-width token, for keys built from
// user-supplied input of unbounded length.
func HashKey(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
