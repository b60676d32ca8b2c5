package booking

import (
	"fmt"
	"hash/fnv"
)

// SlotKey derives the deterministic lock key for a (shop, date, start) tuple.
// Two requests for the same tuple always contend for the same lock; the hash
// must stay stable across releases so lock behavior is portable between
// backends.
func SlotKey(shopID, date string, startMinutes int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", shopID, date, startMinutes)
	return int64(h.Sum64())
}
