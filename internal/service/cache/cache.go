package cache

import "time"

// Store is an in-process key set with per-entry expiry. A zero ttl never
// expires.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, v any, ttl time.Duration)
	Len() int
}
