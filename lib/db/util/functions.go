package util

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// FNV-1a parameters (64 bit)
const (
	offset64 = 14695981039346656037
	prime64  = 1099511628211
)

// HashBytes generates a 64 bit hash value for a byte string.
// This function uses the FNV-1a hash algorithm (xor, then multiply per byte).
// The result is only used for bucket distribution and must not be persisted.
func HashBytes(data []byte) uint64 {
	hash := uint64(offset64)
	for _, b := range data {
		hash ^= uint64(b)
		hash *= prime64
	}
	return hash
}

// HashString is HashBytes for strings without converting the string first.
func HashString(s string) uint64 {
	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
