package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDLength is the number of hex characters kept from the digest.
const IDLength = 12

// Content is the map of identifying fields for one output object.
// Only semantically distinguishing fields belong here; never the object's
// own ID or mutable bookkeeping state.
type Content map[string]interface{}

// NewID hashes a canonical encoding of the content map and returns the
// first IDLength hex characters. The encoding sorts keys and collections so
// the result is stable across runs and map iteration order.
func NewID(content Content) string {
	sum := sha256.Sum256([]byte(Encode(content)))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// Encode renders the content map as a deterministic key=value string.
func Encode(content Content) string {
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(encodeValue(content[key]))
		b.WriteByte(';')
	}
	return b.String()
}

func encodeValue(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.FormatInt(int64(typed), 10)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case []uint64:
		sorted := make([]uint64, len(typed))
		copy(sorted, typed)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		parts := make([]string, 0, len(sorted))
		for _, item := range sorted {
			parts = append(parts, strconv.FormatUint(item, 10))
		}
		return strings.Join(parts, ",")
	case []string:
		sorted := make([]string, len(typed))
		copy(sorted, typed)
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	default:
		return fmt.Sprintf("%v", typed)
	}
}
