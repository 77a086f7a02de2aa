package cache

import (
	"bufio"
	"strings"
	"time"
)

const (
	// DefaultTTL is used when neither the call nor the ManagerConfig gives a positive TTL.
	DefaultTTL = time.Hour

	// DefaultManagerName names a Manager built without an explicit name.
	DefaultManagerName = "default"

	// TagKeyPrefix is inserted between the namespace and the tag name for tag index keys.
	TagKeyPrefix = "tag:"

	// batchConcurrency bounds the fan-out of SetMany, GetMany and Warm.
	batchConcurrency = 16

	// deleteChunkSize bounds the number of keys sent in one DEL.
	deleteChunkSize = 500
)

// usedMemory extracts used_memory_human from an INFO memory reply,
// falling back to the trimmed reply when the field is absent.
func usedMemory(info string) string {
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			return value
		}
	}
	return strings.TrimSpace(info)
}
