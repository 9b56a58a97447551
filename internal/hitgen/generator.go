package hitgen

import (
	"strings"

	"github.com/google/uuid"
)

var keyExtensions = []string{".png", ".jpg"}

// GenerateKeys returns n distinct valid image keys built from random uuids.
// Extensions alternate between .png and .jpg.
func GenerateKeys(n int) []string {
	keys := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(keys) < n {
		stem := strings.ReplaceAll(uuid.NewString(), "-", "")[:keyStemLength]
		key := stem + keyExtensions[len(keys)%len(keyExtensions)]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Plan spreads requests round-robin over keys and returns the request
// sequence together with the expected per-key count.
func Plan(keys []string, requests int) ([]string, map[string]int64) {
	expected := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return nil, expected
	}
	seq := make([]string, requests)
	for i := range seq {
		k := keys[i%len(keys)]
		seq[i] = k
		expected[k]++
	}
	return seq, expected
}
