package subsonicapi

import (
	"sort"
	"strings"
)

// CanonicalKey builds the ApiCache fingerprint for endpoint+params:
// endpoint + "?" + sorted "k=v" pairs joined by "&". Missing params are
// equivalent to empty params, and the result is independent of the
// iteration order of the input map.
func CanonicalKey(endpoint string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, k+"="+params[k])
	}

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString("?")
	b.WriteString(strings.Join(pairs, "&"))
	return b.String()
}
