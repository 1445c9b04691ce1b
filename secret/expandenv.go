package secret

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded from the environment.
//   - A `${VAR}` whose VAR is unset is an error naming every missing variable.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00POSTINSIGHTS_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	braced := bracedNames(s)

	out := os.Expand(s, func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok {
			if _, required := braced[name]; required {
				missing[name] = struct{}{}
			}
		}
		return v
	})

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
	}
	return strings.ReplaceAll(out, dollarSentinel, "$"), nil
}

// bracedNames collects the names used in ${NAME} form.
func bracedNames(s string) map[string]struct{} {
	names := make(map[string]struct{})
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return names
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			return names
		}
		names[s[start+2:start+end]] = struct{}{}
		s = s[start+end+1:]
	}
}
