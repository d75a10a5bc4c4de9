package executor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render replaces {{key}} placeholders in command with values from vars.
// Unknown keys are an error so a typo never reaches a remote shell.
func Render(command string, vars map[string]string) (string, error) {
	missing := map[string]struct{}{}
	out := placeholder.ReplaceAllStringFunc(command, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			missing[key] = struct{}{}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("unknown placeholder(s) %s in %q", strings.Join(keys, ", "), command)
	}
	return out, nil
}

// Quote wraps s in single quotes for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
