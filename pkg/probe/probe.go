// Package probe runs detection commands and selects branches from their output.
//
// A probe never fails: a tool that is missing or errors out yields a Result
// with Found set to false.
package probe

import (
	"context"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/lg"
)

// Version probes used by the recipe.
const (
	EasyEngineVersion = "ee --version"
	PHPMajorVersionEE = `cd {{deploy_path}} && ee shell --command="php -r 'echo PHP_MAJOR_VERSION;'" --skip-tty`
)

// Output patterns of `ee --version`.
const (
	EasyEngineV3 = "EasyEngine v3"
	EasyEngineV4 = "EE 4"
)

type Result struct {
	Output string
	Found  bool
}

// Run executes command and reports its trimmed stdout. Failures are logged
// at debug level and turned into a not-found Result.
func Run(ctx context.Context, exec executor.Executor, command string) Result {
	out, _, err := exec.Run(ctx, command)
	if err != nil {
		lg.FromContext(ctx).Debug("probe failed", lg.String("command", command), lg.Err(err))
		return Result{}
	}
	return Result{Output: executor.Output(out), Found: true}
}

// Branch pairs a substring pattern with the value chosen when it matches.
type Branch[T any] struct {
	Pattern string
	Value   T
}

// Match returns the value of the first branch whose pattern occurs in output.
// Order is significant: when several patterns match, the earliest wins.
func Match[T any](output string, branches ...Branch[T]) (T, bool) {
	for _, b := range branches {
		if strings.Contains(output, b.Pattern) {
			return b.Value, true
		}
	}
	var zero T
	return zero, false
}

// Select is Match over a probe Result; a not-found result never matches.
func (r Result) Select(patterns ...string) (string, bool) {
	if !r.Found {
		return "", false
	}
	branches := make([]Branch[string], len(patterns))
	for i, p := range patterns {
		branches[i] = Branch[string]{Pattern: p, Value: p}
	}
	return Match(r.Output, branches...)
}
