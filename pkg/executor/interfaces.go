package executor

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs a command over SSH (or any transport) and returns the
// output as string slices.
type Executor interface {
	Run(ctx context.Context, command string) (stdoutLines, stderrLines []string, err error)
}

// RemoteError is returned when a command ran but exited with a failure.
type RemoteError struct {
	Command    string
	ExitStatus int
	Stderr     []string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitStatus)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "\n")
	}
	return msg
}

// Output joins stdout lines the way operators expect to read them.
func Output(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
