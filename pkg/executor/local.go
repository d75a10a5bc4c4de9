package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var _ Executor = (*LocalExecutor)(nil)

// LocalExecutor runs commands on the machine driving the deployment.
type LocalExecutor struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// ExtraPath entries are prepended to PATH.
	ExtraPath []string
}

// NewLocalExecutor adds COMPOSER_HOME's vendor/bin to the search path so
// composer-installed tooling is found.
func NewLocalExecutor(composerHome string) *LocalExecutor {
	e := &LocalExecutor{}
	if composerHome != "" {
		e.ExtraPath = append(e.ExtraPath, filepath.Join(composerHome, "vendor", "bin"))
	}
	return e
}

func (e *LocalExecutor) Run(ctx context.Context, command string) ([]string, []string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.Dir
	if len(e.ExtraPath) > 0 {
		path := strings.Join(append(append([]string{}, e.ExtraPath...), os.Getenv("PATH")), string(os.PathListSeparator))
		cmd.Env = append(os.Environ(), "PATH="+path)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outLines, errLines := splitLines(stdout.String()), splitLines(stderr.String())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return outLines, errLines, &RemoteError{Command: command, ExitStatus: exitErr.ExitCode(), Stderr: errLines}
		}
		return outLines, errLines, err
	}
	return outLines, errLines, nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
