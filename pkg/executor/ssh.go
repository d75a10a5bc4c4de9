package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/andrej220/wpdeploy/pkg/lg"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"
)

var _ Executor = (*SSHExecutor)(nil)

// SSHExecutor runs commands remotely. Opening a session is retried with
// backoff behind a circuit breaker; the command itself is never retried.
type SSHExecutor struct {
	client *ResilientSSHClient
}

func NewSSHExecutor(client *ResilientSSHClient) *SSHExecutor {
	return &SSHExecutor{client: client}
}

// Run starts command and waits for it to finish. A cancelled ctx stops the
// session retries but not a command that already started.
func (e *SSHExecutor) Run(ctx context.Context, command string) ([]string, []string, error) {
	sess, err := e.openSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := sess.Start(command); err != nil {
		return nil, nil, fmt.Errorf("start command: %w", err)
	}

	var outLines, errLines []string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); outLines = scanLines(ctx, stdout) }()
	go func() { defer wg.Done(); errLines = scanLines(ctx, stderr) }()
	wg.Wait()

	if err := sess.Wait(); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return outLines, errLines, &RemoteError{Command: command, ExitStatus: exitErr.ExitStatus(), Stderr: errLines}
		}
		return outLines, errLines, fmt.Errorf("wait command: %w", err)
	}
	return outLines, errLines, nil
}

func (e *SSHExecutor) openSession(ctx context.Context) (*ssh.Session, error) {
	var sess *ssh.Session
	operation := func() error {
		res, err := e.client.ResConf.CircuitBreaker.Execute(func() (any, error) {
			return e.client.SSHClient.NewSession()
		})
		if err != nil {
			return fmt.Errorf("new session: %w", err)
		}
		sess = res.(*ssh.Session)
		return nil
	}

	b := backoff.WithContext(e.client.ResConf.BackoffSettings, ctx)
	notify := func(err error, wait time.Duration) {
		lg.FromContext(ctx).Warn("ssh session retry", lg.Err(err), lg.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return sess, nil
}

func scanLines(ctx context.Context, r io.Reader) []string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		lg.FromContext(ctx).Warn("scan error", lg.Err(err))
	}
	return lines
}
