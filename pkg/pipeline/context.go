package pipeline

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/andrej220/wpdeploy/pkg/lg"
	"github.com/andrej220/wpdeploy/pkg/probe"
)

// HostContext is the per-target path state of one run.
type HostContext struct {
	Host        *inventory.Host
	ReleaseName string
}

func (h *HostContext) DeployPath() string  { return h.Host.DeployPath }
func (h *HostContext) ReleasePath() string { return path.Join(h.Host.DeployPath, "release") }
func (h *HostContext) CurrentPath() string { return path.Join(h.Host.DeployPath, "current") }

// Vars are the placeholders commands may reference.
func (h *HostContext) Vars() map[string]string {
	return map[string]string{
		"deploy_path":  h.DeployPath(),
		"release_path": h.ReleasePath(),
		"current_path": h.CurrentPath(),
		"release_name": h.ReleaseName,
		"hostname":     h.Host.Hostname,
		"user":         h.Host.User,
		"branch":       h.Host.Branch,
	}
}

// Console serialises operator output of hosts running side by side.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

// Writeln prints text line by line, each prefixed with the host alias.
func (c *Console) Writeln(host, text string) {
	if c == nil || text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(c.w, "[%s] %s\n", host, line)
	}
}

// RunContext is handed to every leaf action of a run on one host.
type RunContext struct {
	Config    *config.Config
	Inventory inventory.Inventory
	Host      *HostContext
	Remote    executor.Executor
	Local     executor.Executor
	Console   *Console
	Logger    lg.Logger
}

func (rc *RunContext) logger() lg.Logger {
	if rc.Logger == nil {
		return lg.Discard
	}
	return rc.Logger
}

// Render fills the host placeholders of command.
func (rc *RunContext) Render(command string) (string, error) {
	return executor.Render(command, rc.Host.Vars())
}

// Run executes command on the host and echoes its output.
func (rc *RunContext) Run(ctx context.Context, command string) (string, error) {
	return rc.exec(ctx, rc.Remote, command)
}

// RunLocally executes command on the deploying machine and echoes its output.
func (rc *RunContext) RunLocally(ctx context.Context, command string) (string, error) {
	return rc.exec(ctx, rc.Local, command)
}

func (rc *RunContext) exec(ctx context.Context, ex executor.Executor, command string) (string, error) {
	cmd, err := rc.Render(command)
	if err != nil {
		return "", err
	}
	if ex == nil {
		return "", fmt.Errorf("no executor for %q", cmd)
	}
	logger := rc.logger()
	logger.Debug("run", lg.String("command", cmd))
	out, _, err := ex.Run(lg.Attach(ctx, logger), cmd)
	output := executor.Output(out)
	rc.Console.Writeln(rc.Host.Host.Alias, output)
	if err != nil {
		return output, err
	}
	return output, nil
}

// Probe runs a detection command; a failed probe is a normal outcome.
func (rc *RunContext) Probe(ctx context.Context, command string) probe.Result {
	cmd, err := rc.Render(command)
	if err != nil {
		rc.logger().Warn("probe not rendered", lg.Err(err))
		return probe.Result{}
	}
	return probe.Run(lg.Attach(ctx, rc.logger()), rc.Remote, cmd)
}

// Notice tells the operator about a decision that does not stop the run.
func (rc *RunContext) Notice(msg string) {
	rc.logger().Info(msg)
	rc.Console.Writeln(rc.Host.Host.Alias, msg)
}
