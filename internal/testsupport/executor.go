// Package testsupport holds fakes shared by package tests.
package testsupport

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
)

type rule struct {
	contains string
	stdout   []string
	err      *executor.RemoteError
}

// ScriptedExecutor answers commands from rules matched by substring, first
// rule wins. Unmatched commands succeed with no output. Every command is
// recorded.
type ScriptedExecutor struct {
	mu    sync.Mutex
	rules []rule
	calls []string
}

func NewScriptedExecutor() *ScriptedExecutor { return &ScriptedExecutor{} }

// On makes commands containing s print stdout.
func (e *ScriptedExecutor) On(s string, stdout ...string) *ScriptedExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{contains: s, stdout: stdout})
	return e
}

// Fail makes commands containing s exit with status 1 and stderr.
func (e *ScriptedExecutor) Fail(s string, stderr ...string) *ScriptedExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule{contains: s, err: &executor.RemoteError{Command: s, ExitStatus: 1, Stderr: stderr}})
	return e
}

func (e *ScriptedExecutor) Run(_ context.Context, command string) ([]string, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, command)
	for _, r := range e.rules {
		if !strings.Contains(command, r.contains) {
			continue
		}
		if r.err != nil {
			return nil, r.err.Stderr, r.err
		}
		return r.stdout, nil, nil
	}
	return nil, nil, nil
}

// Calls returns the commands run so far.
func (e *ScriptedExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Host returns a ready to use inventory host.
func Host(alias string) *inventory.Host {
	return &inventory.Host{
		Hostname:   alias + ".example.com",
		User:       "deploy",
		Port:       22,
		DeployPath: "/var/www/" + alias + "/htdocs",
		Alias:      alias,
		Branch:     alias,
		SSHOptions: map[string]string{},
	}
}

// Config returns a configuration with the defaults Load would apply.
func Config() *config.Config {
	return &config.Config{
		InventoryPath: config.DefaultInventoryPath,
		KeepReleases:  config.DefaultKeepReleases,
		SharedDirs:    []string{"wp-content/uploads"},
		BuildRoot:     "/github/workspace/build",
		SSHKeyPath:    "/root/.ssh/id_rsa",
	}
}

// RunContext wires a run on host with remote and local fakes. Console output
// is collected in the returned buffer.
func RunContext(cfg *config.Config, inv inventory.Inventory, host *inventory.Host, remote, local executor.Executor) (*pipeline.RunContext, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &pipeline.RunContext{
		Config:    cfg,
		Inventory: inv,
		Host:      &pipeline.HostContext{Host: host, ReleaseName: "20261014120000"},
		Remote:    remote,
		Local:     local,
		Console:   pipeline.NewConsole(out),
	}, out
}
