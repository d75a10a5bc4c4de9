package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/andrej220/wpdeploy/internal/testsupport"
	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/andrej220/wpdeploy/pkg/lg"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
	dm "github.com/andrej220/wpdeploy/pkg/shared-models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInventory = `
main:
  hostname: example.com
  user: deploy
  deploy_path: /var/www/main/htdocs
  permission: deploy:deploy
staging:
  hostname: staging.example.com
  user: deploy
  deploy_path: /var/www/staging/htdocs
`

type fakeHosts struct {
	mu      sync.Mutex
	remotes map[string]*testsupport.ScriptedExecutor
	closed  map[string]bool
}

func newFakeHosts() *fakeHosts {
	return &fakeHosts{remotes: map[string]*testsupport.ScriptedExecutor{}, closed: map[string]bool{}}
}

func (f *fakeHosts) remote(alias string) *testsupport.ScriptedExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.remotes[alias]; ok {
		return e
	}
	e := testsupport.NewScriptedExecutor()
	f.remotes[alias] = e
	return e
}

func (f *fakeHosts) connect(host *inventory.Host) (executor.Executor, func() error, error) {
	e := f.remote(host.Alias)
	return e, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closed[host.Alias] = true
		return nil
	}, nil
}

func newTestApp(t *testing.T, hosts *fakeHosts) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yml")
	require.NoError(t, os.WriteFile(path, []byte(testInventory), 0o600))

	cfg := testsupport.Config()
	cfg.InventoryPath = path
	return &app{
		logger:  lg.Discard,
		cfg:     cfg,
		connect: hosts.connect,
		local:   testsupport.NewScriptedExecutor(),
	}
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd, out
}

func readReport(t *testing.T, path string) dm.RunReport {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report dm.RunReport
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}

func TestDeployAllHostsSucceed(t *testing.T) {
	hosts := newFakeHosts()
	a := newTestApp(t, hosts)
	cmd, out := testCommand()
	reportPath := filepath.Join(t.TempDir(), "report.json")

	err := a.deploy(context.Background(), cmd, nil, deployOptions{parallel: 2, report: reportPath})
	require.NoError(t, err)

	report := readReport(t, reportPath)
	assert.True(t, report.Success)
	assert.Len(t, report.Hosts, 2)
	assert.Contains(t, out.String(), "[main] Successfully deployed!")
	assert.Contains(t, out.String(), "[staging] Successfully deployed!")
	assert.True(t, hosts.closed["main"])
	assert.True(t, hosts.closed["staging"])
}

func TestDeployOneHostFails(t *testing.T) {
	hosts := newFakeHosts()
	hosts.remote("staging").Fail("mkdir -p releases/", "mkdir: cannot create directory: Permission denied")
	a := newTestApp(t, hosts)
	cmd, out := testCommand()
	reportPath := filepath.Join(t.TempDir(), "report.json")

	err := a.deploy(context.Background(), cmd, nil, deployOptions{parallel: 2, report: reportPath})
	require.Error(t, err)

	var taskErr *pipeline.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "deploy:release", taskErr.Task)
	assert.Equal(t, "staging", taskErr.Host)
	assert.Contains(t, err.Error(), "Permission denied")

	report := readReport(t, reportPath)
	assert.False(t, report.Success)
	require.Len(t, report.Hosts, 2)
	for _, h := range report.Hosts {
		assert.Equal(t, h.Host == "main", h.Success, "host %s", h.Host)
	}

	assert.Contains(t, out.String(), "[main] Successfully deployed!")
	assert.NotContains(t, out.String(), "[staging] Successfully deployed!")
	for _, c := range hosts.remote("staging").Calls() {
		assert.NotContains(t, c, "mv -fT current.tmp current")
	}
}

func TestDeploySelectedHostOnly(t *testing.T) {
	hosts := newFakeHosts()
	a := newTestApp(t, hosts)
	cmd, _ := testCommand()

	require.NoError(t, a.deploy(context.Background(), cmd, []string{"main"}, deployOptions{parallel: 1}))

	assert.NotEmpty(t, hosts.remote("main").Calls())
	assert.Empty(t, hosts.remote("staging").Calls())
}

func TestDeployConnectFailure(t *testing.T) {
	hosts := newFakeHosts()
	a := newTestApp(t, hosts)
	dialErr := errors.New("connection refused")
	a.connect = func(host *inventory.Host) (executor.Executor, func() error, error) {
		if host.Alias == "staging" {
			return nil, nil, dialErr
		}
		return hosts.connect(host)
	}
	cmd, _ := testCommand()

	err := a.deploy(context.Background(), cmd, nil, deployOptions{parallel: 1})

	assert.ErrorIs(t, err, dialErr)
	assert.Contains(t, err.Error(), "host staging")
	assert.NotEmpty(t, hosts.remote("main").Calls())
}

func TestDeployRejectsParallelBelowOne(t *testing.T) {
	for _, n := range []int{0, -1} {
		hosts := newFakeHosts()
		a := newTestApp(t, hosts)
		cmd, _ := testCommand()

		err := a.deploy(context.Background(), cmd, nil, deployOptions{parallel: n})

		assert.ErrorIs(t, err, errParallel)
		assert.Empty(t, hosts.remotes)
	}
}
