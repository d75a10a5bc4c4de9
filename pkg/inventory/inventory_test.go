package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andrej220/wpdeploy/pkg/config/filestore"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostsYAML = `
main:
  hostname: example.com
  user: root
  deploy_path: /var/www/example.com/htdocs
  permission: deploy:deploy
staging:
  hostname: staging.example.com
  user: deploy
  port: 2222
  deploy_path: /var/www/staging/htdocs
`

func loadYAML(t *testing.T, content string) (inventory.Inventory, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return inventory.Load(filestore.New(path))
}

func TestLoad(t *testing.T) {
	inv, err := loadYAML(t, hostsYAML)
	require.NoError(t, err)
	require.Len(t, inv, 2)

	main := inv["main"]
	assert.Equal(t, "main", main.Alias)
	assert.Equal(t, "main", main.Branch)
	assert.Equal(t, inventory.DefaultSSHPort, main.Port)
	assert.Equal(t, "example.com:22", main.Address())

	staging := inv["staging"]
	assert.Equal(t, 2222, staging.Port)
	assert.Equal(t, "staging.example.com:2222", staging.Address())
}

func TestLoadRejectsInvalidHosts(t *testing.T) {
	tests := map[string]string{
		"empty":            "{}\n",
		"missing hostname": "main:\n  user: root\n  deploy_path: /srv\n",
		"missing path":     "main:\n  hostname: a\n  user: root\n",
		"bad port":         "main:\n  hostname: a\n  user: root\n  deploy_path: /srv\n  port: 70000\n",
		"bad permission":   "main:\n  hostname: a\n  user: root\n  deploy_path: /srv\n  permission: deploy\n",
		"null host":        "main:\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadYAML(t, content)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := inventory.Load(filestore.New(filepath.Join(t.TempDir(), "nope.yml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPermission(t *testing.T) {
	inv := inventory.Inventory{
		"main":    {Permission: "deploy:deploy"},
		"staging": {Permission: " "},
		"broken":  {Permission: "deploy:deploy; rm -rf /"},
	}

	perm, err := inv.Permission("main")
	require.NoError(t, err)
	assert.Equal(t, "deploy:deploy", perm)

	_, err = inv.Permission("staging")
	assert.ErrorIs(t, err, inventory.ErrPermissionMissing)

	_, err = inv.Permission("feature")
	assert.ErrorIs(t, err, inventory.ErrBranchNotFound)

	_, err = inv.Permission("broken")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	inv, err := loadYAML(t, hostsYAML)
	require.NoError(t, err)

	all, err := inv.Select()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "main", all[0].Alias)
	assert.Equal(t, "staging", all[1].Alias)

	aliases := []string{"staging", "main"}
	some, err := inv.Select(aliases...)
	require.NoError(t, err)
	assert.Equal(t, "main", some[0].Alias)
	assert.Equal(t, []string{"staging", "main"}, aliases)

	_, err = inv.Select("main", "feature")
	assert.ErrorIs(t, err, inventory.ErrBranchNotFound)
}

func TestApplySSHDefaults(t *testing.T) {
	inv, err := loadYAML(t, hostsYAML)
	require.NoError(t, err)

	inv.ApplySSHDefaults()

	assert.Equal(t,
		[]string{"-o", "StrictHostKeyChecking=no", "-o", "UserKnownHostsFile=/dev/null"},
		inv["main"].SSHArgs())
	assert.Equal(t,
		[]string{"-p", "2222", "-o", "StrictHostKeyChecking=no", "-o", "UserKnownHostsFile=/dev/null"},
		inv["staging"].SSHArgs())
}
