// Package inventory maps branch names to the hosts they deploy to.
package inventory

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/config/configstore"
	"github.com/go-playground/validator/v10"
)

var (
	ErrBranchNotFound    = errors.New("branch not found in inventory")
	ErrPermissionMissing = errors.New("permission not set for branch")
	ErrEmptyInventory    = errors.New("inventory has no hosts")
)

const DefaultSSHPort = 22

var permissionRE = regexp.MustCompile(`^[a-zA-Z0-9._-]+:[a-zA-Z0-9._-]+$`)

// Host is one entry of the inventory file.
type Host struct {
	Hostname     string `yaml:"hostname" bson:"hostname" validate:"required"`
	User         string `yaml:"user" bson:"user" validate:"required"`
	Port         int    `yaml:"port,omitempty" bson:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	DeployPath   string `yaml:"deploy_path" bson:"deploy_path" validate:"required"`
	Permission   string `yaml:"permission,omitempty" bson:"permission,omitempty" validate:"omitempty,contains=:"`
	IdentityFile string `yaml:"identity_file,omitempty" bson:"identity_file,omitempty"`
	// Branch overrides the alias as the branch used for inventory lookups.
	Branch string `yaml:"branch,omitempty" bson:"branch,omitempty"`

	Alias      string            `yaml:"-" bson:"-"`
	SSHOptions map[string]string `yaml:"-" bson:"-"`
}

// Inventory is the branch → host mapping.
type Inventory map[string]*Host

var validate = validator.New()

// Load reads and validates the inventory from store.
func Load(store configstore.ConfigStore) (Inventory, error) {
	inv := Inventory{}
	if err := store.Load(&inv); err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	if len(inv) == 0 {
		return nil, ErrEmptyInventory
	}
	for alias, h := range inv {
		if h == nil {
			return nil, fmt.Errorf("host %q: empty descriptor", alias)
		}
		if err := validate.Struct(h); err != nil {
			return nil, fmt.Errorf("host %q: %w", alias, err)
		}
		h.Alias = alias
		if h.Port == 0 {
			h.Port = DefaultSSHPort
		}
		if h.Branch == "" {
			h.Branch = alias
		}
	}
	return inv, nil
}

// ApplySSHDefaults injects the non-interactive host key options into every
// host. It must run once, before hosts are handed to concurrent workers.
func (inv Inventory) ApplySSHDefaults() {
	for _, h := range inv {
		if h.SSHOptions == nil {
			h.SSHOptions = map[string]string{}
		}
		h.SSHOptions["UserKnownHostsFile"] = "/dev/null"
		h.SSHOptions["StrictHostKeyChecking"] = "no"
	}
}

// Lookup returns the host registered for branch.
func (inv Inventory) Lookup(branch string) (*Host, error) {
	h, ok := inv[branch]
	if !ok || h == nil {
		return nil, fmt.Errorf("%w: %q", ErrBranchNotFound, branch)
	}
	return h, nil
}

// Permission returns the owner:group string configured for branch.
func (inv Inventory) Permission(branch string) (string, error) {
	h, err := inv.Lookup(branch)
	if err != nil {
		return "", err
	}
	perm := strings.TrimSpace(h.Permission)
	if perm == "" {
		return "", fmt.Errorf("%w: %q", ErrPermissionMissing, branch)
	}
	if !permissionRE.MatchString(perm) {
		return "", fmt.Errorf("branch %q: malformed permission %q, want owner:group", branch, perm)
	}
	return perm, nil
}

// Select returns the hosts named by aliases, or every host when aliases is empty.
// The result is sorted by alias.
func (inv Inventory) Select(aliases ...string) ([]*Host, error) {
	aliases = append([]string(nil), aliases...)
	if len(aliases) == 0 {
		for a := range inv {
			aliases = append(aliases, a)
		}
	}
	sort.Strings(aliases)
	hosts := make([]*Host, 0, len(aliases))
	for _, a := range aliases {
		h, err := inv.Lookup(a)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// Address returns host:port for dialing.
func (h *Host) Address() string {
	return fmt.Sprintf("%s:%d", h.Hostname, h.Port)
}

// SSHArgs renders the SSH options as "-o Key=Value" arguments in a stable order.
func (h *Host) SSHArgs() []string {
	keys := make([]string, 0, len(h.SSHOptions))
	for k := range h.SSHOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, 2*len(keys)+2)
	if h.Port != 0 && h.Port != DefaultSSHPort {
		args = append(args, "-p", fmt.Sprint(h.Port))
	}
	for _, k := range keys {
		args = append(args, "-o", k+"="+h.SSHOptions[k])
	}
	return args
}
