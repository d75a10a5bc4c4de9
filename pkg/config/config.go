// Package config builds the immutable run configuration from the process
// environment. It is constructed once at startup and passed to every task.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultInventoryPath = "/hosts.yml"
	DefaultKeepReleases  = 5
	addonRelPath         = ".github/deploy/addon.yml"
	envPrefix            = "DEPLOY"
)

// Config holds everything a deployment run reads from the environment.
type Config struct {
	// SkipWPTasks is kept verbatim, only the exact string "true" selects the
	// reduced task list.
	SkipWPTasks     string
	PHPVersion      string
	ComposerHome    string
	BuildRoot       string
	GitHubWorkspace string

	InventoryPath string
	AddonPath     string
	SSHKeyPath    string
	KeepReleases  int      `validate:"min=1"`
	SharedDirs    []string `validate:"dive,required"`

	Events EventsConfig
	Mongo  MongoConfig
}

// EventsConfig enables upward reporting to Kafka when Brokers is not empty.
type EventsConfig struct {
	Brokers []string `validate:"dive,hostname_port"`
	Topic   string   `validate:"required_with=Brokers"`
}

// MongoConfig selects a MongoDB document as the inventory source.
type MongoConfig struct {
	URI      string
	DBName   string `validate:"required_with=URI"`
	CollName string `validate:"required_with=URI"`
	ID       string `validate:"required_with=URI"`
}

// SkipWordPress reports whether the non-WordPress task list is selected.
func (c *Config) SkipWordPress() bool {
	return c.SkipWPTasks == "true"
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("inventory", DefaultInventoryPath)
	v.SetDefault("keep_releases", DefaultKeepReleases)
	v.SetDefault("events.topic", "deployments")
	v.SetDefault("inventory_mongo.db", "wpdeploy")
	v.SetDefault("inventory_mongo.collection", "inventories")

	// variables shared with the CI environment keep their original names
	for key, env := range map[string]string{
		"skip_wp_tasks":    "SKIP_WP_TASKS",
		"php_version":      "PHP_VERSION",
		"composer_home":    "COMPOSER_HOME",
		"build_root":       "build_root",
		"github_workspace": "GITHUB_WORKSPACE",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		SkipWPTasks:     v.GetString("skip_wp_tasks"),
		PHPVersion:      strings.TrimSpace(v.GetString("php_version")),
		ComposerHome:    v.GetString("composer_home"),
		BuildRoot:       v.GetString("build_root"),
		GitHubWorkspace: v.GetString("github_workspace"),
		InventoryPath:   v.GetString("inventory"),
		SSHKeyPath:      v.GetString("ssh_key"),
		KeepReleases:    v.GetInt("keep_releases"),
		SharedDirs:      []string{"wp-content/uploads"},
		Events: EventsConfig{
			Brokers: splitList(v.GetString("events.brokers")),
			Topic:   v.GetString("events.topic"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("inventory_mongo.uri"),
			DBName:   v.GetString("inventory_mongo.db"),
			CollName: v.GetString("inventory_mongo.collection"),
			ID:       v.GetString("inventory_mongo.id"),
		},
	}

	cfg.AddonPath = v.GetString("addon")
	if cfg.AddonPath == "" && cfg.GitHubWorkspace != "" {
		cfg.AddonPath = filepath.Join(cfg.GitHubWorkspace, addonRelPath)
	}

	if cfg.SSHKeyPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.SSHKeyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints of a Config built by hand or by Load.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.InventoryPath == "" && cfg.Mongo.URI == "" {
		return fmt.Errorf("invalid configuration: no inventory source")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
