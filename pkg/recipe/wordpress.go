package recipe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/pipeline"
	"github.com/andrej220/wpdeploy/pkg/probe"
)

const (
	cachetoolLegacyURL = "https://github.com/gordalina/cachetool/releases/download/5.1.3/cachetool.phar"
	cachetoolURL       = "https://github.com/gordalina/cachetool/releases/download/8.4.0/cachetool.phar"
	fallbackPHPVersion = "7.4"
	defaultOwner       = "www-data:www-data"

	wpConfigCommand = `[ ! -f {{release_path}}/../wp-config.php ] && cd {{release_path}}/../ && ln -sn ../wp-config.php && echo "Created Symlink for wp-config.php." || echo ""`
)

func wordpressTasks() []taskDef {
	return []taskDef{
		{"cachetool:download", "Download cachetool", downloadCachetool},
		{"opcache:reset", "Reset opcache", resetOpcache},
		{"core_db:update", "Upgrade WordPress DB", updateCoreDB},
		{"wp:config", "Symlink wp-config.php", linkWPConfig},
		{"permissions:set", "Correct Permissions", setPermissions},
	}
}

// detectEasyEngine probes for EasyEngine; absence is reported, not returned.
func detectEasyEngine(ctx context.Context, rc *pipeline.RunContext) probe.Result {
	res := rc.Probe(ctx, probe.EasyEngineVersion)
	if !res.Found {
		rc.Notice("Not using EasyEngine.")
	}
	return res
}

// easyEngineCommand picks the command for the detected EasyEngine major.
func easyEngineCommand(ee probe.Result, v3, v4 string) (string, bool) {
	if !ee.Found {
		return "", false
	}
	return probe.Match(ee.Output,
		probe.Branch[string]{Pattern: probe.EasyEngineV3, Value: v3},
		probe.Branch[string]{Pattern: probe.EasyEngineV4, Value: v4},
	)
}

func downloadCachetool(ctx context.Context, rc *pipeline.RunContext) error {
	version := rc.Config.PHPVersion
	if version == "" {
		ee := detectEasyEngine(ctx, rc)
		if _, ok := ee.Select(probe.EasyEngineV4); ok {
			if php := rc.Probe(ctx, probe.PHPMajorVersionEE); php.Found && php.Output != "" {
				version = php.Output
			} else {
				rc.Notice("Could not determine PHP version. Use `PHP_VERSION` env variable to specify the version.")
				rc.Notice("Falling back to version " + fallbackPHPVersion + " as default")
				version = fallbackPHPVersion
			}
		}
	}

	_, err := rc.Run(ctx, fmt.Sprintf("wget %s -O {{release_path}}/cachetool.phar", CachetoolURL(version)))
	return err
}

// CachetoolURL returns the cachetool build for phpVersion. Cachetool 5.x
// covers PHP >= 7.2 and is used for anything older than PHP 8, including an
// unknown version.
func CachetoolURL(phpVersion string) string {
	if phpMajor(phpVersion) < 8 {
		return cachetoolLegacyURL
	}
	return cachetoolURL
}

func phpMajor(v string) int {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func resetOpcache(ctx context.Context, rc *pipeline.RunContext) error {
	cmd, ok := easyEngineCommand(detectEasyEngine(ctx, rc),
		"php {{release_path}}/cachetool.phar opcache:reset --fcgi=127.0.0.1:9070",
		`cd {{deploy_path}} && ee shell --command="php current/cachetool.phar opcache:reset --fcgi=127.0.0.1:9000" --skip-tty`,
	)
	if !ok {
		const msg = "Skipping opcache reset as EasyEngine is not installed."
		rc.Notice(msg)
		return pipeline.Skip(msg)
	}
	_, err := rc.Run(ctx, cmd)
	return err
}

func updateCoreDB(ctx context.Context, rc *pipeline.RunContext) error {
	cmd, ok := easyEngineCommand(detectEasyEngine(ctx, rc),
		"cd {{release_path}} && wp core update-db",
		`cd {{deploy_path}} && cd current && ee shell --command="wp core update-db" --skip-tty`,
	)
	if !ok {
		const msg = "Skipping WordPress db core update as EasyEngine is not installed."
		rc.Notice(msg)
		return pipeline.Skip(msg)
	}
	_, err := rc.Run(ctx, cmd)
	return err
}

// linkWPConfig checks for the link and creates it in the same command, so a
// second run is a no-op.
func linkWPConfig(ctx context.Context, rc *pipeline.RunContext) error {
	_, err := rc.Run(ctx, wpConfigCommand)
	return err
}

// setPermissions hands the release to the branch's owner on EasyEngine hosts
// and to the web server user everywhere else.
func setPermissions(ctx context.Context, rc *pipeline.RunContext) error {
	ee := detectEasyEngine(ctx, rc)
	if _, ok := ee.Select(probe.EasyEngineV3, probe.EasyEngineV4); !ok {
		_, err := rc.Run(ctx, "chown -R "+defaultOwner+" {{deploy_path}}")
		return err
	}

	owner, err := rc.Inventory.Permission(rc.Host.Host.Branch)
	if err != nil {
		return err
	}
	_, err = rc.Run(ctx, PermissionCommand(owner))
	return err
}

// PermissionCommand chowns the release to owner and strips access for others
// from current, as one remote command.
func PermissionCommand(owner string) string {
	return fmt.Sprintf("chown -R %s {{release_path}}/ && chmod -R o-rwx {{current_path}}", owner)
}
