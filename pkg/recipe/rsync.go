package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
)

var ErrNoBuildRoot = errors.New("build_root is not set")

// excludes lists paths never shipped to a host. package.json appears twice in
// the historical list; ExcludeGlobs collapses it.
var excludes = []string{
	".git",
	".github",
	"deploy.php",
	"composer.lock",
	".env",
	".env.example",
	".gitignore",
	".gitlab-ci.yml",
	"Gruntfile.js",
	"package.json",
	"README.md",
	"gulpfile.js",
	".circleci",
	"package-lock.json",
	"package.json",
	"phpcs.xml",
}

var rsyncOptions = []string{
	"--delete",
	"--delete-excluded",
	"--links",
	"--no-perms",
	"--no-owner",
	"--no-group",
	"--timeout=300",
}

const rsyncFlags = "-rz"

// ExcludeGlobs returns the exclusion set without duplicates, in first-seen order.
func ExcludeGlobs() []string {
	seen := make(map[string]bool, len(excludes))
	out := make([]string, 0, len(excludes))
	for _, e := range excludes {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// RsyncCommand builds the local command that copies the build into the
// release directory of rc's host.
func RsyncCommand(rc *pipeline.RunContext) (string, error) {
	src := strings.TrimRight(rc.Config.BuildRoot, "/")
	if src == "" {
		return "", ErrNoBuildRoot
	}
	host := rc.Host.Host

	ssh := []string{"ssh"}
	key := rc.Config.SSHKeyPath
	if host.IdentityFile != "" {
		key = host.IdentityFile
	}
	if key != "" {
		ssh = append(ssh, "-i", key)
	}
	ssh = append(ssh, host.SSHArgs()...)

	args := []string{"rsync", rsyncFlags}
	args = append(args, rsyncOptions...)
	for _, e := range ExcludeGlobs() {
		args = append(args, "--exclude="+executor.Quote(e))
	}
	args = append(args,
		"-e", executor.Quote(strings.Join(ssh, " ")),
		executor.Quote(src+"/"),
		executor.Quote(fmt.Sprintf("%s@%s:%s/", host.User, host.Hostname, rc.Host.ReleasePath())),
	)
	return strings.Join(args, " "), nil
}

func syncRelease(ctx context.Context, rc *pipeline.RunContext) error {
	cmd, err := RsyncCommand(rc)
	if err != nil {
		return err
	}
	_, err = rc.RunLocally(ctx, cmd)
	return err
}
