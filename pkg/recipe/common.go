package recipe

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/pipeline"
)

var ErrLocked = errors.New("deploy is locked")

const lockedMarker = "locked"

func commonTasks() []taskDef {
	return []taskDef{
		{"deploy:prepare", "Prepare the host for deployment", prepare},
		{"deploy:lock", "Lock deploy", lock},
		{"deploy:unlock", "Unlock deploy", unlock},
		{"deploy:release", "Create the release directory", release},
		{"deploy:shared", "Link shared directories", shared},
		{"deploy:symlink", "Point current at the release", symlink},
		{"cleanup", "Remove old releases", cleanup},
		{SuccessTask, "Report a successful deployment", success},
	}
}

func prepare(ctx context.Context, rc *pipeline.RunContext) error {
	_, err := rc.Run(ctx, "mkdir -p {{deploy_path}}/.dep {{deploy_path}}/releases {{deploy_path}}/shared")
	return err
}

// lock relies on mkdir being atomic.
func lock(ctx context.Context, rc *pipeline.RunContext) error {
	out, err := rc.Run(ctx, "mkdir {{deploy_path}}/.dep/deploy.lock 2>/dev/null || echo "+lockedMarker)
	if err != nil {
		return err
	}
	if out == lockedMarker {
		return fmt.Errorf("%w: remove %s/.dep/deploy.lock or run deploy:unlock", ErrLocked, rc.Host.DeployPath())
	}
	return nil
}

func unlock(ctx context.Context, rc *pipeline.RunContext) error {
	_, err := rc.Run(ctx, "rm -rf {{deploy_path}}/.dep/deploy.lock")
	return err
}

func release(ctx context.Context, rc *pipeline.RunContext) error {
	_, err := rc.Run(ctx, "cd {{deploy_path}} && mkdir -p releases/{{release_name}} && ln -sfn releases/{{release_name}} release")
	return err
}

// shared links each shared directory into the release in a single command.
// A shared directory created for the first time is seeded with the release's
// copy, if the build ships one.
func shared(ctx context.Context, rc *pipeline.RunContext) error {
	if len(rc.Config.SharedDirs) == 0 {
		return nil
	}
	steps := make([]string, 0, len(rc.Config.SharedDirs))
	for _, dir := range rc.Config.SharedDirs {
		dir = strings.Trim(dir, "/")
		steps = append(steps, fmt.Sprintf(
			"if [ ! -d {{deploy_path}}/shared/%[1]s ]; then mkdir -p {{deploy_path}}/shared/%[2]s && if [ -d {{release_path}}/%[1]s ]; then cp -a {{release_path}}/%[1]s {{deploy_path}}/shared/%[2]s/; fi; fi"+
				" && mkdir -p {{deploy_path}}/shared/%[1]s && rm -rf {{release_path}}/%[1]s && mkdir -p {{release_path}}/%[2]s && ln -sfn {{deploy_path}}/shared/%[1]s {{release_path}}/%[1]s",
			dir, path.Dir(dir)))
	}
	_, err := rc.Run(ctx, strings.Join(steps, " && "))
	return err
}

// symlink swaps current with a rename so it never dangles.
func symlink(ctx context.Context, rc *pipeline.RunContext) error {
	_, err := rc.Run(ctx, "cd {{deploy_path}} && ln -sfn releases/{{release_name}} current.tmp && mv -fT current.tmp current")
	return err
}

func cleanup(ctx context.Context, rc *pipeline.RunContext) error {
	keep := rc.Config.KeepReleases
	if keep < 1 {
		keep = 1
	}
	_, err := rc.Run(ctx, fmt.Sprintf(
		"cd {{deploy_path}}/releases && ls -1 | sort -r | tail -n +%d | xargs -r rm -rf && rm -f {{deploy_path}}/release", keep+1))
	return err
}

func success(_ context.Context, rc *pipeline.RunContext) error {
	rc.Console.Writeln(rc.Host.Host.Alias, "Successfully deployed!")
	return nil
}
