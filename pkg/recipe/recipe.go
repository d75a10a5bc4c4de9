// Package recipe declares the deployment tasks for a WordPress site and the
// task lists they are run in.
package recipe

import (
	"fmt"

	"github.com/andrej220/wpdeploy/pkg/addon"
	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
)

const (
	DeployTask  = "deploy"
	SuccessTask = "success"
)

// FullTaskList is the WordPress deployment.
var FullTaskList = []string{
	"deploy:prepare",
	"deploy:unlock",
	"deploy:lock",
	"deploy:release",
	"rsync",
	"wp:config",
	"cachetool:download",
	"deploy:shared",
	"deploy:symlink",
	"permissions:set",
	"opcache:reset",
	"core_db:update",
	"deploy:unlock",
	"cleanup",
}

// ReducedTaskList skips every WordPress and PHP specific step.
var ReducedTaskList = []string{
	"deploy:prepare",
	"deploy:unlock",
	"deploy:lock",
	"deploy:release",
	"rsync",
	"deploy:shared",
	"deploy:symlink",
	"deploy:unlock",
	"cleanup",
}

// SelectTaskList returns a copy of the list cfg asks for.
func SelectTaskList(cfg *config.Config) []string {
	if cfg.SkipWordPress() {
		return append([]string(nil), ReducedTaskList...)
	}
	return append([]string(nil), FullTaskList...)
}

type taskDef struct {
	name   string
	desc   string
	action pipeline.Action
}

// Register adds every builtin task to reg.
func Register(reg *pipeline.Registry) error {
	var defs []taskDef
	defs = append(defs, commonTasks()...)
	defs = append(defs, taskDef{"rsync", "Sync the build to the release", syncRelease})
	defs = append(defs, wordpressTasks()...)
	for _, d := range defs {
		if err := reg.Leaf(d.name, d.desc, d.action); err != nil {
			return err
		}
	}
	return nil
}

// Build registers the tasks, selects the task list for cfg, hands it to each
// addon in turn and freezes the result as the deploy group. The returned plan
// is fully resolved.
func Build(cfg *config.Config, addons ...addon.Addon) (*pipeline.Registry, *pipeline.Plan, error) {
	reg := pipeline.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, nil, fmt.Errorf("register tasks: %w", err)
	}

	list := SelectTaskList(cfg)
	for _, a := range addons {
		if a == nil {
			continue
		}
		if err := a.Register(reg); err != nil {
			return nil, nil, fmt.Errorf("addon %s: %w", a.Name(), err)
		}
		next, err := a.ExtendTaskList(list)
		if err != nil {
			return nil, nil, fmt.Errorf("addon %s: %w", a.Name(), err)
		}
		list = next
	}

	if err := reg.Group(DeployTask, "Deploy the project", list...); err != nil {
		return nil, nil, err
	}
	reg.After(DeployTask, SuccessTask)

	plan, err := reg.Plan(DeployTask)
	if err != nil {
		return nil, nil, err
	}
	return reg, plan, nil
}
