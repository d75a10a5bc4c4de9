package main

import (
	"fmt"

	"github.com/andrej220/wpdeploy/pkg/addon"
	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/andrej220/wpdeploy/pkg/lg"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
	"github.com/andrej220/wpdeploy/pkg/recipe"
	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	logCfg lg.Config
	logger lg.Logger
	cfg    *config.Config

	// connect opens the remote executor for a host and returns its closer.
	connect func(host *inventory.Host) (executor.Executor, func() error, error)
	// local runs commands on the deploying machine; nil uses the shell.
	local executor.Executor
}

func newRootCommand() *cobra.Command {
	a := &app{logCfg: lg.Config{ServiceName: SERVICENAME}}
	a.connect = a.dialSSH

	rootCmd := &cobra.Command{
		Use:           SERVICENAME,
		Short:         "Deploy a WordPress build to the hosts of an inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = lg.New(&a.logCfg)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&a.logCfg.Debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.logCfg.Format, "log-format", "console", "json or console")

	rootCmd.AddCommand(newDeployCommand(a))
	rootCmd.AddCommand(newTasksCommand(a))
	return rootCmd
}

// plan builds the registry and resolves the deploy task list, addon included.
func (a *app) plan() (*pipeline.Registry, *pipeline.Plan, error) {
	var addons []addon.Addon
	file, err := addon.LoadFile(a.cfg.AddonPath)
	if err != nil {
		return nil, nil, err
	}
	if file != nil {
		a.logger.Info("addon loaded", lg.String("path", a.cfg.AddonPath))
		addons = append(addons, file)
	}
	reg, plan, err := recipe.Build(a.cfg, addons...)
	if err != nil {
		return nil, nil, fmt.Errorf("build task list: %w", err)
	}
	return reg, plan, nil
}
