package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andrej220/wpdeploy/pkg/config"
	"github.com/andrej220/wpdeploy/pkg/events"
	"github.com/andrej220/wpdeploy/pkg/executor"
	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/andrej220/wpdeploy/pkg/lg"
	"github.com/andrej220/wpdeploy/pkg/persistence"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
	dm "github.com/andrej220/wpdeploy/pkg/shared-models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const releaseNameLayout = "20060102150405"

type deployOptions struct {
	parallel int
	report   string
}

func newDeployCommand(a *app) *cobra.Command {
	opts := deployOptions{}
	cmd := &cobra.Command{
		Use:   "deploy [host...]",
		Short: "Deploy the project to the given inventory hosts (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deploy(cmd.Context(), cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "number of hosts deployed at the same time, at least 1")
	cmd.Flags().StringVar(&opts.report, "report", "", "write a JSON run report to this file")
	return cmd
}

var errParallel = errors.New("--parallel must be at least 1")

func (a *app) deploy(ctx context.Context, cmd *cobra.Command, aliases []string, opts deployOptions) error {
	if opts.parallel < 1 {
		return fmt.Errorf("%w, got %d", errParallel, opts.parallel)
	}

	_, plan, err := a.plan()
	if err != nil {
		return err
	}

	inv, err := loadInventory(a.cfg)
	if err != nil {
		return err
	}
	// once, before any host is shared with a worker
	inv.ApplySSHDefaults()

	hosts, err := inv.Select(aliases...)
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger := a.logger.With(lg.String("run", runID.String()))
	reporter, closeReporter := newReporter(a.cfg, logger)
	defer closeReporter()

	runner := pipeline.NewRunner(runID, reporter, logger)
	console := pipeline.NewConsole(cmd.OutOrStdout())
	local := a.local
	if local == nil {
		local = executor.NewLocalExecutor(a.cfg.ComposerHome)
	}
	releaseName := time.Now().UTC().Format(releaseNameLayout)

	report := &dm.RunReport{RunID: runID, Started: time.Now().UTC()}
	var (
		mu   sync.Mutex
		errs []error
	)

	logger.Info("deploy started", lg.Strings("tasks", plan.Names()), lg.Int("hosts", len(hosts)))

	var g errgroup.Group
	g.SetLimit(opts.parallel)
	for _, host := range hosts {
		g.Go(func() error {
			hostReport, err := a.deployHost(ctx, runner, plan, inv, &pipeline.HostContext{Host: host, ReleaseName: releaseName}, local, console)
			mu.Lock()
			defer mu.Unlock()
			report.Hosts = append(report.Hosts, hostReport)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = time.Now().UTC()
	report.Success = len(errs) == 0
	if opts.report != "" {
		if err := persistence.WriteReport(report, opts.report); err != nil {
			logger.Error("report not written", lg.Err(err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("deploy finished", lg.Int("hosts", len(hosts)))
	return nil
}

func (a *app) deployHost(ctx context.Context, runner *pipeline.Runner, plan *pipeline.Plan, inv inventory.Inventory,
	hc *pipeline.HostContext, local executor.Executor, console *pipeline.Console) (dm.HostReport, error) {

	remote, closeRemote, err := a.connect(hc.Host)
	if err != nil {
		return dm.HostReport{Host: hc.Host.Alias, Branch: hc.Host.Branch, Release: hc.ReleaseName},
			fmt.Errorf("host %s: %w", hc.Host.Alias, err)
	}
	defer func() {
		if err := closeRemote(); err != nil {
			a.logger.Warn("connection close", lg.String("host", hc.Host.Alias), lg.Err(err))
		}
	}()

	rc := &pipeline.RunContext{
		Config:    a.cfg,
		Inventory: inv,
		Host:      hc,
		Remote:    remote,
		Local:     local,
		Console:   console,
	}
	return runner.Run(ctx, plan, rc)
}

// dialSSH connects to host with the configured key.
func (a *app) dialSSH(host *inventory.Host) (executor.Executor, func() error, error) {
	clientCfg, err := executor.ClientConfig(host, a.cfg.SSHKeyPath)
	if err != nil {
		return nil, nil, err
	}
	client, err := executor.NewResilientClient(host.Address(), clientCfg, executor.DefaultResilienceConfig(host.Alias))
	if err != nil {
		return nil, nil, err
	}
	return executor.NewSSHExecutor(client), client.Close, nil
}

func loadInventory(cfg *config.Config) (inventory.Inventory, error) {
	store, err := config.NewInventoryStore(cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		defer closer.Close(context.Background())
	}
	return inventory.Load(store)
}

func newReporter(cfg *config.Config, logger lg.Logger) (events.Reporter, func()) {
	reporters := events.Multi{events.LogReporter{Logger: logger}}
	if len(cfg.Events.Brokers) == 0 {
		return reporters, func() {}
	}
	kafkaReporter := events.NewKafkaReporter(cfg.Events, logger)
	reporters = append(reporters, kafkaReporter)
	return reporters, func() {
		if err := kafkaReporter.Close(); err != nil {
			logger.Warn("event writer close", lg.Err(err))
		}
	}
}
