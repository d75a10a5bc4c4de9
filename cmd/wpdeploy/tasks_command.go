package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTasksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Show the resolved deploy task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, plan, err := a.plan()
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"#", "Task", "Description"})
			for i, t := range plan.Tasks {
				tw.AppendRow(table.Row{i + 1, t.Name, t.Description})
			}
			for _, t := range plan.After {
				tw.AppendRow(table.Row{"after", t.Name, t.Description})
			}
			tw.Render()
			return nil
		},
	}
}
