package recipe_test

import (
	"context"
	"testing"

	"github.com/andrej220/wpdeploy/internal/testsupport"
	"github.com/andrej220/wpdeploy/pkg/addon"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
	"github.com/andrej220/wpdeploy/pkg/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTask executes one registered leaf against rc.
func runTask(t *testing.T, name string, rc *pipeline.RunContext) error {
	t.Helper()
	reg := pipeline.NewRegistry()
	require.NoError(t, recipe.Register(reg))
	task, ok := reg.Get(name)
	require.True(t, ok, "task %q not registered", name)
	return task.Action(context.Background(), rc)
}

func TestSelectTaskListIsExactStringMatch(t *testing.T) {
	tests := []struct {
		value   string
		reduced bool
	}{
		{"true", true},
		{"", false},
		{"TRUE", false},
		{"True", false},
		{"1", false},
		{"yes", false},
		{" true", false},
		{"true ", false},
		{"false", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := testsupport.Config()
			cfg.SkipWPTasks = tt.value
			list := recipe.SelectTaskList(cfg)
			if tt.reduced {
				assert.Equal(t, recipe.ReducedTaskList, list)
			} else {
				assert.Equal(t, recipe.FullTaskList, list)
			}
		})
	}
}

func TestReducedListOmitsWordPressSteps(t *testing.T) {
	for _, name := range []string{"wp:config", "opcache:reset", "core_db:update", "cachetool:download", "permissions:set"} {
		assert.NotContains(t, recipe.ReducedTaskList, name)
		assert.Contains(t, recipe.FullTaskList, name)
	}
}

func TestSelectTaskListReturnsCopy(t *testing.T) {
	list := recipe.SelectTaskList(testsupport.Config())
	list[0] = "changed"
	assert.Equal(t, "deploy:prepare", recipe.FullTaskList[0])
}

func TestBuildResolvesFullPlan(t *testing.T) {
	_, plan, err := recipe.Build(testsupport.Config())
	require.NoError(t, err)

	want := append(append([]string{}, recipe.FullTaskList...), recipe.SuccessTask)
	assert.Equal(t, want, plan.Names())
}

func TestBuildAppliesAddons(t *testing.T) {
	custom := addon.Func{
		ID: "custom",
		Tasks: func(reg *pipeline.Registry) error {
			return reg.Leaf("some:task", "Some task", func(context.Context, *pipeline.RunContext) error { return nil })
		},
		TaskList: func(current []string) ([]string, error) {
			out := []string{}
			for _, n := range current {
				out = append(out, n)
				if n == "wp:config" {
					out = append(out, "some:task")
				}
			}
			return out, nil
		},
	}

	_, plan, err := recipe.Build(testsupport.Config(), nil, custom)
	require.NoError(t, err)

	names := plan.Names()
	assert.Equal(t, "wp:config", names[5])
	assert.Equal(t, "some:task", names[6])
	assert.Equal(t, "cachetool:download", names[7])
}

func TestBuildFailsOnUnknownTaskFromAddon(t *testing.T) {
	bad := addon.Func{
		ID: "bad",
		TaskList: func(current []string) ([]string, error) {
			return append(current, "not:registered"), nil
		},
	}

	_, _, err := recipe.Build(testsupport.Config(), bad)
	assert.ErrorIs(t, err, pipeline.ErrUnknownTask)
}

func TestBuildRejectsAddonRedefiningTask(t *testing.T) {
	dup := addon.Func{
		ID: "dup",
		Tasks: func(reg *pipeline.Registry) error {
			return reg.Leaf("rsync", "", func(context.Context, *pipeline.RunContext) error { return nil })
		},
	}

	_, _, err := recipe.Build(testsupport.Config(), dup)
	assert.ErrorIs(t, err, pipeline.ErrDuplicateTask)
}
