package pipeline_test

import (
	"context"
	"testing"

	"github.com/andrej220/wpdeploy/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *pipeline.RunContext) error { return nil }

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := pipeline.NewRegistry()
	require.NoError(t, reg.Leaf("wp:config", "", noop))

	err := reg.Leaf("wp:config", "", noop)
	assert.ErrorIs(t, err, pipeline.ErrDuplicateTask)
}

func TestRegisterValidatesTasks(t *testing.T) {
	tests := []struct {
		name string
		task *pipeline.Task
	}{
		{name: "nil", task: nil},
		{name: "empty name", task: &pipeline.Task{Kind: pipeline.Leaf, Action: noop}},
		{name: "bad name", task: &pipeline.Task{Name: "Deploy Now", Kind: pipeline.Leaf, Action: noop}},
		{name: "trailing colon", task: &pipeline.Task{Name: "deploy:", Kind: pipeline.Leaf, Action: noop}},
		{name: "leaf without action", task: &pipeline.Task{Name: "a:b", Kind: pipeline.Leaf}},
		{name: "group with action", task: &pipeline.Task{Name: "a:b", Kind: pipeline.Group, Action: noop}},
		{name: "group with empty member", task: &pipeline.Task{Name: "a:b", Kind: pipeline.Group, Tasks: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pipeline.NewRegistry().Register(tt.task)
			assert.ErrorIs(t, err, pipeline.ErrInvalidTask)
		})
	}
}

func TestPlanFlattensGroupsInOrder(t *testing.T) {
	reg := pipeline.NewRegistry()
	for _, n := range []string{"a", "b", "c", "done"} {
		require.NoError(t, reg.Leaf(n, "", noop))
	}
	require.NoError(t, reg.Group("inner", "", "b", "c"))
	require.NoError(t, reg.Group("deploy", "", "a", "inner", "a"))
	reg.After("deploy", "done")

	plan, err := reg.Plan("deploy")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "a", "done"}, plan.Names())
	require.Len(t, plan.After, 1)
	assert.Equal(t, "done", plan.After[0].Name)
}

func TestPlanFailsFastOnUnknownTask(t *testing.T) {
	reg := pipeline.NewRegistry()
	require.NoError(t, reg.Leaf("a", "", noop))
	require.NoError(t, reg.Group("deploy", "", "a", "missing:task"))

	_, err := reg.Plan("deploy")
	assert.ErrorIs(t, err, pipeline.ErrUnknownTask)
	assert.Contains(t, err.Error(), "missing:task")

	_, err = reg.Plan("nope")
	assert.ErrorIs(t, err, pipeline.ErrUnknownTask)
}

func TestPlanFailsOnUnknownHook(t *testing.T) {
	reg := pipeline.NewRegistry()
	require.NoError(t, reg.Leaf("a", "", noop))
	require.NoError(t, reg.Group("deploy", "", "a"))
	reg.After("deploy", "success")

	_, err := reg.Plan("deploy")
	assert.ErrorIs(t, err, pipeline.ErrUnknownTask)
}

func TestPlanDetectsCycles(t *testing.T) {
	reg := pipeline.NewRegistry()
	require.NoError(t, reg.Group("x", "", "y"))
	require.NoError(t, reg.Group("y", "", "x"))

	_, err := reg.Plan("x")
	assert.ErrorIs(t, err, pipeline.ErrGroupCycle)
}

func TestRegisterCopiesGroupMembers(t *testing.T) {
	reg := pipeline.NewRegistry()
	require.NoError(t, reg.Leaf("a", "", noop))
	require.NoError(t, reg.Leaf("b", "", noop))
	members := []string{"a"}
	require.NoError(t, reg.Group("deploy", "", members...))
	members[0] = "b"

	plan, err := reg.Plan("deploy")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, plan.Names())
}
