package pipeline

import (
	"fmt"
	"sort"
)

// Registry maps task names to tasks. A name is registered once; tasks are
// not modified after registration.
type Registry struct {
	tasks map[string]*Task
	after map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
		after: make(map[string][]string),
	}
}

// Register adds t to the registry.
func (r *Registry) Register(t *Task) error {
	if err := ValidateTask(t); err != nil {
		return err
	}
	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
	}
	cp := *t
	cp.Tasks = append([]string(nil), t.Tasks...)
	r.tasks[t.Name] = &cp
	return nil
}

// Leaf registers a leaf task.
func (r *Registry) Leaf(name, desc string, action Action) error {
	return r.Register(&Task{Name: name, Description: desc, Kind: Leaf, Action: action})
}

// Group registers a task that runs names in order.
func (r *Registry) Group(name, desc string, names ...string) error {
	return r.Register(&Task{Name: name, Description: desc, Kind: Group, Tasks: names})
}

// After schedules hook to run once target completed without error.
func (r *Registry) After(target, hook string) {
	r.after[target] = append(r.after[target], hook)
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names lists registered task names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plan is a fully resolved run: the leaves of a target in execution order and
// the hooks to run after them.
type Plan struct {
	Target string
	Tasks  []*Task
	After  []*Task
}

// Names returns the task names of the plan, hooks included.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Tasks)+len(p.After))
	for _, t := range p.Tasks {
		names = append(names, t.Name)
	}
	for _, t := range p.After {
		names = append(names, t.Name)
	}
	return names
}

// Plan resolves target into its ordered leaves. Unknown names and group
// cycles are reported here, before anything runs.
func (r *Registry) Plan(target string) (*Plan, error) {
	tasks, err := r.flatten(target, make(map[string]bool), nil)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Target: target, Tasks: tasks}
	for _, hook := range r.after[target] {
		leaves, err := r.flatten(hook, make(map[string]bool), nil)
		if err != nil {
			return nil, fmt.Errorf("after %q: %w", target, err)
		}
		plan.After = append(plan.After, leaves...)
	}
	return plan, nil
}

func (r *Registry) flatten(name string, visiting map[string]bool, out []*Task) ([]*Task, error) {
	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	if t.Kind == Leaf {
		return append(out, t), nil
	}
	if visiting[name] {
		return nil, fmt.Errorf("%w: %q", ErrGroupCycle, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	var err error
	for _, child := range t.Tasks {
		if out, err = r.flatten(child, visiting, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
