// Package addon lets a project extend the deployment with its own tasks and
// reorder the task list before it is frozen.
package addon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/andrej220/wpdeploy/pkg/config/filestore"
	"github.com/andrej220/wpdeploy/pkg/pipeline"
)

// Addon is invoked once at startup, before the task list is resolved.
type Addon interface {
	Name() string
	// Register declares extra tasks.
	Register(reg *pipeline.Registry) error
	// ExtendTaskList returns the task list to use instead of current.
	ExtendTaskList(current []string) ([]string, error)
}

// File is the declarative addon read from the project workspace.
type File struct {
	Tasks    []FileTask `yaml:"tasks"`
	TaskList []string   `yaml:"task_list"`
	Append   []string   `yaml:"append"`

	path string
}

// FileTask runs its commands as one shell invocation, joined with &&.
type FileTask struct {
	Name  string   `yaml:"name"`
	Desc  string   `yaml:"desc"`
	Run   []string `yaml:"run"`
	Local bool     `yaml:"local"`
}

// LoadFile reads the addon at path. An empty path, a missing file or an empty
// file yields a nil File and no error.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, nil
	}
	f := &File{path: path}
	if err := filestore.New(path).Load(f); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, filestore.ErrEmptyFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("load addon: %w", err)
	}
	return f, nil
}

func (f *File) Name() string { return f.path }

func (f *File) Register(reg *pipeline.Registry) error {
	for _, t := range f.Tasks {
		if len(t.Run) == 0 {
			return fmt.Errorf("task %q has no commands", t.Name)
		}
		command := strings.Join(t.Run, " && ")
		local := t.Local
		action := func(ctx context.Context, rc *pipeline.RunContext) error {
			if local {
				_, err := rc.RunLocally(ctx, command)
				return err
			}
			_, err := rc.Run(ctx, command)
			return err
		}
		if err := reg.Leaf(t.Name, t.Desc, action); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) ExtendTaskList(current []string) ([]string, error) {
	next := append([]string(nil), current...)
	if len(f.TaskList) > 0 {
		next = append([]string(nil), f.TaskList...)
	}
	return append(next, f.Append...), nil
}

// Func adapts plain functions to Addon for addons compiled into a binary.
type Func struct {
	ID       string
	Tasks    func(reg *pipeline.Registry) error
	TaskList func(current []string) ([]string, error)
}

func (a Func) Name() string { return a.ID }

func (a Func) Register(reg *pipeline.Registry) error {
	if a.Tasks == nil {
		return nil
	}
	return a.Tasks(reg)
}

func (a Func) ExtendTaskList(current []string) ([]string, error) {
	if a.TaskList == nil {
		return current, nil
	}
	return a.TaskList(current)
}
