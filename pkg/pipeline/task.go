// Package pipeline holds the task registry and the sequential runner that
// executes a resolved task list against one host.
package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

type Kind int

const (
	Leaf Kind = iota
	Group
)

func (k Kind) String() string {
	if k == Group {
		return "group"
	}
	return "leaf"
}

// Action is the body of a leaf task.
type Action func(ctx context.Context, rc *RunContext) error

// Task is either a leaf with an Action or a group naming other tasks in order.
type Task struct {
	Name        string `validate:"required,taskname"`
	Description string
	Kind        Kind
	Action      Action
	Tasks       []string `validate:"dive,required"`
}

var (
	validate   = validator.New()
	taskNameRE = regexp.MustCompile(`^[a-z0-9_-]+(:[a-z0-9_.-]+)*$`)
)

func init() {
	_ = validate.RegisterValidation("taskname", func(fl validator.FieldLevel) bool {
		return taskNameRE.MatchString(fl.Field().String())
	})
}

// ValidateTask checks the name and that the variant carries its payload.
func ValidateTask(t *Task) error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidTask, t.Name, err)
	}
	switch t.Kind {
	case Leaf:
		if t.Action == nil {
			return fmt.Errorf("%w %q: leaf without action", ErrInvalidTask, t.Name)
		}
	case Group:
		if t.Action != nil {
			return fmt.Errorf("%w %q: group with action", ErrInvalidTask, t.Name)
		}
	default:
		return fmt.Errorf("%w %q: kind %d", ErrInvalidTask, t.Name, t.Kind)
	}
	return nil
}
