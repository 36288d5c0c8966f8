package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

var (
	ErrUnknownType   = errors.New("unknown schedule type")
	ErrMissingField  = errors.New("schedule field missing for type")
	ErrBadInterval   = errors.New("interval must be a positive number of seconds")
	ErrBadExpression = errors.New("invalid cron expression")
	ErrBadTimezone   = errors.New("unresolvable timezone")
)

// Spec is the sealed set of schedule configurations. Building one from a task
// rejects invalid combinations (cron type with no expression, zero interval)
// up front, so the calculator only ever sees well-formed inputs.
type Spec interface {
	isSpec()
}

type Cron struct {
	Expression string
	Location   *time.Location
}

type Interval struct {
	Every time.Duration
}

type Once struct {
	At time.Time
}

func (Cron) isSpec()     {}
func (Interval) isSpec() {}
func (Once) isSpec()     {}

// FromTask translates a task's stored schedule configuration into a Spec.
func FromTask(task *models.ScheduledTask) (Spec, error) {
	switch task.ScheduleType {
	case models.ScheduleTypeCron:
		if task.CronExpression == nil || *task.CronExpression == "" {
			return nil, fmt.Errorf("%w: cron expression", ErrMissingField)
		}
		loc := time.UTC
		if task.Timezone != "" {
			var err error
			loc, err = time.LoadLocation(task.Timezone)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadTimezone, task.Timezone)
			}
		}
		return Cron{Expression: *task.CronExpression, Location: loc}, nil

	case models.ScheduleTypeInterval:
		if task.IntervalSeconds == nil || *task.IntervalSeconds <= 0 {
			return nil, ErrBadInterval
		}
		return Interval{Every: time.Duration(*task.IntervalSeconds) * time.Second}, nil

	case models.ScheduleTypeOnce:
		if task.ScheduledTime == nil {
			return nil, fmt.Errorf("%w: scheduled time", ErrMissingField)
		}
		return Once{At: *task.ScheduledTime}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, task.ScheduleType)
	}
}
