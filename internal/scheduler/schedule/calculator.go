package schedule

import (
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

// Calculator computes fire times for task schedules. It is pure: same task
// and instant in, same answer out. Configuration problems yield nil (no next
// run), never an error, so callers need no recovery path.
type Calculator struct {
	parser cronlib.Parser
}

func NewCalculator() *Calculator {
	return &Calculator{
		// Standard 5-field expressions: minute hour dom month dow.
		parser: cronlib.NewParser(
			cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
		),
	}
}

// Next returns the task's next fire time strictly after now, as a UTC
// instant, or nil when the task will not run again automatically. One-shot
// tasks never reschedule after their single fire time is set at creation.
func (c *Calculator) Next(task *models.ScheduledTask, now time.Time) *time.Time {
	spec, err := FromTask(task)
	if err != nil {
		log.Warn().
			Err(err).
			Str("task_id", task.ID.String()).
			Str("schedule_type", task.ScheduleType).
			Msg("Task has no computable next execution")
		return nil
	}

	switch s := spec.(type) {
	case Cron:
		sched, err := c.parser.Parse(s.Expression)
		if err != nil {
			log.Warn().
				Err(err).
				Str("task_id", task.ID.String()).
				Str("cron", s.Expression).
				Msg("Unparseable cron expression")
			return nil
		}
		// Cron fields are evaluated on the wall clock of the task's timezone;
		// robfig/cron uses real calendar arithmetic, so DST jumps and Feb-29
		// rules resolve correctly. Stored as UTC.
		next := sched.Next(now.In(s.Location)).UTC()
		return &next

	case Interval:
		next := now.Add(s.Every).UTC()
		return &next

	case Once:
		return nil

	default:
		return nil
	}
}

// First returns the fire time to store when the task is created or its
// schedule is rewritten. For one-shot tasks that is the configured instant;
// for the recurring types it is the same as Next.
func (c *Calculator) First(task *models.ScheduledTask, now time.Time) *time.Time {
	spec, err := FromTask(task)
	if err != nil {
		return nil
	}
	if once, ok := spec.(Once); ok {
		at := once.At.UTC()
		return &at
	}
	return c.Next(task, now)
}

// Validate reports whether a cron expression parses as a standard 5-field
// expression.
func (c *Calculator) Validate(expression string) error {
	_, err := c.parser.Parse(expression)
	return err
}
