package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five fields, no seconds. Matches what SYNC_SCHEDULE documents.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription renders the common shapes of a schedule in words and
// falls back to the raw expression.
func GetCronDescription(schedule string) string {
	fields := strings.Fields(schedule)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" {
		return "Custom schedule: " + schedule
	}
	minute, hour, dow := fields[0], fields[1], fields[4]

	m, minuteFixed := atMost(minute, 59)
	h, hourFixed := atMost(hour, 23)

	switch {
	case dow == "*" && hour == "*" && strings.HasPrefix(minute, "*/"):
		return fmt.Sprintf("Every %s minutes", strings.TrimPrefix(minute, "*/"))
	case dow == "*" && hour == "*" && minuteFixed:
		return fmt.Sprintf("Every hour at :%02d", m)
	case dow == "*" && strings.HasPrefix(hour, "*/") && minuteFixed:
		return fmt.Sprintf("Every %s hours", strings.TrimPrefix(hour, "*/"))
	case !minuteFixed || !hourFixed:
		return "Custom schedule: " + schedule
	case dow == "*":
		return fmt.Sprintf("Daily at %02d:%02d", h, m)
	}

	if d, ok := atMost(dow, 7); ok {
		return fmt.Sprintf("Weekly on %s at %02d:%02d", time.Weekday(d%7), h, m)
	}
	return "Custom schedule: " + schedule
}

func atMost(field string, max int) (int, bool) {
	n, err := strconv.Atoi(field)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

// GetNextRunTime calculates when the schedule fires next after from.
func GetNextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}
