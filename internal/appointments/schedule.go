package appointments

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	slotLayout = "3:04 PM"
	slotLength = 30 * time.Minute
)

// Schedule lists the bookable slot labels for each weekday.
type Schedule map[time.Weekday][]string

// slotRange returns slot labels from start through last inclusive.
func slotRange(start, last string) []string {
	from, _ := time.Parse(slotLayout, start)
	to, _ := time.Parse(slotLayout, last)
	var out []string
	for t := from; !t.After(to); t = t.Add(slotLength) {
		out = append(out, t.Format(slotLayout))
	}
	return out
}

// DefaultSchedule: weekdays 9:00-11:30 AM and 2:00-5:30 PM, Saturday mornings,
// closed Sunday.
func DefaultSchedule() Schedule {
	weekday := append(slotRange("9:00 AM", "11:30 AM"), slotRange("2:00 PM", "5:30 PM")...)
	s := Schedule{
		time.Saturday: slotRange("9:00 AM", "11:30 AM"),
		time.Sunday:   nil,
	}
	for d := time.Monday; d <= time.Friday; d++ {
		s[d] = append([]string(nil), weekday...)
	}
	return s
}

// Schedules holds the default week plus per-doctor overrides keyed by name.
type Schedules struct {
	Default Schedule
	Doctors map[string]Schedule
}

func (s Schedules) slots(doctor string, day time.Weekday) []string {
	if sched, ok := s.Doctors[doctor]; ok {
		return sched[day]
	}
	if s.Default == nil {
		return nil
	}
	return s.Default[day]
}

// NormalizeDate accepts YYYY-MM-DD or an ISO timestamp and returns the date part.
func NormalizeDate(raw string) (string, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, 'T'); i >= 0 {
		raw = raw[:i]
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", time.Time{}, fail(ErrInvalidDate, fmt.Sprintf("Invalid date %q. Please use the format YYYY-MM-DD.", raw))
	}
	return raw, d, nil
}

// slotTime orders appointments by date then time of day.
func slotTime(a Appointment) time.Time {
	d, err := time.Parse(dateLayout, a.Date)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(slotLayout, strings.ToUpper(strings.TrimSpace(a.Time)))
	if err != nil {
		return d
	}
	return d.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}
