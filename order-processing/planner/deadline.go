package planner

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DeadlineState separates "no deadline given" from "given but not understood"
type DeadlineState string

const (
	DeadlineNotSet     DeadlineState = "NOT_SET"
	DeadlineResolved   DeadlineState = "RESOLVED"
	DeadlineUnresolved DeadlineState = "UNRESOLVED"
)

// EndOfWorkday is the time of day used for expressions that name only a day
const EndOfWorkday = 17

// Deadline is a parsed deadline expression
type Deadline struct {
	State DeadlineState `json:"state"`
	Raw   string        `json:"raw,omitempty"`
	At    time.Time     `json:"at,omitempty"`
}

// Resolved reports whether At holds a usable timestamp
func (d Deadline) Resolved() bool {
	return d.State == DeadlineResolved
}

var (
	deadlinePrefixes = []string{"no later than ", "due by ", "due ", "by ", "before ", "until ", "till ", "on ", "at "}

	isoLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}

	clockPattern    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	relativePattern = regexp.MustCompile(`^in\s+(\d+)\s*(minute|minutes|min|mins|hour|hours|hr|hrs|h|day|days|d)$`)

	namedTimes = map[string]int{
		"morning":    9,
		"noon":       12,
		"midday":     12,
		"afternoon":  15,
		"eod":        EndOfWorkday,
		"end of day": EndOfWorkday,
		"evening":    18,
		"tonight":    21,
		"night":      21,
	}

	weekdays = map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}
)

// ParseDeadline resolves expr relative to now. It accepts ISO-8601 timestamps
// and dates, "today", "tonight", "tomorrow [time]", a bare time of day, weekday
// names with an optional time, and "in N hours|days|minutes". A bare time that
// has already passed today rolls to tomorrow.
func ParseDeadline(expr string, now time.Time) Deadline {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Deadline{State: DeadlineNotSet}
	}
	if at, ok := parseDeadline(raw, now); ok {
		return Deadline{State: DeadlineResolved, Raw: raw, At: at}
	}
	return Deadline{State: DeadlineUnresolved, Raw: raw}
}

func parseDeadline(raw string, now time.Time) (time.Time, bool) {
	s := normalizeDeadline(raw)
	loc := now.Location()

	for _, layout := range isoLayouts {
		if at, err := time.ParseInLocation(layout, strings.ToUpper(s), loc); err == nil {
			return at, true
		}
	}
	if day, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return atHour(day, EndOfWorkday, 0), true
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2][0] {
		case 'm':
			return now.Add(time.Duration(n) * time.Minute), true
		case 'h':
			return now.Add(time.Duration(n) * time.Hour), true
		default:
			return now.AddDate(0, 0, n), true
		}
	}

	day, rest := splitDay(s)
	switch {
	case day == "today":
		if rest == "" {
			return atHour(now, EndOfWorkday, 0), true
		}
		return timeOnDay(now, rest)
	case day == "tonight":
		if rest == "" {
			return atHour(now, namedTimes["tonight"], 0), true
		}
		return timeOnDay(now, rest)
	case day == "tomorrow":
		next := now.AddDate(0, 0, 1)
		if rest == "" {
			return atHour(next, EndOfWorkday, 0), true
		}
		return timeOnDay(next, rest)
	case day != "":
		target := weekdays[day]
		ahead := (int(target) - int(now.Weekday()) + 7) % 7
		hour, minute := EndOfWorkday, 0
		if rest != "" {
			h, m, ok := parseClock(rest)
			if !ok {
				return time.Time{}, false
			}
			hour, minute = h, m
		}
		at := atHour(now.AddDate(0, 0, ahead), hour, minute)
		if !at.After(now) {
			at = at.AddDate(0, 0, 7)
		}
		return at, true
	}

	hour, minute, ok := parseClock(s)
	if !ok {
		return time.Time{}, false
	}
	at := atHour(now, hour, minute)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

func normalizeDeadline(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")
	for changed := true; changed; {
		changed = false
		for _, p := range deadlinePrefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				changed = true
			}
		}
	}
	s = strings.TrimPrefix(s, "next ")
	return s
}

// splitDay separates a leading day word from the time that follows it
func splitDay(s string) (string, string) {
	word, rest, _ := strings.Cut(s, " ")
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "at "))
	switch word {
	case "today", "tonight", "tomorrow":
		return word, rest
	}
	if _, ok := weekdays[word]; ok {
		return word, rest
	}
	return "", s
}

func timeOnDay(day time.Time, clock string) (time.Time, bool) {
	hour, minute, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return atHour(day, hour, minute), true
}

func parseClock(s string) (int, int, bool) {
	s = strings.TrimSpace(s)
	if h, ok := namedTimes[s]; ok {
		return h, 0, true
	}
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atHour(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// Feasibility compares the serial lead time of a plan against its deadline
type Feasibility struct {
	// Feasible is nil when the order has no usable deadline
	Feasible            *bool     `json:"feasible"`
	EstimatedCompletion time.Time `json:"estimatedCompletion"`
	SlackHours          float64   `json:"slackHours,omitempty"`
	Deadline            Deadline  `json:"deadline"`
}

// CheckFeasibility estimates completion as now + totalHours
func CheckFeasibility(deadline Deadline, totalHours float64, now time.Time) Feasibility {
	eta := now.Add(time.Duration(math.Round(totalHours*3600)) * time.Second)
	f := Feasibility{EstimatedCompletion: eta, Deadline: deadline}
	if !deadline.Resolved() {
		return f
	}
	ok := !eta.After(deadline.At)
	f.Feasible = &ok
	f.SlackHours = math.Round(deadline.At.Sub(eta).Hours()*100) / 100
	return f
}
