package schedule

import "time"

// Filter names the active time window of the calendar view.
type Filter string

const (
	FilterToday    Filter = "today"
	FilterTomorrow Filter = "tomorrow"
	FilterWeek     Filter = "week"
	FilterMonth    Filter = "month"
	FilterHistory  Filter = "history"
)

// DefaultFilter is the window selected when a dashboard session starts.
const DefaultFilter = FilterToday

// DateOnly is the wire format of the history filter bounds.
const DateOnly = "2006-01-02"

// Anchors is the client-side navigation state: the reference dates the
// week and month filters resolve against, plus the optional bounds of
// the history filter. Anchors never persist across dashboard sessions.
type Anchors struct {
	// CurrentWeek is normalized to Sunday 00:00 clinic time on every
	// transition; any instant inside the week is accepted as input.
	CurrentWeek time.Time `json:"currentWeek"`
	// CurrentMonth may be any instant inside the target month.
	CurrentMonth time.Time `json:"currentMonth"`
	// HistoryStart and HistoryEnd are date-only strings, history filter
	// only. Either being unparseable makes the filter unresolvable.
	HistoryStart string `json:"historyStart,omitempty"`
	HistoryEnd   string `json:"historyEnd,omitempty"`
}

// NewAnchors seeds both anchors from the given instant.
func NewAnchors(now time.Time) Anchors {
	local := now.In(clinicLocation)
	return Anchors{
		CurrentWeek:  StartOfWeek(local),
		CurrentMonth: startOfDay(local),
	}
}

// Interval is a closed [Start, End] instant range. End sits on the last
// nanosecond of its local day, so a session exactly at End counts.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the closed interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// ResolveInterval maps the active filter and anchors to a concrete
// instant range in the clinic timezone. It returns nil when the filter
// cannot be resolved (unknown name, missing or unparseable history
// bounds); callers treat nil as "no data", never as an error.
func ResolveInterval(f Filter, a Anchors, clock Clock) *Interval {
	if clock == nil {
		clock = time.Now
	}
	switch f {
	case FilterToday:
		return dayInterval(clock())
	case FilterTomorrow:
		return dayInterval(shiftDays(clock(), 1))
	case FilterWeek:
		start := StartOfWeek(a.CurrentWeek)
		return &Interval{Start: start, End: endOfDay(shiftDays(start, 6))}
	case FilterMonth:
		first := StartOfMonth(a.CurrentMonth)
		y, m, _ := first.Date()
		return &Interval{Start: first, End: endOfDay(localMidnight(y, m+1, 0))}
	case FilterHistory:
		start, err := time.ParseInLocation(DateOnly, a.HistoryStart, clinicLocation)
		if err != nil {
			return nil
		}
		end, err := time.ParseInLocation(DateOnly, a.HistoryEnd, clinicLocation)
		if err != nil {
			return nil
		}
		return &Interval{Start: startOfDay(start), End: endOfDay(end)}
	default:
		return nil
	}
}

func dayInterval(t time.Time) *Interval {
	return &Interval{Start: startOfDay(t), End: endOfDay(t)}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.In(clinicLocation).Date()
	return localMidnight(y, m, d)
}

// localMidnight returns the first instant of the civil day (y, m, d)
// in clinic time. Brazil observed DST until 2019 and the transition
// skipped midnight, so on those days time.Date normalizes 00:00 into
// the previous day; step past the gap until the target day is reached.
// Out-of-range y/m/d are normalized the way time.Date does.
func localMidnight(y int, m time.Month, d int) time.Time {
	y, m, d = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, clinicLocation)
	for t.Day() != d {
		t = t.Add(30 * time.Minute)
	}
	return t
}

// shiftDays moves t by whole civil days, landing on the target day's
// first instant. AddDate is not safe for this: adding 24-hour days
// across a DST transition can land on the neighboring civil day.
func shiftDays(t time.Time, days int) time.Time {
	y, m, d := t.In(clinicLocation).Date()
	return localMidnight(y, m, d+days)
}

func endOfDay(t time.Time) time.Time {
	t = t.In(clinicLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), clinicLocation)
}

// StartOfWeek normalizes t to Sunday 00:00 clinic time. Weeks are
// Sunday-based, matching the dashboard's weekly grid.
func StartOfWeek(t time.Time) time.Time {
	local := t.In(clinicLocation)
	return shiftDays(local, -int(local.Weekday()))
}

// StartOfMonth normalizes t to the first of its month, 00:00 clinic time.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.In(clinicLocation).Date()
	return localMidnight(y, m, 1)
}

// SameLocalDay reports whether a and b fall on the same clinic-local day.
func SameLocalDay(a, b time.Time) bool {
	a, b = a.In(clinicLocation), b.In(clinicLocation)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
