package schedule

import "time"

// Daily timeline layout. The dashboard renders one row per 30-minute
// slot from clinic opening to closing, 06:00 through 20:00 inclusive.
const (
	TimelineOpenHour  = 6
	TimelineCloseHour = 20
	SlotMinutes       = 30
	// SlotPixelHeight is the rendered height of one slot row; the
	// "now" marker offset is expressed in the same unit.
	SlotPixelHeight = 48
)

// TimeSlot is one 30-minute row of a timeline. Slots with no sessions
// are emitted with an empty list, never omitted.
type TimeSlot struct {
	Start    time.Time     `json:"start"`
	Sessions []SessionView `json:"sessions"`
}

// DailyTimeline is the fixed-window projection of one day.
type DailyTimeline struct {
	BaseDate time.Time  `json:"baseDate"`
	Slots    []TimeSlot `json:"slots"`
	// ShowNowMarker is set only when the base date is the current
	// clinic-local day; NowOffsetPx positions the marker as
	// minutes-since-opening / 30 * SlotPixelHeight.
	ShowNowMarker bool    `json:"showNowMarker"`
	NowOffsetPx   float64 `json:"nowOffsetPx"`
}

// ProjectDailyTimeline buckets the flattened sessions into the fixed
// 06:00-20:00 slot sequence of the base date: the day of the first
// session in the list, or the current day when the list is empty.
// Sessions fall in [slotStart, slotStart+30min); equal timestamps keep
// input order.
func ProjectDailyTimeline(views []SessionView, clock Clock) DailyTimeline {
	if clock == nil {
		clock = time.Now
	}
	now := clock().In(clinicLocation)

	base := startOfDay(now)
	if len(views) > 0 {
		base = startOfDay(views[0].Time)
	}

	// The clinic hours are wall-clock times; on short DST days base is
	// past midnight and a plain Add would shift the whole window.
	y, m, d := base.Date()
	open := time.Date(y, m, d, TimelineOpenHour, 0, 0, 0, clinicLocation)
	close := time.Date(y, m, d, TimelineCloseHour, 0, 0, 0, clinicLocation)

	var slots []TimeSlot
	for t := open; !t.After(close); t = t.Add(SlotMinutes * time.Minute) {
		slots = append(slots, TimeSlot{Start: t, Sessions: []SessionView{}})
	}
	for _, v := range views {
		if !SameLocalDay(v.Time, base) {
			continue
		}
		idx := slotIndex(open, v.Time)
		if idx < 0 || idx >= len(slots) {
			continue
		}
		slots[idx].Sessions = append(slots[idx].Sessions, v)
	}

	tl := DailyTimeline{BaseDate: base, Slots: slots}
	if SameLocalDay(base, now) {
		tl.ShowNowMarker = true
		tl.NowOffsetPx = now.Sub(open).Minutes() / SlotMinutes * SlotPixelHeight
	}
	return tl
}

func slotIndex(origin, t time.Time) int {
	d := t.Sub(origin)
	if d < 0 {
		return -1
	}
	return int(d / (SlotMinutes * time.Minute))
}

// DayColumn aggregates one day of the weekly grid: session counts per
// status, with all four statuses always present, plus a total.
type DayColumn struct {
	Day    time.Time      `json:"day"`
	Counts map[Status]int `json:"counts"`
	Total  int            `json:"total"`
}

// ProjectWeeklyGrid produces the seven day columns of the week holding
// the anchor, Sunday first. Days with no sessions still render with
// zeroed counts.
func ProjectWeeklyGrid(views []SessionView, weekAnchor time.Time) []DayColumn {
	start := StartOfWeek(weekAnchor)
	cols := make([]DayColumn, 7)
	for i := range cols {
		counts := make(map[Status]int, len(Statuses))
		for _, st := range Statuses {
			counts[st] = 0
		}
		cols[i] = DayColumn{Day: shiftDays(start, i), Counts: counts}
	}
	// Match by civil day, not by dividing elapsed hours: DST-era days
	// are not all 24 hours long.
	for _, v := range views {
		for i := range cols {
			if SameLocalDay(v.Time, cols[i].Day) {
				cols[i].Counts[v.Status]++
				cols[i].Total++
				break
			}
		}
	}
	return cols
}

// MonthCell is one day of the monthly grid, rendered as a count badge.
type MonthCell struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// MonthlyGrid is a 7-column calendar covering a full month.
// PaddingCells is the number of leading blanks aligning day 1 to its
// weekday column (Sunday = column 0).
type MonthlyGrid struct {
	Month        time.Time   `json:"month"`
	PaddingCells int         `json:"paddingCells"`
	Cells        []MonthCell `json:"cells"`
}

// ProjectMonthlyGrid buckets the flattened sessions into the calendar
// cells of the month holding the anchor. Every day of the month gets a
// cell, zero counts included.
func ProjectMonthlyGrid(views []SessionView, monthAnchor time.Time) MonthlyGrid {
	first := StartOfMonth(monthAnchor)
	y, m, _ := first.Date()
	days := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()

	cells := make([]MonthCell, days)
	for i := range cells {
		cells[i] = MonthCell{Day: shiftDays(first, i)}
	}
	for _, v := range views {
		t := v.Time.In(clinicLocation)
		if t.Year() != first.Year() || t.Month() != first.Month() {
			continue
		}
		cells[t.Day()-1].Count++
	}
	return MonthlyGrid{
		Month:        first,
		PaddingCells: int(first.Weekday()),
		Cells:        cells,
	}
}

// DayDetail is the drill-down view behind a monthly cell: a timeline
// like the daily one, but bounded to the slot range actually occupied
// that day instead of the fixed clinic hours.
type DayDetail struct {
	Day   time.Time  `json:"day"`
	Slots []TimeSlot `json:"slots"`
}

// ProjectDayDetail builds the variable-height timeline for one
// clinic-local day. An empty day yields no slots.
func ProjectDayDetail(views []SessionView, day time.Time) DayDetail {
	base := startOfDay(day)
	detail := DayDetail{Day: base}

	var daily []SessionView
	for _, v := range views {
		if SameLocalDay(v.Time, base) {
			daily = append(daily, v)
		}
	}
	if len(daily) == 0 {
		return detail
	}

	min, max := daily[0].Time, daily[0].Time
	for _, v := range daily[1:] {
		if v.Time.Before(min) {
			min = v.Time
		}
		if v.Time.After(max) {
			max = v.Time
		}
	}

	origin := base.Add(time.Duration(slotIndex(base, min)) * SlotMinutes * time.Minute)
	last := base.Add(time.Duration(slotIndex(base, max)) * SlotMinutes * time.Minute)
	for t := origin; !t.After(last); t = t.Add(SlotMinutes * time.Minute) {
		detail.Slots = append(detail.Slots, TimeSlot{Start: t, Sessions: []SessionView{}})
	}
	for _, v := range daily {
		idx := slotIndex(origin, v.Time)
		if idx < 0 || idx >= len(detail.Slots) {
			continue
		}
		detail.Slots[idx].Sessions = append(detail.Slots[idx].Sessions, v)
	}
	return detail
}
