package schedule

// Anchor transitions. Each moves exactly one unit and is pure: callers
// replace their anchors with the returned value. Moving an anchor does
// not touch the active filter; the caller sets that explicitly so a
// week move during a month view never silently switches the screen.

// NextWeek advances the week anchor by seven civil days.
func (a Anchors) NextWeek() Anchors {
	a.CurrentWeek = shiftDays(StartOfWeek(a.CurrentWeek), 7)
	return a
}

// PrevWeek retreats the week anchor by seven civil days.
func (a Anchors) PrevWeek() Anchors {
	a.CurrentWeek = shiftDays(StartOfWeek(a.CurrentWeek), -7)
	return a
}

// NextMonth advances the month anchor by one calendar month. The
// anchor is normalized to the first of the month so stepping from a
// day-31 anchor cannot skip February.
func (a Anchors) NextMonth() Anchors {
	y, m, _ := StartOfMonth(a.CurrentMonth).Date()
	a.CurrentMonth = localMidnight(y, m+1, 1)
	return a
}

// PrevMonth retreats the month anchor by one calendar month.
func (a Anchors) PrevMonth() Anchors {
	y, m, _ := StartOfMonth(a.CurrentMonth).Date()
	a.CurrentMonth = localMidnight(y, m-1, 1)
	return a
}
