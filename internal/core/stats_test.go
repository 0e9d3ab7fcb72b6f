package core

import "testing"

func att(partner, rider string, d Date, cents int64) Attendance {
	return Attendance{
		PartnerID:   partner,
		RiderID:     rider,
		Date:        d,
		AmountCents: cents,
		Status:      AttendancePresent,
	}
}

func TestAggregate(t *testing.T) {
	ref := NewDate(2026, 8, 29)
	records := []Attendance{
		att("p", "r", NewDate(2026, 8, 10), 10000),
		att("p", "r", NewDate(2026, 8, 20), 10000),
		att("p", "r", NewDate(2026, 8, 29), 5000),
	}

	s := Aggregate(records, ref)
	if s.TotalCents != 25000 {
		t.Fatalf("total = %d, want 25000", s.TotalCents)
	}
	if s.MonthCents != 25000 {
		t.Fatalf("monthly = %d, want 25000", s.MonthCents)
	}
	if s.DaysThisMonth != 3 {
		t.Fatalf("days this month = %d, want 3", s.DaysThisMonth)
	}
	if s.AveragePerDay != 83.33 {
		t.Fatalf("average per day = %v, want 83.33", s.AveragePerDay)
	}
	if s.TodayStatus != DayCompleted {
		t.Fatalf("today status = %s, want completed", s.TodayStatus)
	}
}

func TestAggregateMonthBoundary(t *testing.T) {
	ref := NewDate(2026, 8, 29)
	records := []Attendance{
		att("p", "r", NewDate(2026, 7, 31), 10000), // previous month
		att("p", "r", NewDate(2026, 8, 1), 10000),
	}

	s := Aggregate(records, ref)
	if s.TotalCents != 20000 {
		t.Fatalf("total = %d, want 20000", s.TotalCents)
	}
	if s.MonthCents != 10000 {
		t.Fatalf("monthly = %d, want 10000", s.MonthCents)
	}
	if s.DaysThisMonth != 1 {
		t.Fatalf("days this month = %d, want 1", s.DaysThisMonth)
	}
	if s.TodayStatus != DayPending {
		t.Fatalf("today status = %s, want pending", s.TodayStatus)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, NewDate(2026, 8, 29))
	if s.TotalCents != 0 || s.MonthCents != 0 || s.DaysThisMonth != 0 || s.AveragePerDay != 0 {
		t.Fatalf("empty aggregate should be all zero: %+v", s)
	}
	if s.TodayStatus != DayPending {
		t.Fatalf("today status = %s, want pending", s.TodayStatus)
	}
}

func TestSeriesWeek(t *testing.T) {
	ref := NewDate(2026, 8, 29)
	records := []Attendance{
		att("p", "r", NewDate(2026, 8, 27), 12000),
	}
	pending := []Request{
		{RiderID: "r", PartnerID: "p", Date: NewDate(2026, 8, 25), Status: RequestPending},
		{RiderID: "r", PartnerID: "p", Date: NewDate(2026, 8, 24), Status: RequestCompleted}, // not pending, ignored
	}

	points := Series(records, pending, WindowWeek, ref)
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	if !points[0].Date.Equal(NewDate(2026, 8, 23)) || !points[6].Date.Equal(ref) {
		t.Fatalf("unexpected window bounds: %s .. %s", points[0].Date, points[6].Date)
	}
	for i := 1; i < len(points); i++ {
		if !points[i-1].Date.Before(points[i].Date) {
			t.Fatalf("points not ascending at %d", i)
		}
	}

	var completed, requested, none int
	for _, p := range points {
		switch p.Status {
		case DayCompleted:
			completed++
			if p.AmountCents != 12000 {
				t.Fatalf("completed day amount = %d, want 12000", p.AmountCents)
			}
		case DayRequested:
			requested++
			if p.AmountCents != 0 {
				t.Fatalf("requested day should carry zero amount")
			}
		case DayNone:
			none++
			if p.AmountCents != 0 {
				t.Fatalf("empty day should carry zero amount")
			}
		default:
			t.Fatalf("unexpected status %s", p.Status)
		}
	}
	if completed != 1 || requested != 1 || none != 5 {
		t.Fatalf("labels = %d/%d/%d, want 1/1/5", completed, requested, none)
	}
}

func TestSeriesAttendanceWinsOverRequest(t *testing.T) {
	ref := NewDate(2026, 8, 29)
	day := NewDate(2026, 8, 28)
	points := Series(
		[]Attendance{att("p", "r", day, 500)},
		[]Request{{RiderID: "r", PartnerID: "p", Date: day, Status: RequestPending}},
		WindowWeek, ref,
	)
	for _, p := range points {
		if p.Date.Equal(day) && p.Status != DayCompleted {
			t.Fatalf("attendance should win over pending request, got %s", p.Status)
		}
	}
}

func TestWindowDays(t *testing.T) {
	cases := []struct {
		w    Window
		days int
	}{
		{WindowWeek, 7},
		{WindowMonth, 30},
		{WindowYear, 365},
		{WindowTwoYears, 730},
		{Window("fortnight"), 0},
	}
	for _, tc := range cases {
		if got := tc.w.Days(); got != tc.days {
			t.Fatalf("%s.Days() = %d, want %d", tc.w, got, tc.days)
		}
	}
	if Window("fortnight").Valid() {
		t.Fatalf("unknown window should be invalid")
	}
}
