package core

import "math"

const (
	DayCompleted DayStatus = "completed"
	DayRequested DayStatus = "requested"
	DayNone      DayStatus = "none"
	DayPending   DayStatus = "pending"
)

const (
	WindowWeek     Window = "week"
	WindowMonth    Window = "month"
	WindowYear     Window = "year"
	WindowTwoYears Window = "twoyears"
)

type (
	// DayStatus labels a single day in a chart series.
	DayStatus string

	// Window selects how far back a chart series reaches.
	Window string

	// Summary is the pull-based reduction over a profile's full
	// attendance set, relative to a reference date.
	Summary struct {
		TotalCents    int64
		MonthCents    int64
		DaysThisMonth int
		AveragePerDay float64 // currency units, 2 decimals
		TodayStatus   DayStatus
	}

	// SeriesPoint is one day in a dense, chart-ready series.
	SeriesPoint struct {
		Date        Date
		AmountCents int64
		Status      DayStatus
	}
)

// Days returns the window length in days, 0 for an unknown window.
func (w Window) Days() int {
	switch w {
	case WindowWeek:
		return 7
	case WindowMonth:
		return 30
	case WindowYear:
		return 365
	case WindowTwoYears:
		return 730
	}
	return 0
}

func (w Window) Valid() bool {
	return w.Days() > 0
}

// Aggregate reduces the full attendance set into total, monthly and
// daily-average figures relative to ref. Monthly means the calendar
// month of ref, not a rolling 30 days.
func Aggregate(records []Attendance, ref Date) Summary {
	s := Summary{TodayStatus: DayPending}
	for _, r := range records {
		s.TotalCents += r.AmountCents
		if r.Date.SameMonth(ref) {
			s.MonthCents += r.AmountCents
			s.DaysThisMonth++
		}
		if r.Date.Equal(ref) {
			s.TodayStatus = DayCompleted
		}
	}
	if s.DaysThisMonth > 0 {
		s.AveragePerDay = round2(float64(s.MonthCents) / 100.0 / float64(s.DaysThisMonth))
	}
	return s
}

// Series builds a dense day-by-day sequence covering the window ending
// at ref, ascending by date. A day is completed when an attendance row
// exists, requested when only a pending request exists, none otherwise.
// Days with no attendance carry zero amount.
func Series(records []Attendance, pending []Request, w Window, ref Date) []SeriesPoint {
	n := w.Days()
	if n <= 0 {
		return nil
	}

	byDay := make(map[string]Attendance, len(records))
	for _, r := range records {
		byDay[r.Date.String()] = r
	}
	requested := make(map[string]bool, len(pending))
	for _, q := range pending {
		if q.Status == RequestPending {
			requested[q.Date.String()] = true
		}
	}

	points := make([]SeriesPoint, 0, n)
	for i := 0; i < n; i++ {
		d := ref.AddDays(i - (n - 1))
		p := SeriesPoint{Date: d, Status: DayNone}
		if r, ok := byDay[d.String()]; ok {
			p.AmountCents = r.AmountCents
			p.Status = DayCompleted
		} else if requested[d.String()] {
			p.Status = DayRequested
		}
		points = append(points, p)
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
